// Package superpose implements rigid-body transforms and the closed-form
// least-squares superposition (Kabsch) of paired atom sets.
package superpose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid transform p ↦ Rotation·p + Translation.  Rotation is
// orthonormal with determinant +1.
type Transform struct {
	Rotation    [3][3]float64
	Translation r3.Vec
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Translation returns a pure translation by v.
func Translation(v r3.Vec) Transform {
	t := Identity()
	t.Translation = v
	return t
}

func (t Transform) rotate(p r3.Vec) r3.Vec {
	m := &t.Rotation
	return r3.Vec{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z,
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z,
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z,
	}
}

// Apply maps a single point.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.rotate(p), t.Translation)
}

// ApplyAll maps every point into a new slice.
func (t Transform) ApplyAll(ps []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(ps))
	for i, p := range ps {
		out[i] = t.Apply(p)
	}
	return out
}

// Compose returns t∘inner, the transform that applies inner first and then t.
func (t Transform) Compose(inner Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += t.Rotation[i][k] * inner.Rotation[k][j]
			}
			out.Rotation[i][j] = s
		}
	}
	out.Translation = r3.Add(t.rotate(inner.Translation), t.Translation)
	return out
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Rotation[i][j] = t.Rotation[j][i]
		}
	}
	out.Translation = r3.Scale(-1, out.rotate(t.Translation))
	return out
}

// Determinant returns det(Rotation).
func (t Transform) Determinant() float64 {
	m := &t.Rotation
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// ApproxEqual reports whether every rotation entry and translation component
// of t and o differ by at most tol.
func (t Transform) ApproxEqual(o Transform, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(t.Rotation[i][j]-o.Rotation[i][j]) > tol {
				return false
			}
		}
	}
	return r3.Norm(r3.Sub(t.Translation, o.Translation)) <= tol
}

// Centroid returns the mean position of ps; the zero vector for an empty set.
func Centroid(ps []r3.Vec) r3.Vec {
	if len(ps) == 0 {
		return r3.Vec{}
	}
	var c r3.Vec
	for _, p := range ps {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(ps)), c)
}
