package superpose

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/pkg/errors"
)

// MinPairs is the smallest number of atom pairs for which a rotation is
// determined.
const MinPairs = 3

// Superpose computes the rigid transform T minimising Σ|T(moving[i]) −
// target[i]|² and the RMSD of the fitted sets.
//
// It fails with ErrCodeInputMismatch when the sets differ in length and with
// ErrCodeDegenerateFit when fewer than MinPairs pairs are given.  The result
// depends only on the inputs.
func Superpose(moving, target []r3.Vec) (Transform, float64, error) {
	if len(moving) != len(target) {
		return Transform{}, 0, errors.Newf(errors.ErrCodeInputMismatch,
			"atom sets differ in length: %d vs %d", len(moving), len(target))
	}
	if len(moving) < MinPairs {
		return Transform{}, 0, errors.Newf(errors.ErrCodeDegenerateFit,
			"%d atom pairs, need at least %d", len(moving), MinPairs)
	}

	cm := Centroid(moving)
	ct := Centroid(target)

	// Covariance H = Σ (m−cm)(t−ct)ᵀ.
	var h [9]float64
	for i := range moving {
		x := r3.Sub(moving[i], cm)
		y := r3.Sub(target[i], ct)
		xs := [3]float64{x.X, x.Y, x.Z}
		ys := [3]float64{y.X, y.Y, y.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h[r*3+c] += xs[r] * ys[c]
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(3, 3, h[:]), mat.SVDFull); !ok {
		return Transform{}, 0, errors.New(errors.ErrCodeDegenerateFit, "covariance factorisation failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V·diag(1,1,d)·Uᵀ with d correcting a reflection.
	var vu mat.Dense
	vu.Mul(&v, u.T())
	d := 1.0
	if mat.Det(&vu) < 0 {
		d = -1.0
	}
	var vd, rot mat.Dense
	vd.Mul(&v, mat.NewDiagDense(3, []float64{1, 1, d}))
	rot.Mul(&vd, u.T())

	var t Transform
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			t.Rotation[r][c] = rot.At(r, c)
		}
	}
	t.Translation = r3.Sub(ct, t.rotate(cm))

	var ss float64
	for i := range moving {
		ss += r3.Norm2(r3.Sub(t.Apply(moving[i]), target[i]))
	}
	return t, math.Sqrt(ss / float64(len(moving))), nil
}

// RMSD returns the root-mean-square deviation of two paired sets without
// fitting.
func RMSD(a, b []r3.Vec) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Newf(errors.ErrCodeInputMismatch,
			"atom sets differ in length: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	var ss float64
	for i := range a {
		ss += r3.Norm2(r3.Sub(a[i], b[i]))
	}
	return math.Sqrt(ss / float64(len(a))), nil
}
