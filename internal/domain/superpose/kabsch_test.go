package superpose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/pkg/errors"
)

// axisRotation builds a rotation by angle (radians) about a unit axis.
func axisRotation(axis r3.Vec, angle float64) Transform {
	a := r3.Unit(axis)
	c, s := math.Cos(angle), math.Sin(angle)
	C := 1 - c
	return Transform{Rotation: [3][3]float64{
		{c + a.X*a.X*C, a.X*a.Y*C - a.Z*s, a.X*a.Z*C + a.Y*s},
		{a.Y*a.X*C + a.Z*s, c + a.Y*a.Y*C, a.Y*a.Z*C - a.X*s},
		{a.Z*a.X*C - a.Y*s, a.Z*a.Y*C + a.X*s, c + a.Z*a.Z*C},
	}}
}

func helix(n int) []r3.Vec {
	ps := make([]r3.Vec, n)
	for i := range ps {
		th := float64(i) * 100 * math.Pi / 180
		ps[i] = r3.Vec{X: 2.3 * math.Cos(th), Y: 2.3 * math.Sin(th), Z: 1.5 * float64(i)}
	}
	return ps
}

func TestSuperpose_RecoversKnownTransform(t *testing.T) {
	known := axisRotation(r3.Vec{X: 1, Y: 2, Z: 3}, 1.1)
	known.Translation = r3.Vec{X: 10, Y: -4, Z: 7.5}

	moving := helix(12)
	target := known.ApplyAll(moving)

	got, rmsd, err := Superpose(moving, target)
	require.NoError(t, err)
	assert.InDelta(t, 0, rmsd, 1e-9)
	assert.True(t, got.ApproxEqual(known, 1e-9), "got %+v want %+v", got, known)
	assert.InDelta(t, 1, got.Determinant(), 1e-12)
}

func TestSuperpose_Deterministic(t *testing.T) {
	moving := helix(9)
	target := axisRotation(r3.Vec{Z: 1}, 0.4).ApplyAll(moving)
	target[3] = r3.Add(target[3], r3.Vec{X: 0.3})

	t1, r1, err1 := Superpose(moving, target)
	t2, r2, err2 := Superpose(moving, target)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, t1, t2)
	assert.Equal(t, math.Float64bits(r1), math.Float64bits(r2))
	assert.Greater(t, r1, 0.0)
}

func TestSuperpose_NoReflection(t *testing.T) {
	moving := helix(8)
	mirrored := make([]r3.Vec, len(moving))
	for i, p := range moving {
		mirrored[i] = r3.Vec{X: -p.X, Y: p.Y, Z: p.Z}
	}
	tr, rmsd, err := Superpose(moving, mirrored)
	require.NoError(t, err)
	assert.InDelta(t, 1, tr.Determinant(), 1e-9)
	assert.Greater(t, rmsd, 0.1)
}

func TestSuperpose_Boundaries(t *testing.T) {
	two := []r3.Vec{{X: 0}, {X: 1}}
	_, _, err := Superpose(two, two)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDegenerateFit))

	three := []r3.Vec{{X: 0}, {X: 1}, {Y: 1}}
	shifted := Translation(r3.Vec{Z: 5}).ApplyAll(three)
	tr, rmsd, err := Superpose(three, shifted)
	require.NoError(t, err)
	assert.InDelta(t, 0, rmsd, 1e-9)
	assert.True(t, tr.ApproxEqual(Translation(r3.Vec{Z: 5}), 1e-9))
}

func TestSuperpose_InputMismatch(t *testing.T) {
	_, _, err := Superpose(helix(4), helix(5))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputMismatch))
}

func TestRMSD(t *testing.T) {
	a := []r3.Vec{{X: 0}, {X: 1}}
	b := []r3.Vec{{X: 0, Y: 1}, {X: 1, Y: 1}}
	got, err := RMSD(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-12)

	_, err = RMSD(a, b[:1])
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputMismatch))

	got, err = RMSD(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
