package testutil

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/superpose"
)

// Ideal alpha-helix geometry used for synthetic chains.
const (
	helixRadius = 2.3
	helixRise   = 1.5
	helixTurn   = 100.0 * math.Pi / 180
)

// HelixCA returns the alpha-carbon trace of an n-residue ideal helix along
// +Z starting at the origin.
func HelixCA(n int) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		a := float64(i) * helixTurn
		out[i] = r3.Vec{X: helixRadius * math.Cos(a), Y: helixRadius * math.Sin(a), Z: float64(i) * helixRise}
	}
	return out
}

// HelixResidues builds CA-only residues for seq on an ideal helix moved by
// frame.
func HelixResidues(seq string, frame superpose.Transform) []chain.Residue {
	ca := HelixCA(len(seq))
	out := make([]chain.Residue, len(seq))
	for i := range seq {
		out[i] = chain.Residue{
			Index: i + 1,
			Name:  chain.ThreeLetter(seq[i]),
			Atoms: []chain.Atom{{Name: chain.CAName, Element: "C", Coord: frame.Apply(ca[i])}},
		}
	}
	return out
}

// Helix builds a structural record for seq placed by frame.
func Helix(sourceID, chainID, seq string, frame superpose.Transform) *chain.Record {
	return chain.NewStructureRecord(sourceID, chainID, HelixResidues(seq, frame))
}

// Frame returns a rigid transform rotating by deg degrees about the unit
// vector of axis and then translating by (x, y, z).
func Frame(axis r3.Vec, deg, x, y, z float64) superpose.Transform {
	a := r3.Unit(axis)
	th := deg * math.Pi / 180
	c, s := math.Cos(th), math.Sin(th)
	t := 1 - c
	return superpose.Transform{
		Rotation: [3][3]float64{
			{c + a.X*a.X*t, a.X*a.Y*t - a.Z*s, a.X*a.Z*t + a.Y*s},
			{a.Y*a.X*t + a.Z*s, c + a.Y*a.Y*t, a.Y*a.Z*t - a.X*s},
			{a.Z*a.X*t - a.Y*s, a.Z*a.Y*t + a.X*s, c + a.Z*a.Z*t},
		},
		Translation: r3.Vec{X: x, Y: y, Z: z},
	}
}

// Shift returns a pure translation.
func Shift(x, y, z float64) superpose.Transform {
	return superpose.Translation(r3.Vec{X: x, Y: y, Z: z})
}

// Test sequences with pairwise identity far below any sensible clustering
// threshold.
const (
	SeqX = "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRV"
	SeqY = "GSHMSELKDPNGTWCCVVEGFYRDHNAPQLLTTAMKWEDE"
	SeqZ = "PPGAWRLNVCYHDQESITFKGMLPRWYAEDNCTQIVHSGG"
)
