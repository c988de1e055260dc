package assembly

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type cellKey [3]int32

// grid buckets the atoms of one placed chain into cubic cells whose edge is
// the clash distance, so a proximity query only visits 27 cells.
type grid struct {
	cell     float64
	cells    map[cellKey][]r3.Vec
	min, max r3.Vec
}

func newGrid(atoms []r3.Vec, cell float64) *grid {
	g := &grid{cell: cell, cells: make(map[cellKey][]r3.Vec)}
	if len(atoms) == 0 {
		return g
	}
	g.min, g.max = atoms[0], atoms[0]
	for _, a := range atoms {
		k := g.key(a)
		g.cells[k] = append(g.cells[k], a)
		g.min = r3.Vec{X: math.Min(g.min.X, a.X), Y: math.Min(g.min.Y, a.Y), Z: math.Min(g.min.Z, a.Z)}
		g.max = r3.Vec{X: math.Max(g.max.X, a.X), Y: math.Max(g.max.Y, a.Y), Z: math.Max(g.max.Z, a.Z)}
	}
	return g
}

func (g *grid) key(p r3.Vec) cellKey {
	return cellKey{
		int32(math.Floor(p.X / g.cell)),
		int32(math.Floor(p.Y / g.cell)),
		int32(math.Floor(p.Z / g.cell)),
	}
}

func (g *grid) near(p r3.Vec) bool {
	c := g.cell
	return p.X >= g.min.X-c && p.X <= g.max.X+c &&
		p.Y >= g.min.Y-c && p.Y <= g.max.Y+c &&
		p.Z >= g.min.Z-c && p.Z <= g.max.Z+c
}

// clashes reports whether any of atoms lies closer than the cell size to an
// atom of the grid.
func (g *grid) clashes(atoms []r3.Vec) bool {
	if len(g.cells) == 0 {
		return false
	}
	cut2 := g.cell * g.cell
	for _, a := range atoms {
		if !g.near(a) {
			continue
		}
		k := g.key(a)
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					for _, b := range g.cells[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if r3.Norm2(r3.Sub(a, b)) < cut2 {
							return true
						}
					}
				}
			}
		}
	}
	return false
}
