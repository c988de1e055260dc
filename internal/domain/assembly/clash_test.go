package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGrid_Clashes(t *testing.T) {
	g := newGrid([]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 3.8, Y: 0, Z: 0}, {X: -0.01, Y: -0.01, Z: -0.01}}, 2.0)

	tests := []struct {
		name  string
		atoms []r3.Vec
		want  bool
	}{
		{"far away", []r3.Vec{{X: 50, Y: 50, Z: 50}}, false},
		{"just outside", []r3.Vec{{X: 3.8, Y: 2.01, Z: 0}}, false},
		{"just inside", []r3.Vec{{X: 3.8, Y: 1.99, Z: 0}}, true},
		{"across cell boundary", []r3.Vec{{X: -1.5, Y: 0.5, Z: 0}}, true},
		{"negative octant", []r3.Vec{{X: -1.0, Y: -1.0, Z: -1.0}}, true},
		{"second atom clashes", []r3.Vec{{X: 20, Y: 0, Z: 0}, {X: 1.9, Y: 0, Z: 0}}, true},
		{"no atoms", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.clashes(tt.atoms))
		})
	}
}

func TestGrid_Empty(t *testing.T) {
	g := newGrid(nil, 2.0)
	assert.False(t, g.clashes([]r3.Vec{{}}))
}
