package assembly

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/domain/superpose"
)

// PlacedChain is one chain of an assembled model in global coordinates.
type PlacedChain struct {
	Cluster    int
	Label      string
	SourceID   string
	SourceKey  string
	TemplateID string
	Sequence   string
	Transform  superpose.Transform
	RMSD       float64
	// Residues carry global-frame coordinates.
	Residues []chain.Residue
}

// Atoms returns the global-frame coordinates of every atom of the chain.
func (c PlacedChain) Atoms() []r3.Vec {
	var out []r3.Vec
	for _, r := range c.Residues {
		for _, a := range r.Atoms {
			out = append(out, a.Coord)
		}
	}
	return out
}

func (c PlacedChain) clone() PlacedChain {
	res := make([]chain.Residue, len(c.Residues))
	for i, r := range c.Residues {
		r.Atoms = append([]chain.Atom(nil), r.Atoms...)
		res[i] = r
	}
	c.Residues = res
	return c
}

// Model is an immutable snapshot of an assembled complex.  Chains are in
// placement order.
type Model struct {
	chains  []PlacedChain
	rmsdSum float64
}

func newModel(s *state, clusters *cluster.Result) *Model {
	m := &Model{chains: make([]PlacedChain, len(s.placed)), rmsdSum: s.rmsdSum}
	for i, p := range s.placed {
		res := make([]chain.Residue, len(p.Source.Residues))
		for j, r := range p.Source.Residues {
			atoms := make([]chain.Atom, len(r.Atoms))
			for k, a := range r.Atoms {
				atoms[k] = chain.Atom{Name: a.Name, Element: a.Element, Coord: p.Transform.Apply(a.Coord)}
			}
			res[j] = chain.Residue{Index: r.Index, InsertionCode: r.InsertionCode, Name: r.Name, Atoms: atoms}
		}
		m.chains[i] = PlacedChain{
			Cluster:    p.Cluster,
			Label:      clusters.Groups[p.Cluster].Label,
			SourceID:   p.Source.SourceID,
			SourceKey:  p.Source.Key(),
			TemplateID: p.TemplateID,
			Sequence:   p.Source.Sequence,
			Transform:  p.Transform,
			RMSD:       p.RMSD,
			Residues:   res,
		}
	}
	return m
}

// NewModel builds a model from already placed chains.
func NewModel(chains []PlacedChain) *Model {
	m := &Model{chains: make([]PlacedChain, len(chains))}
	for i, c := range chains {
		m.chains[i] = c.clone()
		m.rmsdSum += c.RMSD
	}
	return m
}

// Len returns the number of chains.
func (m *Model) Len() int { return len(m.chains) }

// Chain returns a copy of the i-th chain.
func (m *Model) Chain(i int) PlacedChain { return m.chains[i].clone() }

// Chains returns a deep copy of the chain list.
func (m *Model) Chains() []PlacedChain {
	out := make([]PlacedChain, len(m.chains))
	for i, c := range m.chains {
		out[i] = c.clone()
	}
	return out
}

// RMSDSum is the sum of the superposition RMSDs of every placement.
func (m *Model) RMSDSum() float64 { return m.rmsdSum }

// Composition counts the chains per cluster label.
func (m *Model) Composition() map[string]int {
	out := make(map[string]int)
	for _, c := range m.chains {
		out[c.Label]++
	}
	return out
}

// Stoichiometry renders the composition in stoichiometry notation.
func (m *Model) Stoichiometry() string {
	return Stoichiometry(m.Composition()).String()
}
