package assembly

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/superpose"
	"github.com/turtacn/mcbuilder/internal/domain/template"
)

// Placement is one chain instance of a search branch.  Transform moves the
// native frame of Source into the global frame.  Placements are immutable
// and shared between branches.
type Placement struct {
	Cluster   int
	Source    *chain.Record
	Transform superpose.Transform
	// TemplateID names the template that placed the chain; empty for the
	// seed.
	TemplateID string
	// Parent is the index of the anchor instance, -1 for the seed.
	Parent int
	// RMSD of the superposition that placed the chain.
	RMSD     float64
	atoms    []r3.Vec
	centroid r3.Vec
	grid     *grid
}

func newPlacement(cluster int, src *chain.Record, t superpose.Transform, atoms []r3.Vec, clash float64) *Placement {
	return &Placement{
		Cluster:   cluster,
		Source:    src,
		Transform: t,
		Parent:    -1,
		atoms:     atoms,
		centroid:  superpose.Centroid(atoms),
		grid:      newGrid(atoms, clash),
	}
}

// edge is a candidate transition: template Template used in direction
// Reverse, anchored on placed instance Instance.
type edge struct {
	Instance int
	Template int
	Reverse  bool
}

// state is one node of the search.  Each branch owns its state; clone copies
// everything a transition mutates.
type state struct {
	placed    []*Placement
	placedBy  []edge
	remaining []int
	counts    []int
	frontier  []edge
	rmsdSum   float64
}

func (s *state) clone() *state {
	c := &state{
		placed:   append([]*Placement(nil), s.placed...),
		placedBy: append([]edge(nil), s.placedBy...),
		counts:   append([]int(nil), s.counts...),
		frontier: append([]edge(nil), s.frontier...),
		rmsdSum:  s.rmsdSum,
	}
	if s.remaining != nil {
		c.remaining = append([]int(nil), s.remaining...)
	}
	return c
}

// add appends p, charges its cluster budget and opens the edges incident to
// its cluster.  via is the edge that placed p; the seed uses Instance -1.
func (s *state) add(p *Placement, via edge, idx *template.Index) {
	k := len(s.placed)
	s.placed = append(s.placed, p)
	s.placedBy = append(s.placedBy, via)
	s.counts[p.Cluster]++
	if s.remaining != nil {
		s.remaining[p.Cluster]--
	}
	s.rmsdSum += p.RMSD

	for _, t := range idx.Incident(p.Cluster) {
		tpl := idx.Templates[t]
		for _, rev := range [2]bool{false, true} {
			_, _, anchorCluster, _ := tpl.Side(rev)
			if anchorCluster != p.Cluster {
				continue
			}
			if via.Instance >= 0 && via.Template == t && via.Reverse != rev {
				// Would place the parent's chain on top of the parent.
				continue
			}
			s.frontier = append(s.frontier, edge{Instance: k, Template: t, Reverse: rev})
		}
	}
}

func (s *state) depth() int { return len(s.placed) - 1 }

func (s *state) satisfied() bool {
	if s.remaining == nil {
		return false
	}
	for _, r := range s.remaining {
		if r > 0 {
			return false
		}
	}
	return true
}

// satisfaction is the fraction of the requested chains that are present,
// zero when no stoichiometry is set.
func (s *state) satisfaction(targets []int) float64 {
	if targets == nil {
		return 0
	}
	want, have := 0, 0
	for c, n := range targets {
		want += n
		if s.counts[c] < n {
			have += s.counts[c]
		} else {
			have += n
		}
	}
	if want == 0 {
		return 0
	}
	return float64(have) / float64(want)
}

// key identifies the placed set independently of placement order.
func (s *state) key() string {
	parts := make([]string, len(s.placed))
	for i, p := range s.placed {
		parts[i] = fmt.Sprintf("%d@%d,%d,%d", p.Cluster,
			int64(math.Round(p.centroid.X*10)),
			int64(math.Round(p.centroid.Y*10)),
			int64(math.Round(p.centroid.Z*10)))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// better reports whether a ranks above b: higher satisfaction, then more
// chains, then lower summed RMSD.
func better(a, b *state, targets []int) bool {
	sa, sb := a.satisfaction(targets), b.satisfaction(targets)
	if sa != sb {
		return sa > sb
	}
	if len(a.placed) != len(b.placed) {
		return len(a.placed) > len(b.placed)
	}
	return a.rmsdSum < b.rmsdSum-1e-9
}
