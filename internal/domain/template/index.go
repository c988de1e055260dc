// Package template builds the interaction template index: for every input
// structure holding two or more clustered chains, one template per unordered
// pair of co-occurring chains.
package template

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
)

// Template records that two chains interact in their source structure.  The
// native relative pose is the coordinates of ChainA and ChainB as read; no
// geometry is computed when the index is built.
type Template struct {
	ID       string
	SourceID string
	ClusterA int
	ClusterB int
	ChainA   *chain.Record
	ChainB   *chain.Record
}

// Side returns the anchor and partner chains and their clusters for one
// direction of use.  reverse=false anchors on ChainA.
func (t *Template) Side(reverse bool) (anchor, partner *chain.Record, anchorCluster, partnerCluster int) {
	if reverse {
		return t.ChainB, t.ChainA, t.ClusterB, t.ClusterA
	}
	return t.ChainA, t.ChainB, t.ClusterA, t.ClusterB
}

// Connects reports whether the template touches cluster c.
func (t *Template) Connects(c int) bool {
	return t.ClusterA == c || t.ClusterB == c
}

func (t *Template) String() string {
	return fmt.Sprintf("%s[%d-%d]", t.ID, t.ClusterA, t.ClusterB)
}

// Index holds every template in deterministic order: sources in order of
// first appearance, then chain pairs in input order.  Templates sharing a
// cluster pair are all kept.
type Index struct {
	Templates []*Template
	byCluster map[int][]int
	sources   int
}

// Incident returns the indices of the templates touching cluster c, in index
// order.
func (x *Index) Incident(c int) []int {
	return x.byCluster[c]
}

// Len returns the number of templates.
func (x *Index) Len() int { return len(x.Templates) }

// Sources returns the number of structures that contributed templates.
func (x *Index) Sources() int { return x.sources }

// ClusterPairs returns the distinct unordered cluster pairs covered by the
// index, sorted.
func (x *Index) ClusterPairs() [][2]int {
	seen := make(map[[2]int]struct{})
	for _, t := range x.Templates {
		k := [2]int{t.ClusterA, t.ClusterB}
		if k[0] > k[1] {
			k[0], k[1] = k[1], k[0]
		}
		seen[k] = struct{}{}
	}
	out := make([][2]int, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// Builder extracts templates from clustered records.
type Builder struct {
	workers int
	logger  logging.Logger
}

// NewBuilder returns a Builder extracting sources with up to workers
// goroutines.
func NewBuilder(workers int, logger logging.Logger) *Builder {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{workers: workers, logger: logger.Named("template")}
}

// Build indexes the structural records of clusters.  Records without
// coordinates are ignored.
func (b *Builder) Build(ctx context.Context, records []*chain.Record, clusters *cluster.Result) (*Index, error) {
	var order []string
	bySource := make(map[string][]*chain.Record)
	for _, r := range records {
		if !r.HasStructure() || clusters.GroupOf(r) < 0 {
			continue
		}
		if _, ok := bySource[r.SourceID]; !ok {
			order = append(order, r.SourceID)
		}
		bySource[r.SourceID] = append(bySource[r.SourceID], r)
	}

	perSource := make([][]*Template, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, src := range order {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perSource[i] = extract(src, bySource[src], clusters)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{byCluster: make(map[int][]int)}
	for _, ts := range perSource {
		if len(ts) > 0 {
			idx.sources++
		}
		for _, t := range ts {
			n := len(idx.Templates)
			idx.Templates = append(idx.Templates, t)
			idx.byCluster[t.ClusterA] = append(idx.byCluster[t.ClusterA], n)
			if t.ClusterB != t.ClusterA {
				idx.byCluster[t.ClusterB] = append(idx.byCluster[t.ClusterB], n)
			}
		}
	}

	b.logger.Info("template index built",
		logging.Int("templates", len(idx.Templates)),
		logging.Int("sources", idx.sources),
		logging.Int("cluster_pairs", len(idx.ClusterPairs())))
	return idx, nil
}

func extract(src string, recs []*chain.Record, clusters *cluster.Result) []*Template {
	if len(recs) < 2 {
		return nil
	}
	out := make([]*Template, 0, len(recs)*(len(recs)-1)/2)
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			out = append(out, &Template{
				ID:       fmt.Sprintf("%s:%s-%s", src, recs[i].ID, recs[j].ID),
				SourceID: src,
				ClusterA: clusters.GroupOf(recs[i]),
				ClusterB: clusters.GroupOf(recs[j]),
				ChainA:   recs[i],
				ChainB:   recs[j],
			})
		}
	}
	return out
}
