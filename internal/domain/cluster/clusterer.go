package cluster

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// DefaultIdentityThreshold is the minimum identity for two chains to be
// considered copies of the same protein.
const DefaultIdentityThreshold = 0.95

// Config controls the clusterer.
type Config struct {
	IdentityThreshold float64
	// Workers bounds the number of concurrent pair alignments.  Zero means
	// runtime.NumCPU().
	Workers int
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IdentityThreshold <= 0 || c.IdentityThreshold > 1 {
		return errors.Newf(errors.ErrCodeIdentityThresholdInvalid,
			"identity threshold %.3f outside (0, 1]", c.IdentityThreshold)
	}
	if c.Workers < 0 {
		return errors.NewValidationError("workers", "must not be negative")
	}
	return nil
}

// Group is one equivalence class of chains.
type Group struct {
	// ID is the position of the group in Result.Groups.
	ID    int
	Label string
	// Representative is the member with the lowest input index.
	Representative *chain.Record
	// Members are in input order.
	Members []*chain.Record
}

// Structural returns the members that carry coordinates.
func (g *Group) Structural() []*chain.Record {
	var out []*chain.Record
	for _, m := range g.Members {
		if m.HasStructure() {
			out = append(out, m)
		}
	}
	return out
}

// Result is the partition of the input records.
type Result struct {
	// Groups are ordered by the input index of their representative.
	Groups  []*Group
	groupOf map[*chain.Record]int
	byLabel map[string]int
	// Comparisons is the number of cross-source pairs aligned.
	Comparisons int
}

// GroupOf returns the group id of rec, or -1 when rec was not clustered.
func (r *Result) GroupOf(rec *chain.Record) int {
	if id, ok := r.groupOf[rec]; ok {
		return id
	}
	return -1
}

// ByLabel returns the group with the given label.
func (r *Result) ByLabel(label string) (*Group, bool) {
	id, ok := r.byLabel[label]
	if !ok {
		return nil, false
	}
	return r.Groups[id], true
}

// Labels returns the group labels in group order.
func (r *Result) Labels() []string {
	out := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g.Label
	}
	return out
}

type recordRef struct {
	rec   *chain.Record
	group int
}

// Clusterer partitions chain records by pairwise sequence identity.
type Clusterer struct {
	cfg     Config
	aligner *Aligner
	logger  logging.Logger
}

// NewClusterer returns a Clusterer.  A nil aligner selects an Aligner over a
// fresh MemoryCache.
func NewClusterer(cfg Config, aligner *Aligner, logger logging.Logger) (*Clusterer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if aligner == nil {
		aligner = NewAligner(nil, logger)
	}
	return &Clusterer{cfg: cfg, aligner: aligner, logger: logger.Named("cluster")}, nil
}

// Cluster compares every pair of records from different sources and merges
// those whose identity reaches the threshold.  Records of the same source are
// never compared.  Membership is transitive.  The result does not depend on
// the number of workers.
func (c *Clusterer) Cluster(ctx context.Context, records []*chain.Record) (*Result, error) {
	start := time.Now()
	for _, r := range records {
		if r.Sequence == "" {
			return nil, errors.New(errors.ErrCodeEmptySequence, "cannot cluster chain without sequence").
				WithDetail(r.Key())
		}
	}

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if records[i].SourceID != records[j].SourceID {
				pairs = append(pairs, pair{i, j})
			}
		}
	}

	matched := make([]bool, len(pairs))
	identity := make([]float64, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for k, p := range pairs {
		k, p := k, p
		g.Go(func() error {
			aln, err := c.aligner.Align(gctx, records[p.i].Sequence, records[p.j].Sequence)
			if err != nil {
				return err
			}
			identity[k] = aln.Identity
			matched[k] = aln.Identity >= c.cfg.IdentityThreshold
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAlignmentFailed, "pairwise alignment interrupted")
	}

	uf := newUnionFind(len(records))
	for k, p := range pairs {
		if !matched[k] {
			continue
		}
		if uf.union(p.i, p.j) {
			c.logger.Debug("chains merged",
				logging.String("a", records[p.i].Key()),
				logging.String("b", records[p.j].Key()),
				logging.Float64("identity", identity[k]))
		}
	}

	res := &Result{
		groupOf:     make(map[*chain.Record]int, len(records)),
		byLabel:     make(map[string]int),
		Comparisons: len(pairs),
	}
	rootGroup := make(map[int]int)
	refs := make([]recordRef, len(records))
	for i, rec := range records {
		root := uf.find(i)
		id, ok := rootGroup[root]
		if !ok {
			id = len(res.Groups)
			rootGroup[root] = id
			res.Groups = append(res.Groups, &Group{ID: id, Representative: records[root]})
		}
		grp := res.Groups[id]
		grp.Members = append(grp.Members, rec)
		res.groupOf[rec] = id
		refs[i] = recordRef{rec: rec, group: id}
	}

	assignLabels(res.Groups, refs)
	for _, grp := range res.Groups {
		res.byLabel[grp.Label] = grp.ID
	}

	c.logger.Info("clustering finished",
		logging.Int("records", len(records)),
		logging.Int("clusters", len(res.Groups)),
		logging.Int("comparisons", len(pairs)),
		logging.Duration("elapsed", time.Since(start)))
	return res, nil
}

// SortedLabels returns the labels of groups sorted by label length then
// lexically, which is the order they were assigned in.
func SortedLabels(r *Result) []string {
	out := r.Labels()
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
