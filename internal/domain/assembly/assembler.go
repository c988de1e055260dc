// Package assembly grows a macrocomplex model from the template index by
// repeatedly superposing template chains onto chains already placed.
package assembly

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/domain/superpose"
	"github.com/turtacn/mcbuilder/internal/domain/template"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// RejectReason classifies a rejected edge.
type RejectReason string

const (
	RejectStoichiometry RejectReason = "stoichiometry"
	RejectSuperpose     RejectReason = "superpose_error"
	RejectRMSD          RejectReason = "rmsd"
	RejectClash         RejectReason = "clash"
)

// Mode names.
const (
	ModeGreedy     = "greedy"
	ModeExhaustive = "exhaustive"
)

// Input is what one assembly run works on.
type Input struct {
	Clusters *cluster.Result
	Index    *template.Index
	// Stoichiometry is optional.
	Stoichiometry Stoichiometry
}

// Stats describes the work done by a run.
type Stats struct {
	Mode string
	// StatesExplored counts distinct states created, the seed included.
	StatesExplored int
	// TerminalStates counts states with no further valid transition.
	TerminalStates int
	Attempts       int
	Rejections     map[RejectReason]int
	Fits           int
	Elapsed        time.Duration
}

// Rejected returns the total number of rejected edges.
func (s Stats) Rejected() int {
	n := 0
	for _, c := range s.Rejections {
		n += c
	}
	return n
}

// Result is the outcome of Assemble.  Model is set whenever Assemble returns
// nil or a warning error.
type Result struct {
	Model     *Model
	Satisfied bool
	Stats     Stats
}

// Assembler builds complex models.  It is safe to run several assemblies
// concurrently on one Assembler.
type Assembler struct {
	cfg     Config
	aligner *cluster.Aligner
	logger  logging.Logger
}

// NewAssembler validates cfg and returns an Assembler.  aligner supplies the
// residue correspondences used for superposition; share the clusterer's
// aligner to reuse its cache.
func NewAssembler(cfg Config, aligner *cluster.Aligner, logger logging.Logger) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if aligner == nil {
		aligner = cluster.NewAligner(nil, logger)
	}
	return &Assembler{cfg: cfg, aligner: aligner, logger: logger.Named("assembly")}, nil
}

// Config returns the configuration in use.
func (a *Assembler) Config() Config { return a.cfg }

// run carries the per-call context shared by every branch.
type run struct {
	*Assembler
	in      Input
	targets []int
	fits    *fitCache
}

// Assemble runs the configured search.  AssemblyImpossible is returned with
// a nil Result when no seed exists.  StoichiometryUnsatisfiable and
// SearchLimitExceeded are returned together with the best model found.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	r := &run{Assembler: a, in: in, fits: newFitCache(a.aligner)}
	if in.Stoichiometry != nil {
		targets, err := in.Stoichiometry.Targets(in.Clusters)
		if err != nil {
			return nil, err
		}
		r.targets = targets
	}

	seed, err := r.seed()
	if err != nil {
		return nil, err
	}

	var (
		best     *state
		stats    Stats
		limitErr error
	)
	if a.cfg.Exhaustive {
		best, stats, limitErr = r.exhaustive(ctx, seed)
	} else {
		best, stats, limitErr = r.greedy(ctx, seed)
	}
	stats.Fits = r.fits.len()
	stats.Elapsed = time.Since(start)

	res := &Result{
		Model:     newModel(best, in.Clusters),
		Satisfied: best.satisfied(),
		Stats:     stats,
	}
	a.logger.Info("assembly finished",
		logging.String("mode", stats.Mode),
		logging.Int("chains", res.Model.Len()),
		logging.String("composition", res.Model.Stoichiometry()),
		logging.Int("states", stats.StatesExplored),
		logging.Int("rejected", stats.Rejected()),
		logging.Duration("elapsed", stats.Elapsed))

	if limitErr != nil {
		a.logger.Warn("search stopped early", logging.Err(limitErr))
		return res, limitErr
	}
	if r.targets != nil && !res.Satisfied {
		err := errors.New(errors.ErrCodeStoichiometryUnsatisfiable, "returning best partial model").
			WithDetail(fmt.Sprintf("wanted %s, built %s", in.Stoichiometry, res.Model.Stoichiometry()))
		a.logger.Warn("stoichiometry not reached",
			logging.String("wanted", in.Stoichiometry.String()),
			logging.String("built", res.Model.Stoichiometry()))
		return res, err
	}
	return res, nil
}

// seed places the first chain at the identity.  Without a stoichiometry it
// is chain A of the first template; otherwise the first template side whose
// cluster has the lowest positive target.
func (r *run) seed() (*state, error) {
	idx := r.in.Index
	if idx == nil || idx.Len() == 0 {
		return nil, errors.New(errors.ErrCodeAssemblyImpossible, "no interaction template available")
	}

	tplIdx, reverse := 0, false
	if r.targets != nil {
		found := false
		bestTarget := 0
		for t, tpl := range idx.Templates {
			for _, rev := range [2]bool{false, true} {
				_, _, c, _ := tpl.Side(rev)
				n := r.targets[c]
				if n > 0 && (!found || n < bestTarget) {
					found, bestTarget, tplIdx, reverse = true, n, t, rev
				}
			}
		}
		if !found {
			return nil, errors.New(errors.ErrCodeAssemblyImpossible,
				"no template contains a cluster named by the stoichiometry").
				WithDetail(r.in.Stoichiometry.String())
		}
	}

	tpl := idx.Templates[tplIdx]
	src, _, c, _ := tpl.Side(reverse)
	st := &state{counts: make([]int, len(r.in.Clusters.Groups))}
	if r.targets != nil {
		st.remaining = append([]int(nil), r.targets...)
	}
	p := newPlacement(c, src, superpose.Identity(), src.Coords(), r.cfg.ClashDistance)
	p.TemplateID = tpl.ID
	st.add(p, edge{Instance: -1}, idx)

	r.logger.Debug("seed placed",
		logging.String("chain", src.Key()),
		logging.String("cluster", r.in.Clusters.Groups[c].Label))
	return st, nil
}

// try evaluates e against st without modifying it.
func (r *run) try(ctx context.Context, st *state, e edge) (*Placement, RejectReason) {
	tpl := r.in.Index.Templates[e.Template]
	anchor, partner, _, partnerCluster := tpl.Side(e.Reverse)
	inst := st.placed[e.Instance]

	if st.remaining != nil && st.remaining[partnerCluster] <= 0 {
		return nil, RejectStoichiometry
	}

	fr := r.fits.fit(ctx, anchor, inst.Source)
	if fr.err != nil {
		return nil, RejectSuperpose
	}
	if fr.rmsd > r.cfg.RMSDThreshold {
		return nil, RejectRMSD
	}

	global := inst.Transform.Compose(fr.transform)
	atoms := global.ApplyAll(partner.Coords())
	for j, other := range st.placed {
		if j == e.Instance {
			continue
		}
		if other.grid.clashes(atoms) {
			return nil, RejectClash
		}
	}

	p := newPlacement(partnerCluster, partner, global, atoms, r.cfg.ClashDistance)
	p.TemplateID = tpl.ID
	p.Parent = e.Instance
	p.RMSD = fr.rmsd
	return p, ""
}

func (r *run) reject(e edge, reason RejectReason) {
	r.logger.Debug("edge rejected",
		logging.Int("instance", e.Instance),
		logging.String("template", r.in.Index.Templates[e.Template].ID),
		logging.Bool("reverse", e.Reverse),
		logging.String("reason", string(reason)))
}

// terminal reports whether st needs no further growth.
func (r *run) terminal(st *state) bool {
	if st.satisfied() {
		return true
	}
	if r.cfg.ChainLimit > 0 && len(st.placed) >= r.cfg.ChainLimit {
		return true
	}
	return len(st.frontier) == 0
}

func (r *run) limitError(ctx context.Context, what string, n int) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchLimitExceeded, "search canceled")
	}
	return errors.New(errors.ErrCodeSearchLimitExceeded, "returning best model so far").
		WithDetail(fmt.Sprintf("%s=%d", what, n))
}

// greedy applies the first valid transition of each step on a single state.
func (r *run) greedy(ctx context.Context, st *state) (*state, Stats, error) {
	stats := Stats{Mode: ModeGreedy, StatesExplored: 1, Rejections: make(map[RejectReason]int)}
	for !r.terminal(st) {
		if ctx.Err() != nil {
			return st, stats, r.limitError(ctx, "", 0)
		}
		if st.depth() >= r.cfg.MaxDepth {
			return st, stats, r.limitError(ctx, "max_depth", r.cfg.MaxDepth)
		}
		if stats.StatesExplored >= r.cfg.MaxStates {
			return st, stats, r.limitError(ctx, "max_states", r.cfg.MaxStates)
		}

		e := st.frontier[0]
		st.frontier = st.frontier[1:]
		stats.Attempts++
		p, reason := r.try(ctx, st, e)
		if p == nil {
			stats.Rejections[reason]++
			r.reject(e, reason)
			continue
		}
		st.add(p, e, r.in.Index)
		stats.StatesExplored++
	}
	stats.TerminalStates = 1
	return st, stats, nil
}

// SortedReasons returns the reasons present in m in a stable order.
func SortedReasons(m map[RejectReason]int) []RejectReason {
	out := make([]RejectReason, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
