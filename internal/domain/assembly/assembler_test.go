package assembly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/domain/superpose"
	"github.com/turtacn/mcbuilder/internal/domain/template"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/internal/testutil"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

var (
	id  = superpose.Identity()
	zAx = r3.Vec{Z: 1}
)

// prepare clusters recs and indexes their templates.
func prepare(t *testing.T, recs []*chain.Record) (Input, *cluster.Aligner) {
	t.Helper()
	al := cluster.NewAligner(nil, nil)
	c, err := cluster.NewClusterer(cluster.Config{IdentityThreshold: 0.95, Workers: 2}, al, nil)
	require.NoError(t, err)
	clusters, err := c.Cluster(context.Background(), recs)
	require.NoError(t, err)
	idx, err := template.NewBuilder(2, nil).Build(context.Background(), recs, clusters)
	require.NoError(t, err)
	return Input{Clusters: clusters, Index: idx}, al
}

func newTestAssembler(t *testing.T, cfg Config, al *cluster.Aligner, logger logging.Logger) *Assembler {
	t.Helper()
	a, err := NewAssembler(cfg, al, logger)
	require.NoError(t, err)
	return a
}

func withStoichiometry(t *testing.T, in Input, s string) Input {
	t.Helper()
	st, err := ParseStoichiometry(s)
	require.NoError(t, err)
	in.Stoichiometry = st
	return in
}

// minInterChainDistance returns the closest approach between atoms of
// different chains.
func minInterChainDistance(m *Model) float64 {
	best := 1e9
	chains := m.Chains()
	for i := range chains {
		ai := chains[i].Atoms()
		for j := i + 1; j < len(chains); j++ {
			for _, a := range ai {
				for _, b := range chains[j].Atoms() {
					if d := r3.Norm(r3.Sub(a, b)); d < best {
						best = d
					}
				}
			}
		}
	}
	return best
}

// xyzInputs: X binds Y in one structure, Y binds Z in another.
func xyzInputs() []*chain.Record {
	return []*chain.Record{
		chain.NewSequenceRecord("seqs.fa", "X", testutil.SeqX),
		chain.NewSequenceRecord("seqs.fa", "Y", testutil.SeqY),
		chain.NewSequenceRecord("seqs.fa", "Z", testutil.SeqZ),
		testutil.Helix("1xy", "A", testutil.SeqX, id),
		testutil.Helix("1xy", "B", testutil.SeqY, testutil.Shift(10, 0, 0)),
		testutil.Helix("2yz", "A", testutil.SeqY, testutil.Frame(zAx, 90, 0, 0, 0)),
		testutil.Helix("2yz", "B", testutil.SeqZ, testutil.Frame(zAx, 90, 0, 10, 0)),
	}
}

// dimerInputs: one structure holding two copies of X related by a two-fold
// axis parallel to Z through (6, 0, 0).
func dimerInputs() []*chain.Record {
	return []*chain.Record{
		chain.NewSequenceRecord("seqs.fa", "X", testutil.SeqX),
		testutil.Helix("1xx", "A", testutil.SeqX, id),
		testutil.Helix("1xx", "B", testutil.SeqX, testutil.Frame(zAx, 180, 12, 0, 0)),
	}
}

// fanInputs: X binds Y at three distinct sites, one per structure.
func fanInputs() []*chain.Record {
	return []*chain.Record{
		chain.NewSequenceRecord("seqs.fa", "X", testutil.SeqX),
		chain.NewSequenceRecord("seqs.fa", "Y", testutil.SeqY),
		testutil.Helix("1xy", "A", testutil.SeqX, id),
		testutil.Helix("1xy", "B", testutil.SeqY, testutil.Shift(10, 0, 0)),
		testutil.Helix("2xy", "A", testutil.SeqX, id),
		testutil.Helix("2xy", "B", testutil.SeqY, testutil.Shift(0, 10, 0)),
		testutil.Helix("3xy", "A", testutil.SeqX, id),
		testutil.Helix("3xy", "B", testutil.SeqY, testutil.Shift(-10, 0, 0)),
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	mutations := map[string]func(*Config){
		"rmsd":    func(c *Config) { c.RMSDThreshold = 0 },
		"clash":   func(c *Config) { c.ClashDistance = -1 },
		"limit":   func(c *Config) { c.ChainLimit = -1 },
		"depth":   func(c *Config) { c.MaxDepth = 0 },
		"states":  func(c *Config) { c.MaxStates = 0 },
		"workers": func(c *Config) { c.Workers = -2 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
		})
	}
}

func TestAssemble_GreedyChainsThroughSharedPartner(t *testing.T) {
	in, al := prepare(t, xyzInputs())
	logger := testutil.NewMockLogger()
	res, err := newTestAssembler(t, DefaultConfig(), al, logger).Assemble(context.Background(), in)
	require.NoError(t, err)

	m := res.Model
	require.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"A", "B", "C"}, []string{m.Chain(0).Label, m.Chain(1).Label, m.Chain(2).Label})
	assert.Equal(t, "1xy:A", m.Chain(0).SourceKey)
	assert.Equal(t, "1xy:A-B", m.Chain(1).TemplateID)
	assert.Equal(t, "2yz:A-B", m.Chain(2).TemplateID)
	assert.GreaterOrEqual(t, minInterChainDistance(m), DefaultClashDistance)

	// Z sits 10 Å beyond Y along +X, whatever frame 2yz was deposited in.
	zc := superpose.Centroid(m.Chain(2).Atoms())
	yc := superpose.Centroid(m.Chain(1).Atoms())
	assert.InDelta(t, 10, r3.Norm(r3.Sub(zc, yc)), 1e-6)
	assert.InDelta(t, 10, zc.X-yc.X, 1e-6)

	assert.Equal(t, ModeGreedy, res.Stats.Mode)
	assert.Equal(t, 3, res.Stats.StatesExplored)
	assert.False(t, res.Satisfied)
	assert.True(t, logger.HasMessage("info", "assembly finished"))
}

func TestAssemble_ClashRejected(t *testing.T) {
	recs := []*chain.Record{
		chain.NewSequenceRecord("seqs.fa", "X", testutil.SeqX),
		chain.NewSequenceRecord("seqs.fa", "Y", testutil.SeqY),
		testutil.Helix("1xy", "A", testutil.SeqX, id),
		testutil.Helix("1xy", "B", testutil.SeqY, testutil.Shift(10, 0, 0)),
		testutil.Helix("2xy", "A", testutil.SeqX, id),
		testutil.Helix("2xy", "B", testutil.SeqY, testutil.Shift(10.5, 0, 0)),
	}
	in, al := prepare(t, recs)
	logger := testutil.NewMockLogger()
	res, err := newTestAssembler(t, DefaultConfig(), al, logger).Assemble(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Model.Len())
	assert.GreaterOrEqual(t, res.Stats.Rejections[RejectClash], 1)
	assert.GreaterOrEqual(t, minInterChainDistance(res.Model), DefaultClashDistance)
	assert.True(t, logger.HasMessage("debug", "edge rejected"))
	v, ok := logger.Field("edge rejected", "reason")
	require.True(t, ok)
	assert.Equal(t, string(RejectClash), v)
}

func TestAssemble_StoichiometryNeverExceeded(t *testing.T) {
	for _, exhaustive := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Exhaustive = exhaustive
		in, al := prepare(t, fanInputs())
		in = withStoichiometry(t, in, "A1B2")

		res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
		require.NoError(t, err, "exhaustive=%v", exhaustive)
		assert.True(t, res.Satisfied)
		assert.Equal(t, map[string]int{"A": 1, "B": 2}, res.Model.Composition())
		assert.Equal(t, "A1B2", res.Model.Stoichiometry())
		assert.GreaterOrEqual(t, minInterChainDistance(res.Model), DefaultClashDistance)
	}
}

func TestAssemble_OpenLatticeStopsAtDepth(t *testing.T) {
	// Without a stoichiometry the X/Y contacts tile the plane indefinitely.
	cfg := DefaultConfig()
	cfg.MaxDepth = 5
	in, al := prepare(t, fanInputs())
	res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSearchLimitExceeded))
	require.NotNil(t, res)
	assert.Equal(t, 6, res.Model.Len())
	assert.GreaterOrEqual(t, minInterChainDistance(res.Model), DefaultClashDistance)
}

func TestAssemble_SeedFromLowestTarget(t *testing.T) {
	in, al := prepare(t, fanInputs())
	in = withStoichiometry(t, in, "A2B1")
	res, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "B", res.Model.Chain(0).Label)
	assert.Equal(t, "1xy:B", res.Model.Chain(0).SourceKey)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, res.Model.Composition())
	assert.GreaterOrEqual(t, minInterChainDistance(res.Model), DefaultClashDistance)
}

func TestAssemble_HomodimerSatisfied(t *testing.T) {
	for _, exhaustive := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Exhaustive = exhaustive
		in, al := prepare(t, dimerInputs())
		require.Len(t, in.Clusters.Groups, 1)
		in = withStoichiometry(t, in, "A2")

		res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, res.Satisfied)
		assert.Equal(t, 2, res.Model.Len())
	}
}

func TestAssemble_HomodimerCannotReachTrimer(t *testing.T) {
	for _, exhaustive := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Exhaustive = exhaustive
		in, al := prepare(t, dimerInputs())
		in = withStoichiometry(t, in, "A3")

		res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStoichiometryUnsatisfiable))
		assert.True(t, errors.IsWarning(err))
		require.NotNil(t, res)
		require.NotNil(t, res.Model)
		assert.False(t, res.Satisfied)
		assert.Equal(t, 2, res.Model.Len())
		assert.GreaterOrEqual(t, res.Stats.Rejections[RejectClash], 1)
	}
}

func TestAssemble_NoTemplate(t *testing.T) {
	recs := []*chain.Record{
		testutil.Helix("1x", "A", testutil.SeqX, id),
		testutil.Helix("1y", "A", testutil.SeqY, id),
	}
	in, al := prepare(t, recs)
	res, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	assert.Nil(t, res)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAssemblyImpossible))
	assert.False(t, errors.IsWarning(err))
}

func TestAssemble_StoichiometryNamesNoTemplateCluster(t *testing.T) {
	recs := append(xyzInputs(), chain.NewSequenceRecord("more.fa", "W", "CCCCCCCCCCHHHHHHHHHH"))
	in, al := prepare(t, recs)
	in = withStoichiometry(t, in, "D1")
	_, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAssemblyImpossible))
}

func TestAssemble_UnknownLabel(t *testing.T) {
	in, al := prepare(t, xyzInputs())
	in = withStoichiometry(t, in, "A1Q2")
	_, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownClusterLabel))
}

func TestAssemble_ChainLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChainLimit = 2
	in, al := prepare(t, xyzInputs())
	res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Model.Len())
}

func TestAssemble_RMSDRejected(t *testing.T) {
	recs := xyzInputs()
	// Bend the Y copy of 2yz so it no longer superposes onto the Y of 1xy.
	bent := testutil.HelixResidues(testutil.SeqY, id)
	for i := 20; i < len(bent); i++ {
		c := bent[i].Atoms[0].Coord
		bent[i].Atoms[0].Coord = r3.Add(c, r3.Vec{X: 3 + float64(i-20)*0.3})
	}
	recs[5] = chain.NewStructureRecord("2yz", "A", bent)

	in, al := prepare(t, recs)
	res, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Model.Len())
	assert.Equal(t, 1, res.Stats.Rejections[RejectRMSD])
}

func TestAssemble_SuperposeErrorRejected(t *testing.T) {
	recs := xyzInputs()
	// Only two residues of the Y copy in 2yz carry coordinates.
	short := testutil.HelixResidues(testutil.SeqY, id)
	for i := 2; i < len(short); i++ {
		short[i].Atoms = nil
	}
	recs[5] = chain.NewStructureRecord("2yz", "A", short)

	in, al := prepare(t, recs)
	res, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Model.Len())
	assert.Equal(t, 1, res.Stats.Rejections[RejectSuperpose])
}

func TestAssemble_StateLimit(t *testing.T) {
	for _, exhaustive := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Exhaustive = exhaustive
		cfg.MaxStates = 1
		in, al := prepare(t, xyzInputs())
		res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeSearchLimitExceeded))
		assert.True(t, errors.IsWarning(err))
		require.NotNil(t, res)
		assert.Equal(t, 1, res.Model.Len())
	}
}

func TestAssemble_DepthLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 1
	in, al := prepare(t, xyzInputs())
	res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSearchLimitExceeded))
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Model.Len())
}

func TestAssemble_Canceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	in, al := prepare(t, xyzInputs())
	res, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(ctx, in)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSearchLimitExceeded))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Model.Len())
}

func TestAssemble_ExhaustiveMatchesGreedyAndIsDeterministic(t *testing.T) {
	in, al := prepare(t, xyzInputs())
	greedy, err := newTestAssembler(t, DefaultConfig(), al, nil).Assemble(context.Background(), in)
	require.NoError(t, err)

	var first *Result
	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.Exhaustive = true
		cfg.Workers = workers
		res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, ModeExhaustive, res.Stats.Mode)
		assert.Equal(t, greedy.Model.Len(), res.Model.Len())
		if first == nil {
			first = res
			continue
		}
		assert.Equal(t, first.Stats.StatesExplored, res.Stats.StatesExplored)
		for i := 0; i < first.Model.Len(); i++ {
			assert.Equal(t, first.Model.Chain(i).SourceKey, res.Model.Chain(i).SourceKey)
			assert.True(t, first.Model.Chain(i).Transform.ApproxEqual(res.Model.Chain(i).Transform, 0))
		}
	}
}

func TestAssemble_UnnamedClusterGetsNoCopies(t *testing.T) {
	// A second Y is only reachable through an X, and X is not requested.
	for _, exhaustive := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Exhaustive = exhaustive
		in, al := prepare(t, fanInputs())
		in = withStoichiometry(t, in, "B2")
		res, err := newTestAssembler(t, cfg, al, nil).Assemble(context.Background(), in)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStoichiometryUnsatisfiable))
		assert.Equal(t, map[string]int{"B": 1}, res.Model.Composition())
		assert.Equal(t, 3, res.Stats.Rejections[RejectStoichiometry])
	}
}
