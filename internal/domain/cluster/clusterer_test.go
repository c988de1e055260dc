package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

const (
	seqA = "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRVGDGTQDNLSGAEKAVQVKVKALPDAQFEVVHSLAKWKRQTLGQHDFSAGEGLYTHMKALRPDEDRLSPLHSVYVDQWDWERVMGDGERQFSTLKSTVEAIWAGIKATEAAVSEEFGLAPFLPDQIHFVHSQELLSRYPDLDAKGRERAIAKDLGAVFLVGIGGKLSDGHRHDVRAPDYDDWSTPSELGHAGLNGDILVWNPVLEDAFELSSMGIRVDADTLKHQLALTGDEDRLELEWHQALLRGEMPQTIGGGIGQSRLTMLLLQLPHIGQVQCGVWPAACRESVPALL"
	seqB = "GSHMSELKQRFEDLCRRLLEEGKPEEAVRLLEEAAKLAPDSPAVWLALGRALEAAGDLEGAAAAYRRALELDPNDAEALYNLGRVLLRLGRPEEALEAFRRAVELDPKDPAARFNLALVLLEAG"
)

func newTestClusterer(t *testing.T, workers int) *Clusterer {
	t.Helper()
	c, err := NewClusterer(Config{IdentityThreshold: DefaultIdentityThreshold, Workers: workers}, nil, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

// mutate substitutes every step-th residue of s.
func mutate(s string, step int) string {
	b := []byte(s)
	for i := step - 1; i < len(b); i += step {
		if b[i] == 'W' {
			b[i] = 'G'
		} else {
			b[i] = 'W'
		}
	}
	return string(b)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{IdentityThreshold: 0.95}.Validate())
	assert.NoError(t, Config{IdentityThreshold: 1}.Validate())
	for _, thr := range []float64{0, -0.1, 1.01} {
		err := Config{IdentityThreshold: thr}.Validate()
		assert.True(t, errors.IsCode(err, errors.ErrCodeIdentityThresholdInvalid), "threshold %v", thr)
	}
	assert.Error(t, Config{IdentityThreshold: 0.9, Workers: -1}.Validate())
}

func TestCluster_Reflexive(t *testing.T) {
	recs := []*chain.Record{
		chain.NewSequenceRecord("s1", "a", seqA),
		chain.NewSequenceRecord("s2", "a", seqA),
	}
	res, err := newTestClusterer(t, 2).Cluster(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, recs[0], res.Groups[0].Representative)
	assert.Equal(t, recs, res.Groups[0].Members)
}

func TestCluster_SameSourceNeverCompared(t *testing.T) {
	recs := []*chain.Record{
		chain.NewSequenceRecord("dimer", "A", seqA),
		chain.NewSequenceRecord("dimer", "B", seqA),
	}
	res, err := newTestClusterer(t, 1).Cluster(context.Background(), recs)
	require.NoError(t, err)
	assert.Len(t, res.Groups, 2)
	assert.Equal(t, 0, res.Comparisons)
}

// A~B and B~C above the threshold while A and C fall below it: all three
// must share one group.
func TestCluster_Transitive(t *testing.T) {
	a := seqA
	b := mutate(seqA, 25)
	c := mutate(b, 24)
	require.Less(t, GlobalIdentity(a, c).Identity, DefaultIdentityThreshold)
	require.GreaterOrEqual(t, GlobalIdentity(a, b).Identity, DefaultIdentityThreshold)
	require.GreaterOrEqual(t, GlobalIdentity(b, c).Identity, DefaultIdentityThreshold)

	recs := []*chain.Record{
		chain.NewSequenceRecord("s1", "x", a),
		chain.NewSequenceRecord("s2", "x", c),
		chain.NewSequenceRecord("s3", "x", b),
		chain.NewSequenceRecord("s4", "x", seqB),
	}
	res, err := newTestClusterer(t, 4).Cluster(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, res.GroupOf(recs[0]), res.GroupOf(recs[1]))
	assert.Equal(t, res.GroupOf(recs[0]), res.GroupOf(recs[2]))
	assert.NotEqual(t, res.GroupOf(recs[0]), res.GroupOf(recs[3]))
	assert.Equal(t, recs[0], res.Groups[0].Representative)
}

func TestCluster_DeterministicAcrossWorkers(t *testing.T) {
	var recs []*chain.Record
	for i, src := range []string{"p1", "p2", "p3", "p4", "p5"} {
		recs = append(recs,
			chain.NewSequenceRecord(src, "A", mutate(seqA, 60+i)),
			chain.NewSequenceRecord(src, "B", seqB))
	}
	first, err := newTestClusterer(t, 1).Cluster(context.Background(), recs)
	require.NoError(t, err)
	for _, w := range []int{2, 8} {
		again, err := newTestClusterer(t, w).Cluster(context.Background(), recs)
		require.NoError(t, err)
		require.Len(t, again.Groups, len(first.Groups))
		for i := range first.Groups {
			assert.Equal(t, first.Groups[i].Members, again.Groups[i].Members)
			assert.Equal(t, first.Groups[i].Label, again.Groups[i].Label)
		}
	}
}

func TestCluster_LabelsFollowSequenceRecords(t *testing.T) {
	res1 := make([]chain.Residue, 0)
	for _, c := range "GSHMSELK" {
		res1 = append(res1, chain.Residue{Name: chain.ThreeLetter(byte(c))})
	}
	recs := []*chain.Record{
		chain.NewStructureRecord("1abc", "A", res1),
		chain.NewSequenceRecord("seqs.fa", "protB", seqB),
		chain.NewSequenceRecord("seqs.fa", "protA", seqA),
		chain.NewSequenceRecord("extra", "Z", "WWWWCCCCWWWW"),
	}
	res, err := newTestClusterer(t, 2).Cluster(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, res.Groups, 4)

	g, ok := res.ByLabel("A")
	require.True(t, ok)
	assert.Equal(t, recs[1], g.Representative)
	g, ok = res.ByLabel("B")
	require.True(t, ok)
	assert.Equal(t, recs[2], g.Representative)
	g, ok = res.ByLabel("C")
	require.True(t, ok)
	assert.Equal(t, recs[3], g.Representative)
	g, ok = res.ByLabel("D")
	require.True(t, ok)
	assert.Equal(t, recs[0], g.Representative, "structure-only clusters are labelled last")
	assert.Equal(t, []string{"A", "B", "C", "D"}, SortedLabels(res))
	_, ok = res.ByLabel("E")
	assert.False(t, ok)
}

func TestCluster_EmptySequence(t *testing.T) {
	recs := []*chain.Record{chain.NewSequenceRecord("s", "a", "")}
	_, err := newTestClusterer(t, 1).Cluster(context.Background(), recs)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptySequence))
}

func TestCluster_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recs := []*chain.Record{
		chain.NewSequenceRecord("s1", "a", seqA),
		chain.NewSequenceRecord("s2", "a", seqA),
	}
	_, err := newTestClusterer(t, 1).Cluster(ctx, recs)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroup_Structural(t *testing.T) {
	st := chain.NewStructureRecord("1abc", "A", []chain.Residue{{Name: "ALA"}})
	g := &Group{Members: []*chain.Record{chain.NewSequenceRecord("f", "x", "A"), st}}
	assert.Equal(t, []*chain.Record{st}, g.Structural())
}
