package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalIdentity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		identity float64
		matches  int
		length   int
	}{
		{"identical", "MKTAYIAK", "MKTAYIAK", 1, 8, 8},
		{"single substitution", "MKTAYIAK", "MKTAWIAK", 7.0 / 8.0, 7, 8},
		{"insertion", "MKTAYIAK", "MKTAYGIAK", 8.0 / 9.0, 8, 9},
		{"disjoint", "AAAA", "CCCC", 0, 0, 4},
		{"empty side", "", "MK", 0, 0, 2},
		{"both empty", "", "", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aln := GlobalIdentity(tt.a, tt.b)
			assert.InDelta(t, tt.identity, aln.Identity, 1e-12)
			assert.Equal(t, tt.matches, aln.Matches)
			assert.Equal(t, tt.length, aln.Length)
		})
	}
}

func TestGlobalIdentity_Pairs(t *testing.T) {
	aln := GlobalIdentity("MKTAYIAK", "MKTAYGIAK")
	require.Len(t, aln.Pairs, 8)
	for _, p := range aln.Pairs {
		assert.Equal(t, "MKTAYIAK"[p.A], "MKTAYGIAK"[p.B])
	}
	assert.Equal(t, Pair{A: 5, B: 6}, aln.Pairs[5])

	// Mismatch columns are paired too.
	sub := GlobalIdentity("ACDE", "ACWE")
	assert.Equal(t, []Pair{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, sub.Pairs)
}

func TestGlobalIdentity_Symmetric(t *testing.T) {
	a, b := "MKTAYIAKQRQISFVKSHFSRQ", "MKTAYIAKQRQISFVKAHFSRQLEER"
	ab := GlobalIdentity(a, b)
	ba := GlobalIdentity(b, a)
	assert.Equal(t, ab.Identity, ba.Identity)
	assert.Equal(t, ab.Length, ba.Length)
}

func TestAlignment_Flipped(t *testing.T) {
	aln := &Alignment{Identity: 0.5, Matches: 1, Length: 2, Pairs: []Pair{{0, 3}, {1, 4}}}
	f := aln.Flipped()
	assert.Equal(t, []Pair{{3, 0}, {4, 1}}, f.Pairs)
	assert.Equal(t, []Pair{{0, 3}, {1, 4}}, aln.Pairs, "receiver must be untouched")
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	assert.True(t, uf.union(3, 4))
	assert.True(t, uf.union(4, 1))
	assert.False(t, uf.union(3, 1))
	assert.Equal(t, 1, uf.find(3))
	assert.Equal(t, 1, uf.find(4))
	assert.Equal(t, 0, uf.find(0))
	assert.Equal(t, 2, uf.find(2))
}

func TestLabel(t *testing.T) {
	tests := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for i, want := range tests {
		assert.Equal(t, want, Label(i), "index %d", i)
	}
	assert.Equal(t, "", Label(-1))
}
