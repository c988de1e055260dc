package assembly

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/domain/superpose"
)

type fitKey struct {
	moving, target *chain.Record
}

type fitResult struct {
	transform superpose.Transform
	rmsd      float64
	err       error
}

// fitCache memoises the superposition of one structural chain onto another.
// The pose of a template chain relative to a placed chain's source never
// changes during a run, so every branch shares the same results.
type fitCache struct {
	aligner *cluster.Aligner
	mu      sync.Mutex
	fits    map[fitKey]fitResult
}

func newFitCache(aligner *cluster.Aligner) *fitCache {
	return &fitCache{aligner: aligner, fits: make(map[fitKey]fitResult)}
}

// fit returns the transform superposing the CA atoms of moving onto those of
// target, pairing residues through their sequence alignment.
func (f *fitCache) fit(ctx context.Context, moving, target *chain.Record) fitResult {
	if moving == target {
		return fitResult{transform: superpose.Identity()}
	}
	k := fitKey{moving, target}
	f.mu.Lock()
	r, ok := f.fits[k]
	f.mu.Unlock()
	if ok {
		return r
	}

	r = f.compute(ctx, moving, target)
	if ctx.Err() == nil {
		f.mu.Lock()
		f.fits[k] = r
		f.mu.Unlock()
	}
	return r
}

func (f *fitCache) compute(ctx context.Context, moving, target *chain.Record) fitResult {
	aln, err := f.aligner.Align(ctx, moving.Sequence, target.Sequence)
	if err != nil {
		return fitResult{err: err}
	}
	var mv, tg []r3.Vec
	for _, p := range aln.Pairs {
		if p.A >= len(moving.Residues) || p.B >= len(target.Residues) {
			continue
		}
		a, okA := moving.Residues[p.A].CA()
		b, okB := target.Residues[p.B].CA()
		if okA && okB {
			mv = append(mv, a)
			tg = append(tg, b)
		}
	}
	t, rmsd, err := superpose.Superpose(mv, tg)
	return fitResult{transform: t, rmsd: rmsd, err: err}
}

func (f *fitCache) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fits)
}
