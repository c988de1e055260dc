package assembly

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type expansion struct {
	children   []*state
	terminal   bool
	attempts   int
	rejections map[RejectReason]int
}

// expand generates every valid successor of st.  Edges rejected here stay
// rejected in the successors: adding chains only adds clashes and spends
// budget.
func (r *run) expand(ctx context.Context, st *state) expansion {
	out := expansion{rejections: make(map[RejectReason]int)}
	if r.terminal(st) {
		out.terminal = true
		return out
	}

	type valid struct {
		at int
		p  *Placement
	}
	var ok []valid
	dropped := make([]bool, len(st.frontier))
	for i, e := range st.frontier {
		if ctx.Err() != nil {
			return out
		}
		out.attempts++
		p, reason := r.try(ctx, st, e)
		if p == nil {
			out.rejections[reason]++
			dropped[i] = true
			r.reject(e, reason)
			continue
		}
		ok = append(ok, valid{at: i, p: p})
	}
	if len(ok) == 0 {
		out.terminal = true
		return out
	}

	for _, v := range ok {
		child := st.clone()
		child.frontier = child.frontier[:0]
		for i, e := range st.frontier {
			if i != v.at && !dropped[i] {
				child.frontier = append(child.frontier, e)
			}
		}
		child.add(v.p, st.frontier[v.at], r.in.Index)
		out.children = append(out.children, child)
	}
	return out
}

// exhaustive explores the state space level by level.  States of one level
// are expanded in parallel; their successors are merged in level order so
// the outcome does not depend on scheduling.
func (r *run) exhaustive(ctx context.Context, seed *state) (*state, Stats, error) {
	stats := Stats{Mode: ModeExhaustive, StatesExplored: 1, Rejections: make(map[RejectReason]int)}
	best := seed
	visited := map[string]struct{}{seed.key(): {}}
	level := []*state{seed}

	for depth := 0; len(level) > 0; depth++ {
		if ctx.Err() != nil {
			return best, stats, r.limitError(ctx, "", 0)
		}
		if depth >= r.cfg.MaxDepth {
			for _, st := range level {
				if !r.terminal(st) {
					return best, stats, r.limitError(ctx, "max_depth", r.cfg.MaxDepth)
				}
			}
			stats.TerminalStates += len(level)
			break
		}

		results := make([]expansion, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Workers)
		for i, st := range level {
			i, st := i, st
			g.Go(func() error {
				results[i] = r.expand(gctx, st)
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			return best, stats, r.limitError(ctx, "", 0)
		}

		var next []*state
		for _, res := range results {
			stats.Attempts += res.attempts
			for k, n := range res.rejections {
				stats.Rejections[k] += n
			}
			if res.terminal {
				stats.TerminalStates++
			}
			for _, child := range res.children {
				key := child.key()
				if _, seen := visited[key]; seen {
					continue
				}
				if stats.StatesExplored >= r.cfg.MaxStates {
					return best, stats, r.limitError(ctx, "max_states", r.cfg.MaxStates)
				}
				visited[key] = struct{}{}
				stats.StatesExplored++
				if better(child, best, r.targets) {
					best = child
				}
				next = append(next, child)
			}
		}
		level = next
	}
	return best, stats, nil
}
