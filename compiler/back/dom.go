package back

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/set"
)

type (
	// Dominators holds immediate dominators computed with the
	// Cooper, Harvey & Kennedy algorithm over postorder indices.
	Dominators struct {
		cfg *CFG

		post  []int // block -> postorder number, entry is the largest
		order []int // postorder sequence of block indices

		Idom []int // block -> block, -1 for entry-unreachable blocks
	}
)

// BuildDominators computes idom for every block reachable from the
// entry. Unreachable blocks are omitted, they are ill formed input.
func BuildDominators(ctx context.Context, cfg *CFG) *Dominators {
	tr := tlog.SpanFromContext(ctx)

	n := len(cfg.Blocks)

	d := &Dominators{
		cfg:  cfg,
		post: make([]int, n),
		Idom: make([]int, n),
	}

	for i := range d.post {
		d.post[i] = -1
		d.Idom[i] = -1
	}

	d.dfs(0)

	if n == 0 {
		return d
	}

	d.Idom[0] = 0

	for changed := true; changed; {
		changed = false

		// reverse postorder, entry excluded
		for k := len(d.order) - 2; k >= 0; k-- {
			b := d.order[k]

			newIdom := -1

			for _, p := range cfg.Pred[b] {
				if d.Idom[p] < 0 {
					continue // not processed yet or unreachable
				}

				if newIdom < 0 {
					newIdom = p
					continue
				}

				newIdom = d.intersect(p, newIdom)
			}

			if newIdom >= 0 && d.Idom[b] != newIdom {
				d.Idom[b] = newIdom
				changed = true
			}
		}
	}

	if tr.If("dump_dom") {
		for i, b := range cfg.Blocks {
			tr.Printw("idom", "block", b.Name, "idom", d.Idom[i], "post", d.post[i])
		}
	}

	return d
}

func (d *Dominators) dfs(i int) {
	d.post[i] = -2 // on stack

	for _, s := range d.cfg.Succ[i] {
		if d.post[s] == -1 {
			d.dfs(s)
		}
	}

	d.post[i] = len(d.order)
	d.order = append(d.order, i)
}

// intersect walks both fingers toward the entry, always advancing the
// one with the smaller postorder number, until they meet.
func (d *Dominators) intersect(u, v int) int {
	for u != v {
		for d.post[u] < d.post[v] {
			u = d.Idom[u]
		}

		for d.post[v] < d.post[u] {
			v = d.Idom[v]
		}
	}

	return u
}

// Reachable reports whether the entry reaches the block.
func (d *Dominators) Reachable(b int) bool {
	return d.post[b] >= 0
}

// Dominators returns the full dominator set of a block, the block
// itself included.
func (d *Dominators) Dominators(b int) set.Bitmap {
	s := set.MakeBitmap(len(d.cfg.Blocks))

	if !d.Reachable(b) {
		return s
	}

	for {
		s.Set(b)

		if b == d.Idom[b] {
			break
		}

		b = d.Idom[b]
	}

	return s
}

// Dominates reports whether a dominates b.
func (d *Dominators) Dominates(a, b int) bool {
	s := d.Dominators(b)
	return s.IsSet(a)
}
