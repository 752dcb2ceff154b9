package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/ir"
)

type (
	// CFG is the per function flow graph. Any mutation of the
	// function invalidates it.
	CFG struct {
		Blocks []*ir.Block
		Index  map[*ir.Block]int

		Succ [][]int
		Pred [][]int
	}
)

func BuildCFG(ctx context.Context, f *ir.Function) (_ *CFG, err error) {
	tr := tlog.SpanFromContext(ctx)

	g := &CFG{
		Blocks: f.Blocks,
		Index:  make(map[*ir.Block]int, len(f.Blocks)),
		Succ:   make([][]int, len(f.Blocks)),
		Pred:   make([][]int, len(f.Blocks)),
	}

	for i, b := range f.Blocks {
		g.Index[b] = i
	}

	link := func(from, to int) {
		g.Succ[from] = append(g.Succ[from], to)
		g.Pred[to] = append(g.Pred[to], from)
	}

	for i, b := range f.Blocks {
		term := b.Term()
		if term == nil {
			return nil, errors.New("block %v: no terminator", b.Name)
		}

		for _, t := range ir.Targets(term) {
			j, ok := g.Index[t]
			if !ok {
				return nil, errors.New("block %v: edge to foreign block %v", b.Name, t.Name)
			}

			link(i, j)
		}
	}

	if tr.If("dump_cfg") {
		for i, b := range f.Blocks {
			tr.Printw("cfg node", "func", f.Name, "block", b.Name, "i", i, "succ", g.Succ[i], "pred", g.Pred[i])
		}
	}

	return g, nil
}
