package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/ir"
)

type (
	Site struct {
		Block *ir.Block
		Index int
	}

	// DUInfo maps every virtual register to its defining instruction
	// and its one use site.
	DUInfo struct {
		Def    map[string]Site
		Use    map[string]Site
		NumUse map[string]int

		Alloca map[string]bool
	}
)

func BuildDefUse(ctx context.Context, f *ir.Function) (_ *DUInfo, err error) {
	tr := tlog.SpanFromContext(ctx)

	du := &DUInfo{
		Def:    map[string]Site{},
		Use:    map[string]Site{},
		NumUse: map[string]int{},
		Alloca: map[string]bool{},
	}

	for _, p := range f.Params {
		du.Def[p.Name] = Site{Index: -1}
	}

	for _, b := range f.Blocks {
		for i, x := range b.Instrs {
			if r := ir.Result(x); r != nil {
				if _, ok := du.Def[r.Name]; ok {
					return nil, errors.New("register %v: redefined", r.Name)
				}

				du.Def[r.Name] = Site{Block: b, Index: i}

				if _, ok := x.(ir.Alloca); ok {
					du.Alloca[r.Name] = true
				}
			}

			for _, o := range ir.Uses(x) {
				r, ok := o.(*ir.Reg)
				if !ok || r.IsGlobal() {
					continue
				}

				du.NumUse[r.Name]++
				du.Use[r.Name] = Site{Block: b, Index: i}
			}
		}
	}

	tr.V("dump_defuse").Printw("def use", "func", f.Name, "defs", len(du.Def), "uses", len(du.Use))

	return du, nil
}

// VerifySingleUse checks the precondition the allocator is built on:
// every non alloca register is used exactly once. A failure means a
// pass broke the builder's guarantee, which is a compiler bug.
func (du *DUInfo) VerifySingleUse() error {
	for name := range du.Def {
		if du.Alloca[name] {
			continue
		}

		if n := du.NumUse[name]; n != 1 {
			return errors.New("register %v: %d uses", name, n)
		}
	}

	for name := range du.NumUse {
		if _, ok := du.Def[name]; !ok {
			return errors.New("register %v: used but never defined", name)
		}
	}

	return nil
}
