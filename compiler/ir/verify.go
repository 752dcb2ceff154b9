package ir

import (
	"tlog.app/go/errors"
)

// Verify checks the structural invariants the backend relies on:
// every block ends in exactly one terminator, terminators come last,
// and every non-alloca local register has one def and one use.
func (m *Module) Verify() error {
	for _, s := range m.Syms {
		f, ok := s.(*Function)
		if !ok || f.Extern() {
			continue
		}

		err := f.Verify()
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	return nil
}

func (f *Function) Verify() error {
	blocks := make(map[*Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blocks[b] = true
	}

	defs := map[string]int{}
	uses := map[string]int{}
	alloca := map[string]bool{}

	for _, b := range f.Blocks {
		if b.Empty() {
			return errors.New("block %v: empty", b.Name)
		}

		for i, x := range b.Instrs {
			if IsTerm(x) != (i == len(b.Instrs)-1) {
				return errors.New("block %v: terminator not last", b.Name)
			}

			for _, t := range Targets(x) {
				if !blocks[t] {
					return errors.New("block %v: edge to foreign block %v", b.Name, t.Name)
				}
			}

			if r := Result(x); r != nil {
				defs[r.Name]++

				if _, ok := x.(Alloca); ok {
					alloca[r.Name] = true
				}
			}

			for _, o := range Uses(x) {
				r, ok := o.(*Reg)
				if !ok || r.IsGlobal() {
					continue
				}

				uses[r.Name]++
			}
		}
	}

	for name, n := range defs {
		if n != 1 {
			return errors.New("register %v: defined %d times", name, n)
		}

		if !alloca[name] && uses[name] != 1 {
			return errors.New("register %v: used %d times", name, uses[name])
		}
	}

	for _, p := range f.Params {
		defs[p.Name]++

		if uses[p.Name] != 1 {
			return errors.New("register %v: used %d times", p.Name, uses[p.Name])
		}
	}

	for name := range uses {
		if defs[name] == 0 {
			return errors.New("register %v: used but never defined", name)
		}
	}

	return nil
}
