package ir

import (
	"github.com/minicc/minicc/compiler/tp"
)

type (
	Module struct {
		Name string

		Syms  []Sym
		index map[string]int

		Types *tp.Pool
	}

	// Sym is a top level symbol: *Function or *GlobalVar.
	Sym interface {
		SymName() string
	}

	Function struct {
		Name string
		Type tp.ID // func type, borrowed from the module pool

		Params []*Reg
		Blocks []*Block

		// RetSlot is the alloca all returns store through; nil for void
		// functions. Reading it happens in the single exit block.
		RetSlot *Reg

		Inline   bool
		Noreturn bool

		Mod *Module // back-reference, not owned
	}

	Block struct {
		Name   string
		Instrs []Instr

		Fn *Function // back-reference, not owned
	}

	// GlobalInit is a folded global initializer: a plain constant, or
	// an address expression over at most one symbol.
	GlobalInit struct {
		Const Operand // IntConst or FloatConst; nil if symbolic
		Sym   string  // @name the address is based on
		Off   int64   // byte offset against Sym
	}

	GlobalVar struct {
		Name string
		Type tp.ID

		Init   *GlobalInit // nil for .bss
		Extern bool

		Mod *Module
	}
)

func NewModule(name string, types *tp.Pool) *Module {
	return &Module{
		Name:  name,
		index: make(map[string]int),
		Types: types,
	}
}

func (m *Module) AddFunc(name string, ftype tp.ID) *Function {
	f := &Function{
		Name: name,
		Type: ftype,
		Mod:  m,
	}

	m.add(f)

	return f
}

func (m *Module) AddGlobalVar(name string, typ tp.ID) *GlobalVar {
	g := &GlobalVar{
		Name: name,
		Type: typ,
		Mod:  m,
	}

	m.add(g)

	return g
}

func (m *Module) GetFunction(name string) *Function {
	i, ok := m.index[name]
	if !ok {
		return nil
	}

	f, _ := m.Syms[i].(*Function)

	return f
}

func (m *Module) GetGlobalVar(name string) *GlobalVar {
	i, ok := m.index[name]
	if !ok {
		return nil
	}

	g, _ := m.Syms[i].(*GlobalVar)

	return g
}

func (m *Module) add(s Sym) {
	m.Syms = append(m.Syms, s)
	m.index[s.SymName()] = len(m.Syms) - 1
}

func (f *Function) SymName() string  { return f.Name }
func (g *GlobalVar) SymName() string { return g.Name }

// Extern reports whether the function has no body.
func (f *Function) Extern() bool { return len(f.Blocks) == 0 }

func (f *Function) ReturnType() tp.ID {
	return f.Mod.Types.At(f.Type).Elem
}

func (f *Function) Variadic() bool {
	return f.Mod.Types.At(f.Type).Variadic
}

func (f *Function) AddBlock(name string) *Block {
	b := &Block{
		Name: name,
		Fn:   f,
	}

	f.Blocks = append(f.Blocks, b)

	return b
}

func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}

	return f.Blocks[0]
}

func (b *Block) Push(x Instr) {
	b.Instrs = append(b.Instrs, x)
}

func (b *Block) Empty() bool { return len(b.Instrs) == 0 }

// Term returns the block terminator, nil if the block is not finished.
func (b *Block) Term() Instr {
	if len(b.Instrs) == 0 {
		return nil
	}

	last := b.Instrs[len(b.Instrs)-1]
	if !IsTerm(last) {
		return nil
	}

	return last
}
