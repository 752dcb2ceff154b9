package gen

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/tp"
)

type (
	Generator struct{}

	pkgContext struct {
		*ir.Module

		types *tp.Pool
		diags *diag.List

		init *initFold
	}

	funContext struct {
		*ir.Function

		cur *ir.Block // nil after a terminator until code follows
		id  int       // fresh register and label counter

		exit    *ir.Block
		retType tp.ID

		brkDst []*ir.Block
		cntDst []*ir.Block
		swtch  []*switchCtx

		labels  map[string]*labelState
		vars    []map[string]varInfo
	}

	switchCtx struct {
		cases   []ir.SwitchCase
		seen    map[uint64]bool
		deflt   *ir.Block
	}

	labelState struct {
		blk     *ir.Block
		placed  bool
		usedPos ast.Pos
	}

	varInfo struct {
		addr *ir.Reg // alloca result or @global, typed pointer to typ
		typ  tp.ID
	}

	scope struct {
		*pkgContext
		*funContext

		from loc.PC
	}
)

func New() *Generator {
	return nil
}

// Build walks the typed AST and produces a well formed module.
func (g *Generator) Build(ctx context.Context, types *tp.Pool, diags *diag.List, f *ast.File) (_ *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "gen: build module", "name", f.Name)
	defer tr.Finish("err", &err)

	p := &pkgContext{
		Module: ir.NewModule(f.Name, types),
		types:  types,
		diags:  diags,
		init:   &initFold{},
	}

	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			err = g.buildFunc(ctx, p, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", d.Name)
			}
		case *ast.VarDecl:
			err = g.buildGlobal(ctx, p, d)
			if err != nil {
				return nil, errors.Wrap(err, "global %v", d.Name)
			}
		default:
			panic(d)
		}
	}

	if !p.init.empty() {
		panic("gen: initializer stack not drained")
	}

	return p.Module, nil
}

func (g *Generator) buildGlobal(ctx context.Context, p *pkgContext, d *ast.VarDecl) error {
	gv := p.GetGlobalVar(d.Name)
	if gv == nil {
		gv = p.AddGlobalVar(d.Name, d.Type)
	}

	gv.Extern = d.Extern && d.Init == nil

	if d.Init == nil {
		return nil
	}

	init, ok := p.init.fold(p, d.Init)
	if !ok {
		return nil // diagnosed inside
	}

	// the folded constant takes the declared type of the variable
	if init.Const != nil && init.Const.TypeID() != d.Type {
		if c, ok := p.foldCast(init.Const, d.Type); ok {
			init.Const = c
		}
	}

	gv.Init = &init

	if !p.init.empty() {
		panic("gen: initializer stack not drained after " + d.Name)
	}

	return nil
}

func (g *Generator) buildFunc(ctx context.Context, p *pkgContext, d *ast.FuncDecl) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "gen: func", "name", d.Name)
	defer tr.Finish("err", &err)

	f := p.GetFunction(d.Name)
	if f == nil {
		f = p.AddFunc(d.Name, d.Type)
	}

	f.Inline = d.Inline
	f.Noreturn = d.Noreturn

	if d.Body == nil {
		return nil
	}

	s := &scope{
		pkgContext: p,
		funContext: &funContext{
			Function: f,
			retType:  p.types.At(d.Type).Elem,
			labels:   map[string]*labelState{},
		},
		from: loc.Caller(0),
	}

	s.pushVars()
	defer s.popVars()

	entry := s.newBlock()
	s.cur = entry

	// pending until the epilog, so returns have a target
	s.exit = &ir.Block{Fn: f}

	if !p.types.IsVoid(s.retType) {
		f.RetSlot = s.alloca(s.retType)
	}

	// spill parameters to the stack so the body can address them
	for _, prm := range d.Params {
		r := s.fresh(prm.Type)
		f.Params = append(f.Params, r)

		slot := s.alloca(prm.Type)
		s.emit(ir.Store{Val: r, Addr: slot})

		s.defineVar(prm.Name, varInfo{addr: slot, typ: prm.Type})
	}

	g.stmt(s, d.Body)

	// epilog: single exit block, resolve gotos
	s.place(s.exit)

	if f.RetSlot != nil {
		v := s.fresh(s.retType)
		s.emit(ir.Load{Res: v, Addr: f.RetSlot})
		s.emit(ir.Ret{Val: v})
	} else {
		s.emit(ir.Ret{})
	}

	for name, l := range s.labels {
		if !l.placed {
			p.diags.Add(diag.UnresolvedLabel, l.usedPos, "%s", name)
		}
	}

	if tr.If("dump_func") {
		tr.Printw("func built", "name", f.Name, "blocks", len(f.Blocks), "scope_from", s.from)
	}

	return nil
}

// naming and cursor helpers

func (s *scope) fresh(typ tp.ID) *ir.Reg {
	r := &ir.Reg{Name: "%" + strconv.Itoa(s.id), Type: typ}
	s.id++

	return r
}

func (s *scope) newBlock() *ir.Block {
	b := s.Function.AddBlock(strconv.Itoa(s.id))
	s.id++

	return b
}

// block makes sure there is a current block to emit into.
func (s *scope) block() *ir.Block {
	if s.cur == nil {
		s.cur = s.newBlock()
	}

	return s.cur
}

func (s *scope) emit(x ir.Instr) {
	b := s.block()
	b.Push(x)

	if ir.IsTerm(x) {
		s.cur = nil
	}
}

// br branches to b unless the current path already terminated.
func (s *scope) br(b *ir.Block) {
	if s.cur == nil {
		return
	}

	s.emit(ir.Br{Then: b})
}

func (s *scope) alloca(typ tp.ID) *ir.Reg {
	r := s.fresh(s.types.Ptr(typ))
	entry := s.Function.Entry()

	// allocas group at the top of the entry block
	at := 0
	for at < len(entry.Instrs) {
		if _, ok := entry.Instrs[at].(ir.Alloca); !ok {
			break
		}
		at++
	}

	entry.Instrs = append(entry.Instrs[:at], append([]ir.Instr{ir.Alloca{Res: r, Elem: typ}}, entry.Instrs[at:]...)...)

	return r
}

func (s *scope) pushVars() { s.vars = append(s.vars, map[string]varInfo{}) }
func (s *scope) popVars()  { s.vars = s.vars[:len(s.vars)-1] }

func (s *scope) defineVar(name string, v varInfo) {
	s.vars[len(s.vars)-1][name] = v
}

func (s *scope) lookupVar(name string) (varInfo, bool) {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if v, ok := s.vars[i][name]; ok {
			return v, true
		}
	}

	return varInfo{}, false
}

// value lowers an expression in rvalue context.
func (g *Generator) value(s *scope, x ast.Expr) ir.Operand {
	if c, ok := g.fold(s, x); ok {
		return retype(c, x.TypeID())
	}

	switch x := x.(type) {
	case ast.ConstExpr:
		return constOperand(x)
	case *ast.Ident:
		if x.Func {
			return &ir.Reg{Name: "@" + x.Name, Type: x.Type}
		}

		if s.types.Kind(x.Type) == tp.KindArray {
			return g.arrayDecay(s, x)
		}

		addr := g.addr(s, x)
		v := s.fresh(x.Type)
		s.emit(ir.Load{Res: v, Addr: addr})

		return v
	case *ast.Binary:
		return g.binary(s, x)
	case *ast.Logical:
		return g.logicalValue(s, x)
	case *ast.Assign:
		return g.assign(s, x, true)
	case *ast.CondExpr:
		return g.condValue(s, x)
	case *ast.Unary:
		return g.unaryValue(s, x)
	case *ast.CallExpr:
		return g.call(s, x, true)
	case *ast.Index:
		if s.types.Kind(x.Type) == tp.KindArray {
			return g.arrayDecay(s, x)
		}

		addr := g.addr(s, x)
		v := s.fresh(x.Type)
		s.emit(ir.Load{Res: v, Addr: addr})

		return v
	case *ast.Cast:
		return g.cast(s, x)
	default:
		panic(x)
	}
}

// addr lowers an expression in lvalue context, producing a pointer.
func (g *Generator) addr(s *scope, x ast.Expr) ir.Operand {
	switch x := x.(type) {
	case *ast.Ident:
		if x.Global || x.Func {
			return &ir.Reg{Name: "@" + x.Name, Type: s.types.Ptr(x.Type)}
		}

		v, ok := s.lookupVar(x.Name)
		if !ok {
			s.diags.Add(diag.Undeclared, x.Pos, "%s", x.Name)
			return s.alloca(x.Type)
		}

		return v.addr
	case *ast.Unary:
		if x.Op == ast.OpDeref {
			return g.value(s, x.X)
		}
	case *ast.Index:
		var base ir.Operand

		if s.types.Kind(x.Base.TypeID()) == tp.KindArray {
			base = g.addr(s, x.Base)
		} else {
			base = g.value(s, x.Base)
		}

		idx := g.value(s, x.Idx)

		r := s.fresh(s.types.Ptr(x.Type))
		s.emit(ir.GetElePtr{
			Res:   r,
			Base:  base,
			Index: idx,
			Scale: s.types.Sizeof(x.Type),
		})

		return r
	}

	s.diags.Add(diag.LvalueRequired, x.Position(), "cannot take the address")

	return s.alloca(x.TypeID())
}

// arrayDecay produces the address of an array expression typed as a
// pointer to its element.
func (g *Generator) arrayDecay(s *scope, x ast.Expr) ir.Operand {
	el := s.types.At(x.TypeID()).Elem
	base := g.addr(s, x)

	r := s.fresh(s.types.Ptr(el))
	s.emit(ir.GetElePtr{Res: r, Base: base})

	return r
}

func (g *Generator) binary(s *scope, x *ast.Binary) ir.Operand {
	if x.Op.IsComparison() {
		c := g.cmp(s, x)
		v := s.fresh(x.Type)
		s.emit(ir.Conv{Op: ir.ConvZext, Res: v, Val: c})

		return v
	}

	typ := x.Type

	// pointer arithmetic scales by the element size
	if s.types.IsPtr(typ) {
		return g.ptrArith(s, x)
	}

	if x.Op == ast.OpSub && s.types.IsPtr(s.decay(x.L.TypeID())) {
		return g.ptrDiff(s, x)
	}

	l := g.value(s, x.L)
	r := g.value(s, x.R)

	op := binOp(x.Op, s.types.IsFloat(typ))
	if x.Op == ast.OpShr && s.types.IsSigned(typ) {
		op = ir.OpAshr
	}

	res := s.fresh(typ)
	s.emit(ir.Bin{Op: op, Res: res, L: l, R: r})

	return res
}

func (g *Generator) ptrArith(s *scope, x *ast.Binary) ir.Operand {
	l, r := x.L, x.R
	if s.types.IsPtr(s.decay(r.TypeID())) {
		l, r = r, l // int + ptr
	}

	el := s.types.At(s.decay(l.TypeID())).Elem
	size := s.types.Sizeof(el)

	pv := g.value(s, l)
	iv := g.value(s, r)

	scaled := g.scaleIndex(s, iv, size)

	res := s.fresh(x.Type)
	s.emit(ir.Bin{Op: binOp(x.Op, false), Res: res, L: pv, R: scaled})

	return res
}

func (g *Generator) ptrDiff(s *scope, x *ast.Binary) ir.Operand {
	el := s.types.At(s.decay(x.L.TypeID())).Elem
	size := s.types.Sizeof(el)

	l := g.value(s, x.L)
	r := g.value(s, x.R)

	d := s.fresh(tp.I64)
	s.emit(ir.Bin{Op: ir.OpSub, Res: d, L: l, R: r})

	if size == 1 {
		return d
	}

	q := s.fresh(tp.I64)
	s.emit(ir.Bin{Op: ir.OpDiv, Res: q, L: d, R: ir.IntConst{Val: size, Type: tp.I64}})

	return q
}

func (g *Generator) scaleIndex(s *scope, iv ir.Operand, size uint64) ir.Operand {
	if size == 1 {
		return iv
	}

	if c, ok := iv.(ir.IntConst); ok {
		return ir.IntConst{Val: c.Val * size, Type: c.Type}
	}

	m := s.fresh(iv.TypeID())
	s.emit(ir.Bin{Op: ir.OpMul, Res: m, L: iv, R: ir.IntConst{Val: size, Type: iv.TypeID()}})

	return m
}

// cmp lowers a comparison to a cmp instruction producing i1.
func (g *Generator) cmp(s *scope, x *ast.Binary) *ir.Reg {
	l := g.value(s, x.L)
	r := g.value(s, x.R)

	res := s.fresh(tp.I1)
	s.emit(ir.Cmp{Op: cmpOp(x.Op), Res: res, L: l, R: r})

	return res
}

func (g *Generator) assign(s *scope, x *ast.Assign, wantValue bool) ir.Operand {
	v := g.value(s, x.R)
	addr := g.addr(s, x.L)

	s.emit(ir.Store{Val: v, Addr: addr})

	if !wantValue {
		return nil
	}

	// constants can be reused freely, registers are single use
	switch v.(type) {
	case ir.IntConst, ir.FloatConst:
		return v
	}

	re := g.addr(s, x.L)
	rv := s.fresh(x.Type)
	s.emit(ir.Load{Res: rv, Addr: re})

	return rv
}

func (g *Generator) unaryValue(s *scope, x *ast.Unary) ir.Operand {
	switch x.Op {
	case ast.OpPos:
		return g.value(s, x.X)
	case ast.OpNeg:
		v := g.value(s, x.X)
		res := s.fresh(x.Type)

		if s.types.IsFloat(x.Type) {
			s.emit(ir.Bin{Op: ir.OpFsub, Res: res, L: ir.FloatConst{Val: 0, Type: x.Type}, R: v})
		} else {
			s.emit(ir.Bin{Op: ir.OpSub, Res: res, L: ir.IntConst{Val: 0, Type: x.Type}, R: v})
		}

		return res
	case ast.OpNot:
		v := g.value(s, x.X)

		c := s.fresh(tp.I1)
		s.emit(ir.Cmp{Op: ir.CmpEQ, Res: c, L: v, R: zeroOf(s, v.TypeID())})

		res := s.fresh(x.Type)
		s.emit(ir.Conv{Op: ir.ConvZext, Res: res, Val: c})

		return res
	case ast.OpBitNot:
		v := g.value(s, x.X)

		res := s.fresh(x.Type)
		s.emit(ir.Bin{Op: ir.OpXor, Res: res, L: v, R: ir.IntConst{Val: ^uint64(0), Type: x.Type}})

		return res
	case ast.OpDeref:
		addr := g.value(s, x.X)

		res := s.fresh(x.Type)
		s.emit(ir.Load{Res: res, Addr: addr})

		return res
	case ast.OpAddr:
		return g.addr(s, x.X)
	case ast.OpInc, ast.OpDec:
		return g.incDec(s, x, true)
	default:
		panic(x)
	}
}

// incDec lowers ++ and --. The old value loads separately from the
// one feeding the add, each load register is used exactly once.
func (g *Generator) incDec(s *scope, x *ast.Unary, wantValue bool) ir.Operand {
	var keep *ir.Reg

	if wantValue && x.Post {
		keep = s.fresh(x.Type)
		s.emit(ir.Load{Res: keep, Addr: g.addr(s, x.X)})
	}

	old := s.fresh(x.Type)
	s.emit(ir.Load{Res: old, Addr: g.addr(s, x.X)})

	op := ir.OpAdd
	if x.Op == ast.OpDec {
		op = ir.OpSub
	}

	var step ir.Operand

	switch {
	case s.types.IsPtr(x.Type):
		el := s.types.At(x.Type).Elem
		step = ir.IntConst{Val: s.types.Sizeof(el), Type: tp.I64}
	case s.types.IsFloat(x.Type):
		op = ir.OpFadd
		if x.Op == ast.OpDec {
			op = ir.OpFsub
		}

		step = ir.FloatConst{Val: 1, Type: x.Type}
	default:
		step = ir.IntConst{Val: 1, Type: x.Type}
	}

	nv := s.fresh(x.Type)
	s.emit(ir.Bin{Op: op, Res: nv, L: old, R: step})
	s.emit(ir.Store{Val: nv, Addr: g.addr(s, x.X)})

	if !wantValue {
		return nil
	}

	if x.Post {
		return keep
	}

	rv := s.fresh(x.Type)
	s.emit(ir.Load{Res: rv, Addr: g.addr(s, x.X)})

	return rv
}

func (g *Generator) call(s *scope, x *ast.CallExpr, wantValue bool) ir.Operand {
	callee := g.callee(s, x.Fn)

	args := make([]ir.Operand, len(x.Args))
	for i, a := range x.Args {
		args[i] = g.value(s, a)
	}

	ftype := s.decay(x.Fn.TypeID())
	if s.types.IsPtr(ftype) {
		ftype = s.types.At(ftype).Elem
	}

	c := ir.Call{Callee: callee, FType: ftype, Args: args}

	if wantValue && !s.types.IsVoid(x.Type) {
		c.Res = s.fresh(x.Type)
	}

	s.emit(c)

	return c.Res
}

func (g *Generator) callee(s *scope, fn ast.Expr) ir.Operand {
	if id, ok := fn.(*ast.Ident); ok && id.Func {
		return &ir.Reg{Name: "@" + id.Name, Type: id.Type}
	}

	return g.value(s, fn)
}

func (g *Generator) cast(s *scope, x *ast.Cast) ir.Operand {
	v := g.value(s, x.X)

	from := s.decay(x.X.TypeID())
	to := x.Type

	op, need := convOp(s.types, from, to)
	if !need {
		return retype(v, to)
	}

	res := s.fresh(to)
	s.emit(ir.Conv{Op: op, Res: res, Val: v})

	return res
}

// effects lowers an expression for its side effects only, so that no
// dead register definition is left behind.
func (g *Generator) effects(s *scope, x ast.Expr) {
	switch x := x.(type) {
	case ast.ConstExpr:
	case *ast.Ident:
	case *ast.Binary:
		g.effects(s, x.L)
		g.effects(s, x.R)
	case *ast.Logical:
		cont := s.newBlock()
		mid := s.newBlock()

		if x.Op == ast.OpLand {
			g.cond(s, x.L, mid, cont)
		} else {
			g.cond(s, x.L, cont, mid)
		}

		s.cur = mid
		g.effects(s, x.R)
		s.br(cont)

		s.cur = cont
	case *ast.Assign:
		g.assign(s, x, false)
	case *ast.CondExpr:
		tb := s.newBlock()
		fb := s.newBlock()
		cont := s.newBlock()

		g.cond(s, x.C, tb, fb)

		s.cur = tb
		g.effects(s, x.T)
		s.br(cont)

		s.cur = fb
		g.effects(s, x.F)
		s.br(cont)

		s.cur = cont
	case *ast.Unary:
		switch x.Op {
		case ast.OpInc, ast.OpDec:
			g.incDec(s, x, false)
		default:
			g.effects(s, x.X)
		}
	case *ast.CallExpr:
		g.call(s, x, false)
	case *ast.Index:
		g.effects(s, x.Base)
		g.effects(s, x.Idx)
	case *ast.Cast:
		g.effects(s, x.X)
	default:
		panic(x)
	}
}

// cond lowers an expression as a branch condition.
func (g *Generator) cond(s *scope, x ast.Expr, t, f *ir.Block) {
	if c, ok := g.fold(s, x); ok {
		if isZero(c) {
			s.br(f)
		} else {
			s.br(t)
		}

		return
	}

	switch x := x.(type) {
	case *ast.Logical:
		mid := s.newBlock()

		if x.Op == ast.OpLand {
			g.cond(s, x.L, mid, f)
		} else {
			g.cond(s, x.L, t, mid)
		}

		s.cur = mid
		g.cond(s, x.R, t, f)

		return
	case *ast.Binary:
		if x.Op.IsComparison() {
			c := g.cmp(s, x)
			s.emit(ir.Br{Cond: c, Then: t, Else: f})

			return
		}
	case *ast.Unary:
		if x.Op == ast.OpNot {
			g.cond(s, x.X, f, t)
			return
		}
	}

	v := g.value(s, x)

	c := s.fresh(tp.I1)
	s.emit(ir.Cmp{Op: ir.CmpNE, Res: c, L: v, R: zeroOf(s, v.TypeID())})
	s.emit(ir.Br{Cond: c, Then: t, Else: f})
}

// logicalValue materializes a && b or a || b as 0 or 1 through a
// stack temporary, no phi needed.
func (g *Generator) logicalValue(s *scope, x *ast.Logical) ir.Operand {
	tmp := s.alloca(x.Type)

	tb := s.newBlock()
	fb := s.newBlock()
	cont := s.newBlock()

	g.cond(s, x, tb, fb)

	s.cur = tb
	s.emit(ir.Store{Val: ir.IntConst{Val: 1, Type: x.Type}, Addr: tmp})
	s.br(cont)

	s.cur = fb
	s.emit(ir.Store{Val: ir.IntConst{Val: 0, Type: x.Type}, Addr: tmp})
	s.br(cont)

	s.cur = cont

	v := s.fresh(x.Type)
	s.emit(ir.Load{Res: v, Addr: tmp})

	return v
}

// condValue lowers c ? a : b. Constant arms fold to a select, the
// general case goes through a stack temporary.
func (g *Generator) condValue(s *scope, x *ast.CondExpr) ir.Operand {
	tc, tok := g.fold(s, x.T)
	fc, fok := g.fold(s, x.F)

	if tok && fok {
		v := g.value(s, x.C)

		c := s.fresh(tp.I1)
		s.emit(ir.Cmp{Op: ir.CmpNE, Res: c, L: v, R: zeroOf(s, v.TypeID())})

		res := s.fresh(x.Type)
		s.emit(ir.Select{Res: res, Cond: c, T: retype(tc, x.Type), F: retype(fc, x.Type)})

		return res
	}

	tmp := s.alloca(x.Type)

	tb := s.newBlock()
	fb := s.newBlock()
	cont := s.newBlock()

	g.cond(s, x.C, tb, fb)

	s.cur = tb
	s.emit(ir.Store{Val: g.value(s, x.T), Addr: tmp})
	s.br(cont)

	s.cur = fb
	s.emit(ir.Store{Val: g.value(s, x.F), Addr: tmp})
	s.br(cont)

	s.cur = cont

	v := s.fresh(x.Type)
	s.emit(ir.Load{Res: v, Addr: tmp})

	return v
}

// helpers

func (s *scope) decay(t tp.ID) tp.ID {
	d := s.types.At(t)
	if d.Kind == tp.KindArray {
		return s.types.Ptr(d.Elem)
	}

	return t
}

func constOperand(x ast.ConstExpr) ir.Operand {
	if x.Float {
		return ir.FloatConst{Val: x.F, Type: x.Type}
	}

	return ir.IntConst{Val: x.U, Type: x.Type}
}

func zeroOf(s *scope, t tp.ID) ir.Operand {
	if s.types.IsFloat(t) {
		return ir.FloatConst{Val: 0, Type: t}
	}

	return ir.IntConst{Val: 0, Type: t}
}

func isZero(o ir.Operand) bool {
	switch o := o.(type) {
	case ir.IntConst:
		return o.Val == 0
	case ir.FloatConst:
		return o.Val == 0
	default:
		return false
	}
}

// retype rebinds a constant to the wanted type. Registers keep theirs.
func retype(o ir.Operand, t tp.ID) ir.Operand {
	switch o := o.(type) {
	case ir.IntConst:
		return ir.IntConst{Val: o.Val, Type: t}
	case ir.FloatConst:
		return ir.FloatConst{Val: o.Val, Type: t}
	default:
		return o
	}
}

func binOp(op ast.Op, float bool) ir.BinOp {
	if float {
		switch op {
		case ast.OpAdd:
			return ir.OpFadd
		case ast.OpSub:
			return ir.OpFsub
		case ast.OpMul:
			return ir.OpFmul
		case ast.OpDiv:
			return ir.OpFdiv
		}

		panic(op)
	}

	switch op {
	case ast.OpAdd:
		return ir.OpAdd
	case ast.OpSub:
		return ir.OpSub
	case ast.OpMul:
		return ir.OpMul
	case ast.OpDiv:
		return ir.OpDiv
	case ast.OpMod:
		return ir.OpMod
	case ast.OpAnd:
		return ir.OpAnd
	case ast.OpOr:
		return ir.OpOr
	case ast.OpXor:
		return ir.OpXor
	case ast.OpShl:
		return ir.OpShl
	case ast.OpShr:
		return ir.OpLshr // caller picks ashr for signed
	default:
		panic(op)
	}
}

func cmpOp(op ast.Op) ir.CmpOp {
	switch op {
	case ast.OpEQ:
		return ir.CmpEQ
	case ast.OpNE:
		return ir.CmpNE
	case ast.OpLT:
		return ir.CmpLT
	case ast.OpLE:
		return ir.CmpLE
	case ast.OpGT:
		return ir.CmpGT
	case ast.OpGE:
		return ir.CmpGE
	default:
		panic(op)
	}
}

// convOp picks the conversion between two scalar types. need is false
// when the representation does not change.
func convOp(types *tp.Pool, from, to tp.ID) (op ir.ConvOp, need bool) {
	if from == to {
		return 0, false
	}

	fd, td := types.At(from), types.At(to)

	switch {
	case fd.Kind == tp.KindPtr && td.Kind == tp.KindPtr:
		return ir.ConvBitcast, false
	case fd.Kind == tp.KindPtr && td.Kind == tp.KindInt:
		return ir.ConvPtrtoI, true
	case fd.Kind == tp.KindInt && td.Kind == tp.KindPtr:
		return ir.ConvItoPtr, true
	case fd.Kind == tp.KindInt && td.Kind == tp.KindInt:
		switch {
		case td.Bits < fd.Bits:
			return ir.ConvTrunc, true
		case td.Bits == fd.Bits:
			return 0, false
		case fd.Signed:
			return ir.ConvSext, true
		default:
			return ir.ConvZext, true
		}
	case fd.Kind == tp.KindInt && td.Kind == tp.KindFloat:
		if fd.Signed {
			return ir.ConvStoF, true
		}

		return ir.ConvUtoF, true
	case fd.Kind == tp.KindFloat && td.Kind == tp.KindInt:
		if td.Signed {
			return ir.ConvFtoS, true
		}

		return ir.ConvFtoU, true
	case fd.Kind == tp.KindFloat && td.Kind == tp.KindFloat:
		if td.Bits < fd.Bits {
			return ir.ConvFtrunc, true
		}

		return ir.ConvFext, true
	default:
		return ir.ConvBitcast, true
	}
}
