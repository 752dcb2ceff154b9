package gen

import (
	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/tp"
)

// fold evaluates an expression at build time when every leaf is a
// constant. Results carry two's complement semantics at the declared
// width, comparisons and connectives produce i1.
func (g *Generator) fold(s *scope, x ast.Expr) (ir.Operand, bool) {
	return s.pkgContext.foldExpr(x)
}

func (p *pkgContext) foldExpr(x ast.Expr) (ir.Operand, bool) {
	switch x := x.(type) {
	case ast.ConstExpr:
		return constOperand(x), true
	case *ast.Binary:
		l, ok := p.foldExpr(x.L)
		if !ok {
			return nil, false
		}

		r, ok := p.foldExpr(x.R)
		if !ok {
			return nil, false
		}

		return p.foldBinary(x, l, r)
	case *ast.Logical:
		l, ok := p.foldExpr(x.L)
		if !ok {
			return nil, false
		}

		if x.Op == ast.OpLand && isZero(l) {
			return ir.IntConst{Val: 0, Type: tp.I1}, true
		}
		if x.Op == ast.OpLor && !isZero(l) {
			return ir.IntConst{Val: 1, Type: tp.I1}, true
		}

		r, ok := p.foldExpr(x.R)
		if !ok {
			return nil, false
		}

		v := uint64(0)
		if !isZero(r) {
			v = 1
		}

		return ir.IntConst{Val: v, Type: tp.I1}, true
	case *ast.Unary:
		return p.foldUnary(x)
	case *ast.Cast:
		v, ok := p.foldExpr(x.X)
		if !ok {
			return nil, false
		}

		return p.foldCast(v, x.Type)
	case *ast.CondExpr:
		c, ok := p.foldExpr(x.C)
		if !ok {
			return nil, false
		}

		if isZero(c) {
			return p.foldExpr(x.F)
		}

		return p.foldExpr(x.T)
	default:
		return nil, false
	}
}

func (p *pkgContext) foldBinary(x *ast.Binary, l, r ir.Operand) (ir.Operand, bool) {
	if x.Op.IsComparison() {
		return p.foldCmp(x.Op, l, r), true
	}

	if lf, ok := l.(ir.FloatConst); ok {
		rf := r.(ir.FloatConst)

		var v float64

		switch x.Op {
		case ast.OpAdd:
			v = lf.Val + rf.Val
		case ast.OpSub:
			v = lf.Val - rf.Val
		case ast.OpMul:
			v = lf.Val * rf.Val
		case ast.OpDiv:
			if rf.Val == 0 {
				p.diags.Add(diag.ZeroDivide, x.Pos, "division by zero")
				return nil, false
			}

			v = lf.Val / rf.Val
		default:
			return nil, false
		}

		return ir.FloatConst{Val: v, Type: x.Type}, true
	}

	li := l.(ir.IntConst)
	ri := r.(ir.IntConst)

	d := p.types.At(x.Type)
	signed := d.Kind == tp.KindInt && d.Signed
	bits := int(d.Bits)

	if d.Kind == tp.KindPtr {
		signed, bits = false, 64
	}

	a, b := li.Val, ri.Val

	var v uint64

	switch x.Op {
	case ast.OpAdd:
		v = a + b
	case ast.OpSub:
		v = a - b
	case ast.OpMul:
		v = a * b
	case ast.OpDiv, ast.OpMod:
		if b == 0 {
			p.diags.Add(diag.ZeroDivide, x.Pos, "division by zero")
			return nil, false
		}

		switch {
		case signed && x.Op == ast.OpDiv:
			v = uint64(int64(a) / int64(b))
		case signed:
			v = uint64(int64(a) % int64(b))
		case x.Op == ast.OpDiv:
			v = a / b
		default:
			v = a % b
		}
	case ast.OpAnd:
		v = a & b
	case ast.OpOr:
		v = a | b
	case ast.OpXor:
		v = a ^ b
	case ast.OpShl:
		v = a << (b & 63)
	case ast.OpShr:
		if signed {
			v = uint64(int64(a) >> (b & 63))
		} else {
			v = a >> (b & 63)
		}
	default:
		return nil, false
	}

	return ir.IntConst{Val: normalize(v, bits, signed), Type: x.Type}, true
}

func (p *pkgContext) foldCmp(op ast.Op, l, r ir.Operand) ir.Operand {
	var lt int // -1, 0, 1

	switch lc := l.(type) {
	case ir.FloatConst:
		rc := r.(ir.FloatConst)
		lt = cmpOrd(lc.Val > rc.Val, lc.Val < rc.Val)
	case ir.IntConst:
		rc := r.(ir.IntConst)

		if p.types.IsSigned(lc.Type) {
			lt = cmpOrd(int64(lc.Val) > int64(rc.Val), int64(lc.Val) < int64(rc.Val))
		} else {
			lt = cmpOrd(lc.Val > rc.Val, lc.Val < rc.Val)
		}
	}

	var res bool

	switch op {
	case ast.OpEQ:
		res = lt == 0
	case ast.OpNE:
		res = lt != 0
	case ast.OpLT:
		res = lt < 0
	case ast.OpLE:
		res = lt <= 0
	case ast.OpGT:
		res = lt > 0
	case ast.OpGE:
		res = lt >= 0
	}

	v := uint64(0)
	if res {
		v = 1
	}

	return ir.IntConst{Val: v, Type: tp.I1}
}

func cmpOrd(gt, lt bool) int {
	switch {
	case gt:
		return 1
	case lt:
		return -1
	default:
		return 0
	}
}

func (p *pkgContext) foldUnary(x *ast.Unary) (ir.Operand, bool) {
	switch x.Op {
	case ast.OpPos, ast.OpNeg, ast.OpNot, ast.OpBitNot:
	default:
		return nil, false
	}

	v, ok := p.foldExpr(x.X)
	if !ok {
		return nil, false
	}

	switch x.Op {
	case ast.OpPos:
		return v, true
	case ast.OpNeg:
		if f, ok := v.(ir.FloatConst); ok {
			return ir.FloatConst{Val: -f.Val, Type: x.Type}, true
		}

		i := v.(ir.IntConst)
		d := p.types.At(x.Type)

		return ir.IntConst{Val: normalize(-i.Val, int(d.Bits), d.Signed), Type: x.Type}, true
	case ast.OpNot:
		u := uint64(0)
		if isZero(v) {
			u = 1
		}

		return ir.IntConst{Val: u, Type: tp.I1}, true
	default: // OpBitNot
		if _, ok := v.(ir.FloatConst); ok {
			p.diags.Add(diag.OperatorMisuse, x.Pos, "~ on floating operand")
			return nil, false
		}

		i := v.(ir.IntConst)
		d := p.types.At(x.Type)

		return ir.IntConst{Val: normalize(^i.Val, int(d.Bits), d.Signed), Type: x.Type}, true
	}
}

func (p *pkgContext) foldCast(v ir.Operand, to tp.ID) (ir.Operand, bool) {
	d := p.types.At(to)

	switch v := v.(type) {
	case ir.IntConst:
		switch d.Kind {
		case tp.KindInt:
			return ir.IntConst{Val: normalize(v.Val, int(d.Bits), d.Signed), Type: to}, true
		case tp.KindFloat:
			f := float64(v.Val)
			if p.types.IsSigned(v.Type) {
				f = float64(int64(v.Val))
			}

			return ir.FloatConst{Val: f, Type: to}, true
		case tp.KindPtr:
			return ir.IntConst{Val: v.Val, Type: to}, true
		}
	case ir.FloatConst:
		switch d.Kind {
		case tp.KindInt:
			if d.Signed {
				return ir.IntConst{Val: normalize(uint64(int64(v.Val)), int(d.Bits), true), Type: to}, true
			}

			return ir.IntConst{Val: normalize(uint64(v.Val), int(d.Bits), false), Type: to}, true
		case tp.KindFloat:
			f := v.Val
			if d.Bits == 32 {
				f = float64(float32(f))
			}

			return ir.FloatConst{Val: f, Type: to}, true
		}
	}

	return nil, false
}

// normalize truncates to the given width, sign extending the result
// of a signed type so the canonical form survives reuse.
func normalize(v uint64, bits int, signed bool) uint64 {
	if bits == 0 || bits >= 64 {
		return v
	}

	mask := uint64(1)<<bits - 1
	v &= mask

	if signed && v&(1<<(bits-1)) != 0 {
		v |= ^mask
	}

	return v
}

// initFold folds global initializers into a single constant or an
// address expression over one symbol. Partial results live on its own
// stack, drained before each global is finalized.
type (
	initFold struct {
		stack []initNode
	}

	initNode struct {
		c ir.Operand // set for constants

		sym string // set for address expressions
		off int64
	}
)

func (f *initFold) empty() bool { return len(f.stack) == 0 }

func (f *initFold) push(n initNode) { f.stack = append(f.stack, n) }

func (f *initFold) pop() initNode {
	n := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]

	return n
}

func (f *initFold) fold(p *pkgContext, x ast.Expr) (ir.GlobalInit, bool) {
	ok := f.walk(p, x)
	if !ok {
		// error path, drop whatever is left half built
		f.stack = nil
		return ir.GlobalInit{}, false
	}

	n := f.pop()

	if n.c != nil {
		return ir.GlobalInit{Const: n.c}, true
	}

	return ir.GlobalInit{Sym: n.sym, Off: n.off}, true
}

func (f *initFold) walk(p *pkgContext, x ast.Expr) bool {
	if c, ok := p.foldExpr(x); ok {
		f.push(initNode{c: retype(c, x.TypeID())})
		return true
	}

	switch x := x.(type) {
	case *ast.Unary:
		if x.Op != ast.OpAddr {
			break
		}

		return f.walkAddr(p, x.X)
	case *ast.Ident:
		// arrays decay to the address of their first element
		if x.Global && p.types.Kind(x.Type) == tp.KindArray {
			f.push(initNode{sym: "@" + x.Name})
			return true
		}

		if x.Func {
			f.push(initNode{sym: "@" + x.Name})
			return true
		}
	case *ast.Cast:
		return f.walk(p, x.X)
	case *ast.Binary:
		if x.Op != ast.OpAdd && x.Op != ast.OpSub {
			break
		}

		if !f.walk(p, x.L) || !f.walk(p, x.R) {
			return false
		}

		r := f.pop()
		l := f.pop()

		return f.merge(p, x, l, r)
	}

	p.diags.Add(diag.OperatorMisuse, x.Position(), "initializer is not constant")

	return false
}

func (f *initFold) walkAddr(p *pkgContext, x ast.Expr) bool {
	switch x := x.(type) {
	case *ast.Ident:
		if !x.Global {
			p.diags.Add(diag.OperatorMisuse, x.Pos, "address of a local in an initializer")
			return false
		}

		f.push(initNode{sym: "@" + x.Name})

		return true
	case *ast.Index:
		if !f.walkAddr(p, x.Base) {
			return false
		}

		idx, ok := p.foldExpr(x.Idx)
		ic, isInt := idx.(ir.IntConst)

		if !ok || !isInt {
			p.diags.Add(diag.OperatorMisuse, x.Pos, "initializer subscript is not constant")
			return false
		}

		n := f.pop()
		n.off += int64(ic.Val) * int64(p.types.Sizeof(x.Type))
		f.push(n)

		return true
	default:
		p.diags.Add(diag.OperatorMisuse, x.Position(), "initializer address is not constant")
		return false
	}
}

// merge combines two folded nodes under + or -. At most one side may
// be an address, two symbols never combine.
func (f *initFold) merge(p *pkgContext, x *ast.Binary, l, r initNode) bool {
	if l.sym != "" && r.sym != "" {
		p.diags.Add(diag.OperatorMisuse, x.Pos, "two addresses in one initializer")
		return false
	}

	if l.sym == "" && r.sym == "" { // foldExpr would have taken it
		p.diags.Add(diag.OperatorMisuse, x.Pos, "initializer is not constant")
		return false
	}

	sym := l
	num := r

	if r.sym != "" {
		if x.Op == ast.OpSub {
			p.diags.Add(diag.OperatorMisuse, x.Pos, "negated address in an initializer")
			return false
		}

		sym, num = r, l
	}

	ic, ok := num.c.(ir.IntConst)
	if !ok {
		p.diags.Add(diag.OperatorMisuse, x.Pos, "address offset is not an integer")
		return false
	}

	scale := int64(1)
	if d := p.types.At(x.Type); d.Kind == tp.KindPtr {
		scale = int64(p.types.Sizeof(d.Elem))
	}

	off := int64(ic.Val) * scale
	if x.Op == ast.OpSub {
		off = -off
	}

	f.push(initNode{sym: sym.sym, off: sym.off + off})

	return true
}
