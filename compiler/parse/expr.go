package parse

import (
	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/tp"
)

func (p *Parser) expr() (ast.Expr, error) {
	return p.assignExpr()
}

func (p *Parser) assignExpr() (ast.Expr, error) {
	l, err := p.condExpr()
	if err != nil {
		return nil, err
	}

	t := p.tok()
	if !p.eat("=") {
		return l, nil
	}

	r, err := p.assignExpr()
	if err != nil {
		return nil, err
	}

	if !p.isLvalue(l) {
		p.diags.Add(diag.LvalueRequired, t.pos, "left side of assignment")
	}

	r = p.convert(r, l.TypeID())

	return &ast.Assign{L: l, R: r, Type: l.TypeID(), Pos: t.pos}, nil
}

func (p *Parser) condExpr() (ast.Expr, error) {
	c, err := p.lorExpr()
	if err != nil {
		return nil, err
	}

	t := p.tok()
	if !p.eat("?") {
		return c, nil
	}

	x, err := p.expr()
	if err != nil {
		return nil, err
	}

	err = p.expect(":")
	if err != nil {
		return nil, err
	}

	y, err := p.condExpr()
	if err != nil {
		return nil, err
	}

	typ := p.usual(x.TypeID(), y.TypeID())

	return &ast.CondExpr{
		C:    c,
		T:    p.convert(x, typ),
		F:    p.convert(y, typ),
		Type: typ,
		Pos:  t.pos,
	}, nil
}

func (p *Parser) lorExpr() (ast.Expr, error) {
	l, err := p.landExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()
		if !p.eat("||") {
			return l, nil
		}

		r, err := p.landExpr()
		if err != nil {
			return nil, err
		}

		l = &ast.Logical{Op: ast.OpLor, L: l, R: r, Type: tp.I32, Pos: t.pos}
	}
}

func (p *Parser) landExpr() (ast.Expr, error) {
	l, err := p.orExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()
		if !p.eat("&&") {
			return l, nil
		}

		r, err := p.orExpr()
		if err != nil {
			return nil, err
		}

		l = &ast.Logical{Op: ast.OpLand, L: l, R: r, Type: tp.I32, Pos: t.pos}
	}
}

func (p *Parser) orExpr() (ast.Expr, error) {
	return p.binLevel([]string{"|"}, []ast.Op{ast.OpOr}, p.xorExpr, true)
}

func (p *Parser) xorExpr() (ast.Expr, error) {
	return p.binLevel([]string{"^"}, []ast.Op{ast.OpXor}, p.andExpr, true)
}

func (p *Parser) andExpr() (ast.Expr, error) {
	return p.binLevel([]string{"&"}, []ast.Op{ast.OpAnd}, p.eqExpr, true)
}

func (p *Parser) eqExpr() (ast.Expr, error) {
	l, err := p.relExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		var op ast.Op
		switch {
		case p.eat("=="):
			op = ast.OpEQ
		case p.eat("!="):
			op = ast.OpNE
		default:
			return l, nil
		}

		r, err := p.relExpr()
		if err != nil {
			return nil, err
		}

		l, r = p.balance(l, r, t.pos)
		l = &ast.Binary{Op: op, L: l, R: r, Type: tp.I32, Pos: t.pos}
	}
}

func (p *Parser) relExpr() (ast.Expr, error) {
	l, err := p.shiftExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		var op ast.Op
		switch {
		case p.eat("<="):
			op = ast.OpLE
		case p.eat(">="):
			op = ast.OpGE
		case p.eat("<"):
			op = ast.OpLT
		case p.eat(">"):
			op = ast.OpGT
		default:
			return l, nil
		}

		r, err := p.shiftExpr()
		if err != nil {
			return nil, err
		}

		l, r = p.balance(l, r, t.pos)
		l = &ast.Binary{Op: op, L: l, R: r, Type: tp.I32, Pos: t.pos}
	}
}

func (p *Parser) shiftExpr() (ast.Expr, error) {
	l, err := p.addExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		var op ast.Op
		switch {
		case p.eat("<<"):
			op = ast.OpShl
		case p.eat(">>"):
			op = ast.OpShr
		default:
			return l, nil
		}

		r, err := p.addExpr()
		if err != nil {
			return nil, err
		}

		l = p.requireInt(l, t.pos)
		r = p.requireInt(r, t.pos)

		// the left operand alone decides the result type
		lt := p.promote(l.TypeID())
		l = &ast.Binary{Op: op, L: p.convert(l, lt), R: p.convert(r, p.promote(r.TypeID())), Type: lt, Pos: t.pos}
	}
}

func (p *Parser) addExpr() (ast.Expr, error) {
	l, err := p.mulExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		var op ast.Op
		switch {
		case p.eat("+"):
			op = ast.OpAdd
		case p.eat("-"):
			op = ast.OpSub
		default:
			return l, nil
		}

		r, err := p.mulExpr()
		if err != nil {
			return nil, err
		}

		l = p.addSub(op, l, r, t.pos)
	}
}

func (p *Parser) addSub(op ast.Op, l, r ast.Expr, pos ast.Pos) ast.Expr {
	lt, rt := p.decay(l.TypeID()), p.decay(r.TypeID())

	switch {
	case p.types.IsPtr(lt) && p.types.IsInt(rt):
		return &ast.Binary{Op: op, L: l, R: p.convert(r, tp.I64), Type: lt, Pos: pos}
	case op == ast.OpAdd && p.types.IsInt(lt) && p.types.IsPtr(rt):
		return &ast.Binary{Op: op, L: p.convert(l, tp.I64), R: r, Type: rt, Pos: pos}
	case op == ast.OpSub && p.types.IsPtr(lt) && p.types.IsPtr(rt):
		return &ast.Binary{Op: op, L: l, R: r, Type: tp.I64, Pos: pos}
	case p.types.IsPtr(lt) || p.types.IsPtr(rt):
		p.diags.Add(diag.OperatorMisuse, pos, "invalid pointer arithmetic")
		return l
	}

	l, r = p.balance(l, r, pos)

	return &ast.Binary{Op: op, L: l, R: r, Type: l.TypeID(), Pos: pos}
}

func (p *Parser) mulExpr() (ast.Expr, error) {
	l, err := p.castExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		var op ast.Op
		switch {
		case p.eat("*"):
			op = ast.OpMul
		case p.eat("/"):
			op = ast.OpDiv
		case p.eat("%"):
			op = ast.OpMod
		default:
			return l, nil
		}

		r, err := p.castExpr()
		if err != nil {
			return nil, err
		}

		if op == ast.OpMod {
			l = p.requireInt(l, t.pos)
			r = p.requireInt(r, t.pos)
		}

		l, r = p.balance(l, r, t.pos)
		l = &ast.Binary{Op: op, L: l, R: r, Type: l.TypeID(), Pos: t.pos}
	}
}

func (p *Parser) castExpr() (ast.Expr, error) {
	t := p.tok()

	if t.text == "(" && p.typeAfterParen() {
		p.next()

		typ, err := p.typeName()
		if err != nil {
			return nil, err
		}

		err = p.expect(")")
		if err != nil {
			return nil, err
		}

		x, err := p.castExpr()
		if err != nil {
			return nil, err
		}

		return &ast.Cast{X: x, Type: typ, Pos: t.pos}, nil
	}

	return p.unaryExpr()
}

func (p *Parser) typeAfterParen() bool {
	n := p.peek(1)
	if n.kind != tKeyword {
		return false
	}

	switch n.text {
	case "void", "char", "short", "int", "long", "signed", "unsigned", "float", "double":
		return true
	}

	return false
}

func (p *Parser) typeName() (tp.ID, error) {
	spec, err := p.declSpec()
	if err != nil {
		return tp.None, err
	}

	typ := spec.typ
	for p.eat("*") {
		typ = p.types.Ptr(typ)
	}

	return typ, nil
}

func (p *Parser) unaryExpr() (ast.Expr, error) {
	t := p.tok()

	var op ast.Op
	switch {
	case p.eat("+"):
		op = ast.OpPos
	case p.eat("-"):
		op = ast.OpNeg
	case p.eat("!"):
		op = ast.OpNot
	case p.eat("~"):
		op = ast.OpBitNot
	case p.eat("*"):
		op = ast.OpDeref
	case p.eat("&"):
		op = ast.OpAddr
	case p.eat("++"):
		op = ast.OpInc
	case p.eat("--"):
		op = ast.OpDec
	case t.kind == tKeyword && t.text == "sizeof":
		return p.sizeofExpr()
	default:
		return p.postfixExpr()
	}

	x, err := p.castExpr()
	if err != nil {
		return nil, err
	}

	return p.unary(op, x, false, t.pos), nil
}

func (p *Parser) unary(op ast.Op, x ast.Expr, post bool, pos ast.Pos) ast.Expr {
	xt := x.TypeID()

	switch op {
	case ast.OpPos:
		if !p.isArith(xt) {
			p.diags.Add(diag.OperatorMisuse, pos, "unary + on non arithmetic operand")
			return x
		}

		return p.convert(x, p.promote(xt))
	case ast.OpNeg:
		if !p.isArith(xt) {
			p.diags.Add(diag.OperatorMisuse, pos, "unary - on non arithmetic operand")
			return x
		}

		typ := p.promote(xt)

		return &ast.Unary{Op: op, X: p.convert(x, typ), Type: typ, Pos: pos}
	case ast.OpNot:
		return &ast.Unary{Op: op, X: x, Type: tp.I32, Pos: pos}
	case ast.OpBitNot:
		if p.types.IsFloat(xt) {
			p.diags.Add(diag.OperatorMisuse, pos, "~ on floating operand")
			return x
		}

		typ := p.promote(xt)

		return &ast.Unary{Op: op, X: p.convert(x, typ), Type: typ, Pos: pos}
	case ast.OpDeref:
		dt := p.decay(xt)
		if !p.types.IsPtr(dt) {
			p.diags.Add(diag.OperatorMisuse, pos, "* on non pointer operand")
			return x
		}

		return &ast.Unary{Op: op, X: x, Type: p.types.At(dt).Elem, Pos: pos}
	case ast.OpAddr:
		if !p.isLvalue(x) {
			p.diags.Add(diag.LvalueRequired, pos, "operand of &")
			return x
		}

		return &ast.Unary{Op: op, X: x, Type: p.types.Ptr(xt), Pos: pos}
	case ast.OpInc, ast.OpDec:
		if !p.isLvalue(x) {
			p.diags.Add(diag.LvalueRequired, pos, "operand of ++/--")
			return x
		}

		return &ast.Unary{Op: op, X: x, Post: post, Type: xt, Pos: pos}
	default:
		panic("parse: bad unary op")
	}
}

func (p *Parser) sizeofExpr() (ast.Expr, error) {
	t := p.tok()
	p.next()

	var typ tp.ID

	if p.tok().text == "(" && p.typeAfterParen() {
		p.next()

		var err error
		typ, err = p.typeName()
		if err != nil {
			return nil, err
		}

		err = p.expect(")")
		if err != nil {
			return nil, err
		}
	} else {
		x, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}

		typ = x.TypeID()
	}

	return ast.ConstExpr{U: p.types.Sizeof(typ), Type: tp.U64, Pos: t.pos}, nil
}

func (p *Parser) postfixExpr() (ast.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		switch {
		case p.eat("("):
			x, err = p.callRest(x, t.pos)
			if err != nil {
				return nil, err
			}
		case p.eat("["):
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}

			err = p.expect("]")
			if err != nil {
				return nil, err
			}

			bt := p.decay(x.TypeID())
			if !p.types.IsPtr(bt) {
				p.diags.Add(diag.OperatorMisuse, t.pos, "subscript of non pointer")
				continue
			}

			x = &ast.Index{
				Base: x,
				Idx:  p.convert(idx, tp.I64),
				Type: p.types.At(bt).Elem,
				Pos:  t.pos,
			}
		case p.eat("++"):
			x = p.unary(ast.OpInc, x, true, t.pos)
		case p.eat("--"):
			x = p.unary(ast.OpDec, x, true, t.pos)
		default:
			return x, nil
		}
	}
}

func (p *Parser) callRest(fn ast.Expr, pos ast.Pos) (ast.Expr, error) {
	ft := fn.TypeID()
	if p.types.IsPtr(ft) {
		ft = p.types.At(ft).Elem
	}

	if p.types.Kind(ft) != tp.KindFunc {
		p.diags.Add(diag.OperatorMisuse, pos, "call of non function")
	}

	var args []ast.Expr

	if !p.eat(")") {
		for {
			a, err := p.assignExpr()
			if err != nil {
				return nil, err
			}

			args = append(args, a)

			if !p.eat(",") {
				break
			}
		}

		err := p.expect(")")
		if err != nil {
			return nil, err
		}
	}

	ret := tp.I32

	if p.types.Kind(ft) == tp.KindFunc {
		fd := p.types.At(ft)
		ret = fd.Elem

		if len(args) < len(fd.Params) || len(args) > len(fd.Params) && !fd.Variadic {
			p.diags.Add(diag.TypeMismatch, pos, "wrong number of arguments: %d for %d", len(args), len(fd.Params))
		}

		for i := range args {
			if i < len(fd.Params) {
				args[i] = p.convert(args[i], fd.Params[i])
			} else {
				args[i] = p.defaultPromote(args[i])
			}
		}
	}

	return &ast.CallExpr{Fn: fn, Args: args, Type: ret, Pos: pos}, nil
}

func (p *Parser) primary() (ast.Expr, error) {
	t := p.tok()

	switch {
	case t.kind == tNumber:
		p.next()

		return ast.ConstExpr{U: t.ival, F: t.fval, Float: t.float, Type: t.typ, Pos: t.pos}, nil
	case t.kind == tIdent:
		p.next()

		s, ok := p.lookup(t.text)
		if !ok {
			p.diags.Add(diag.Undeclared, t.pos, "%s", t.text)
			s = symbol{typ: tp.I32}
		}

		return &ast.Ident{
			Name:   t.text,
			Type:   s.typ,
			Global: s.global,
			Func:   s.fn,
			Pos:    t.pos,
		}, nil
	case p.eat("("):
		x, err := p.expr()
		if err != nil {
			return nil, err
		}

		return x, p.expect(")")
	default:
		return nil, p.errf("expression expected, got %q", t.text)
	}
}

// binLevel parses one left associative precedence level of
// integer only binary operators.
func (p *Parser) binLevel(texts []string, ops []ast.Op, sub func() (ast.Expr, error), intOnly bool) (ast.Expr, error) {
	l, err := sub()
	if err != nil {
		return nil, err
	}

	for {
		t := p.tok()

		matched := -1
		for i, text := range texts {
			if p.eat(text) {
				matched = i
				break
			}
		}

		if matched < 0 {
			return l, nil
		}

		r, err := sub()
		if err != nil {
			return nil, err
		}

		if intOnly {
			l = p.requireInt(l, t.pos)
			r = p.requireInt(r, t.pos)
		}

		l, r = p.balance(l, r, t.pos)
		l = &ast.Binary{Op: ops[matched], L: l, R: r, Type: l.TypeID(), Pos: t.pos}
	}
}

// typing helpers

func (p *Parser) decay(t tp.ID) tp.ID {
	d := p.types.At(t)
	if d.Kind == tp.KindArray {
		return p.types.Ptr(d.Elem)
	}

	return t
}

func (p *Parser) promote(t tp.ID) tp.ID {
	d := p.types.At(t)
	if d.Kind == tp.KindInt && d.Bits < 32 {
		return tp.I32
	}

	return t
}

// usual implements the usual arithmetic conversions.
func (p *Parser) usual(l, r tp.ID) tp.ID {
	ld, rd := p.types.At(l), p.types.At(r)

	if ld.Kind == tp.KindFloat || rd.Kind == tp.KindFloat {
		if ld.Kind == tp.KindFloat && ld.Bits == 64 || rd.Kind == tp.KindFloat && rd.Bits == 64 {
			return tp.F64
		}

		return tp.F32
	}

	if ld.Kind != tp.KindInt || rd.Kind != tp.KindInt {
		return l
	}

	l, r = p.promote(l), p.promote(r)
	ld, rd = p.types.At(l), p.types.At(r)

	switch {
	case l == r:
		return l
	case ld.Signed == rd.Signed:
		if ld.Bits > rd.Bits {
			return l
		}

		return r
	case !ld.Signed && ld.Bits >= rd.Bits:
		return l
	case !rd.Signed && rd.Bits >= ld.Bits:
		return r
	case ld.Signed && ld.Bits > rd.Bits:
		return l
	default:
		return r
	}
}

// balance converts both operands to their common type.
func (p *Parser) balance(l, r ast.Expr, pos ast.Pos) (ast.Expr, ast.Expr) {
	lt, rt := p.decay(l.TypeID()), p.decay(r.TypeID())

	if p.types.IsPtr(lt) && p.types.IsPtr(rt) {
		return l, r
	}

	if !p.isArith(lt) || !p.isArith(rt) {
		p.diags.Add(diag.TypeMismatch, pos, "%s and %s", p.types.String(lt), p.types.String(rt))
		return l, r
	}

	typ := p.usual(lt, rt)

	return p.convert(l, typ), p.convert(r, typ)
}

func (p *Parser) convert(x ast.Expr, to tp.ID) ast.Expr {
	if x.TypeID() == to {
		return x
	}

	if p.types.IsVoid(x.TypeID()) {
		p.diags.Add(diag.TypeMismatch, x.Position(), "void value used")
		return ast.ConstExpr{Type: to, Pos: x.Position()}
	}

	return &ast.Cast{X: x, Type: to, Pos: x.Position()}
}

func (p *Parser) defaultPromote(x ast.Expr) ast.Expr {
	t := p.decay(x.TypeID())
	d := p.types.At(t)

	switch {
	case d.Kind == tp.KindFloat && d.Bits == 32:
		return p.convert(x, tp.F64)
	case d.Kind == tp.KindInt && d.Bits < 32:
		return p.convert(x, tp.I32)
	default:
		return p.convert(x, t)
	}
}

func (p *Parser) requireInt(x ast.Expr, pos ast.Pos) ast.Expr {
	if !p.types.IsInt(x.TypeID()) {
		p.diags.Add(diag.OperatorMisuse, pos, "integer operand required, got %s", p.types.String(x.TypeID()))
		return p.convert(x, tp.I32)
	}

	return x
}

func (p *Parser) isArith(t tp.ID) bool {
	k := p.types.Kind(t)
	return k == tp.KindInt || k == tp.KindFloat
}

func (p *Parser) isLvalue(x ast.Expr) bool {
	switch x := x.(type) {
	case *ast.Ident:
		return !x.Func && p.types.Kind(x.Type) != tp.KindArray
	case *ast.Unary:
		return x.Op == ast.OpDeref
	case *ast.Index:
		return true
	default:
		return false
	}
}
