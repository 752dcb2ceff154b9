package parse

import (
	"context"

	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/tp"
)

// compoundRest parses the statements after an already consumed {.
func (p *Parser) compoundRest(ctx context.Context) (*ast.Compound, error) {
	c := &ast.Compound{}

	for !p.eat("}") {
		if p.tok().kind == tEOF {
			return nil, p.errf("unexpected end of file, %q expected", "}")
		}

		s, err := p.stmt(ctx)
		if err != nil {
			return nil, err
		}

		if s != nil {
			c.Stmts = append(c.Stmts, s)
		}
	}

	return c, nil
}

func (p *Parser) stmt(ctx context.Context) (ast.Stmt, error) {
	t := p.tok()

	switch {
	case p.eat("{"):
		p.push()
		c, err := p.compoundRest(ctx)
		p.pop()

		return c, err
	case p.eat(";"):
		return nil, nil
	case p.isTypeStart():
		return p.declStmt()
	case t.kind == tKeyword:
		return p.keywordStmt(ctx, t)
	case t.kind == tIdent && p.peek(1).text == ":":
		p.next()
		p.next()

		return &ast.Labeled{Label: t.text, Pos: t.pos}, nil
	}

	x, err := p.expr()
	if err != nil {
		return nil, err
	}

	err = p.expect(";")
	if err != nil {
		return nil, err
	}

	return &ast.ExprStmt{X: x}, nil
}

func (p *Parser) keywordStmt(ctx context.Context, t token) (ast.Stmt, error) {
	switch t.text {
	case "if":
		p.next()

		cond, err := p.parenExpr()
		if err != nil {
			return nil, err
		}

		then, err := p.stmt(ctx)
		if err != nil {
			return nil, err
		}

		s := &ast.If{Cond: cond, Then: then}

		if p.eat("else") {
			s.Else, err = p.stmt(ctx)
			if err != nil {
				return nil, err
			}
		}

		return s, nil
	case "while":
		p.next()

		cond, err := p.parenExpr()
		if err != nil {
			return nil, err
		}

		body, err := p.stmt(ctx)
		if err != nil {
			return nil, err
		}

		return &ast.While{Cond: cond, Body: body}, nil
	case "do":
		p.next()

		body, err := p.stmt(ctx)
		if err != nil {
			return nil, err
		}

		err = p.expect("while")
		if err != nil {
			return nil, err
		}

		cond, err := p.parenExpr()
		if err != nil {
			return nil, err
		}

		err = p.expect(";")
		if err != nil {
			return nil, err
		}

		return &ast.DoWhile{Body: body, Cond: cond}, nil
	case "for":
		return p.forStmt(ctx)
	case "switch":
		p.next()

		x, err := p.parenExpr()
		if err != nil {
			return nil, err
		}

		body, err := p.stmt(ctx)
		if err != nil {
			return nil, err
		}

		return &ast.SwitchStmt{X: x, Body: body}, nil
	case "case":
		p.next()

		val, err := p.condExpr()
		if err != nil {
			return nil, err
		}

		err = p.expect(":")
		if err != nil {
			return nil, err
		}

		return &ast.Case{Val: val, Pos: t.pos}, nil
	case "default":
		p.next()

		err := p.expect(":")
		if err != nil {
			return nil, err
		}

		return &ast.Default{Pos: t.pos}, nil
	case "break":
		p.next()
		return &ast.Break{Pos: t.pos}, p.expect(";")
	case "continue":
		p.next()
		return &ast.Continue{Pos: t.pos}, p.expect(";")
	case "goto":
		p.next()

		lt := p.tok()
		if lt.kind != tIdent {
			return nil, p.errf("label expected, got %q", lt.text)
		}
		p.next()

		return &ast.Goto{Label: lt.text, Pos: t.pos}, p.expect(";")
	case "return":
		p.next()

		s := &ast.Return{Pos: t.pos}

		if !p.eat(";") {
			x, err := p.expr()
			if err != nil {
				return nil, err
			}

			s.X = x
			if !p.types.IsVoid(p.curRet) {
				s.X = p.convert(x, p.curRet)
			}

			err = p.expect(";")
			if err != nil {
				return nil, err
			}
		}

		return s, nil
	default:
		return nil, p.errf("unexpected %q", t.text)
	}
}

func (p *Parser) forStmt(ctx context.Context) (ast.Stmt, error) {
	p.next()

	err := p.expect("(")
	if err != nil {
		return nil, err
	}

	p.push()
	defer p.pop()

	s := &ast.For{}

	switch {
	case p.eat(";"):
	case p.isTypeStart():
		s.Init, err = p.declStmt()
		if err != nil {
			return nil, err
		}
	default:
		x, err := p.expr()
		if err != nil {
			return nil, err
		}

		s.Init = &ast.ExprStmt{X: x}

		err = p.expect(";")
		if err != nil {
			return nil, err
		}
	}

	if !p.eat(";") {
		s.Cond, err = p.expr()
		if err != nil {
			return nil, err
		}

		err = p.expect(";")
		if err != nil {
			return nil, err
		}
	}

	if !p.eat(")") {
		s.Post, err = p.expr()
		if err != nil {
			return nil, err
		}

		err = p.expect(")")
		if err != nil {
			return nil, err
		}
	}

	s.Body, err = p.stmt(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (p *Parser) declStmt() (ast.Stmt, error) {
	spec, err := p.declSpec()
	if err != nil {
		return nil, err
	}

	s := &ast.DeclStmt{}

	if p.eat(";") {
		return s, nil
	}

	for {
		name, typ, _, pos, err := p.declarator(spec.typ)
		if err != nil {
			return nil, err
		}

		if name == "" {
			return nil, p.errf("name expected, got %q", p.tok().text)
		}

		if p.types.Kind(typ) == tp.KindFunc {
			return nil, p.errf("nested function declaration")
		}

		v := &ast.VarDecl{
			Name:   name,
			Type:   typ,
			Extern: spec.extern,
			Pos:    pos,
		}

		if p.eat("=") {
			x, err := p.assignExpr()
			if err != nil {
				return nil, err
			}

			v.Init = p.convert(x, typ)
		}

		p.define(name, symbol{typ: typ}, pos)
		s.Decls = append(s.Decls, v)

		if !p.eat(",") {
			break
		}
	}

	return s, p.expect(";")
}

func (p *Parser) parenExpr() (ast.Expr, error) {
	err := p.expect("(")
	if err != nil {
		return nil, err
	}

	x, err := p.expr()
	if err != nil {
		return nil, err
	}

	return x, p.expect(")")
}
