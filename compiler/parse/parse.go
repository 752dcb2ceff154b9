package parse

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/tp"
)

type (
	Parser struct {
		types *tp.Pool
		diags *diag.List

		toks []token
		i    int

		scopes []map[string]symbol
		curRet tp.ID // return type of the function being parsed
	}

	symbol struct {
		typ    tp.ID
		global bool
		fn     bool
	}

	declSpec struct {
		typ      tp.ID
		extern   bool
		static   bool
		inline   bool
		noreturn bool
	}
)

func New(types *tp.Pool, diags *diag.List) *Parser {
	return &Parser{
		types: types,
		diags: diags,
	}
}

// File parses a whole translation unit.
func (p *Parser) File(ctx context.Context, name string, src []byte) (f *ast.File, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse file", "name", name)
	defer tr.Finish("err", &err)

	p.toks, err = tokenize(src)
	if err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}

	p.i = 0
	p.scopes = []map[string]symbol{{}}

	f = &ast.File{Name: name}

	for p.tok().kind != tEOF {
		d, err := p.topDecl(ctx)
		if err != nil {
			return nil, err
		}

		if d != nil {
			f.Decls = append(f.Decls, d...)
		}
	}

	tr.Printw("parsed", "decls", len(f.Decls))

	return f, nil
}

func (p *Parser) topDecl(ctx context.Context) (ds []ast.Decl, err error) {
	spec, err := p.declSpec()
	if err != nil {
		return nil, err
	}

	if p.eat(";") { // bare type, nothing declared
		return nil, nil
	}

	name, typ, params, pos, err := p.declarator(spec.typ)
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, p.errf("name expected, got %q", p.tok().text)
	}

	if p.types.Kind(typ) == tp.KindFunc {
		return p.funcRest(ctx, spec, name, typ, params, pos)
	}

	// file scope objects
	ds = []ast.Decl{}

	for {
		v := &ast.VarDecl{
			Name:   name,
			Type:   typ,
			Global: true,
			Extern: spec.extern,
			Pos:    pos,
		}

		if p.eat("=") {
			v.Init, err = p.condExpr()
			if err != nil {
				return nil, err
			}
		}

		p.define(name, symbol{typ: typ, global: true}, pos)
		ds = append(ds, v)

		if !p.eat(",") {
			break
		}

		name, typ, _, pos, err = p.declarator(spec.typ)
		if err != nil {
			return nil, err
		}
	}

	err = p.expect(";")
	if err != nil {
		return nil, err
	}

	return ds, nil
}

func (p *Parser) funcRest(ctx context.Context, spec declSpec, name string, typ tp.ID, params []ast.Param, pos ast.Pos) ([]ast.Decl, error) {
	fd := &ast.FuncDecl{
		Name:     name,
		Type:     typ,
		Params:   params,
		Inline:   spec.inline,
		Noreturn: spec.noreturn,
		Pos:      pos,
	}

	p.define(name, symbol{typ: typ, global: true, fn: true}, pos)

	if p.eat(";") {
		return []ast.Decl{fd}, nil
	}

	err := p.expect("{")
	if err != nil {
		return nil, err
	}

	p.push()
	for _, pr := range params {
		if pr.Name == "" {
			return nil, p.errf("parameter name omitted in the definition of %v", name)
		}

		p.define(pr.Name, symbol{typ: pr.Type}, pr.Pos)
	}

	p.curRet = p.types.At(typ).Elem

	fd.Body, err = p.compoundRest(ctx)

	p.pop()

	if err != nil {
		return nil, err
	}

	return []ast.Decl{fd}, nil
}

func (p *Parser) isTypeStart() bool {
	t := p.tok()
	if t.kind != tKeyword {
		return false
	}

	switch t.text {
	case "void", "char", "short", "int", "long", "signed", "unsigned",
		"float", "double", "extern", "static", "inline", "_Noreturn":
		return true
	}

	return false
}

func (p *Parser) declSpec() (s declSpec, err error) {
	var short, long, unsigned, signed, seenChar, seenInt, seenFloat, seenDouble, seenVoid bool

	for {
		t := p.tok()
		if t.kind != tKeyword {
			break
		}

		switch t.text {
		case "extern":
			s.extern = true
		case "static":
			s.static = true
		case "inline":
			s.inline = true
		case "_Noreturn":
			s.noreturn = true
		case "void":
			seenVoid = true
		case "char":
			seenChar = true
		case "short":
			short = true
		case "int":
			seenInt = true
		case "long":
			long = true
		case "signed":
			signed = true
		case "unsigned":
			unsigned = true
		case "float":
			seenFloat = true
		case "double":
			seenDouble = true
		default:
			goto done
		}

		p.next()
	}

done:
	switch {
	case seenVoid:
		s.typ = tp.Void
	case seenFloat:
		s.typ = tp.F32
	case seenDouble:
		s.typ = tp.F64
	case seenChar:
		s.typ = tp.I8
		if unsigned {
			s.typ = tp.U8
		}
	case short:
		s.typ = tp.I16
		if unsigned {
			s.typ = tp.U16
		}
	case long:
		s.typ = tp.I64
		if unsigned {
			s.typ = tp.U64
		}
	case seenInt, signed, unsigned:
		s.typ = tp.I32
		if unsigned {
			s.typ = tp.U32
		}
	default:
		return s, p.errf("type specifier expected, got %q", p.tok().text)
	}

	return s, nil
}

// declarator parses pointers, the name and array/function suffixes.
func (p *Parser) declarator(base tp.ID) (name string, typ tp.ID, params []ast.Param, pos ast.Pos, err error) {
	typ = base

	for p.eat("*") {
		typ = p.types.Ptr(typ)
	}

	// parameters in a prototype may stay anonymous
	t := p.tok()
	pos = t.pos

	if t.kind == tIdent {
		name = t.text
		p.next()
	}

	switch {
	case p.eat("("):
		var ptypes []tp.ID
		variadic := false

		if p.eat(")") {
			typ = p.types.Func(typ, nil, false)
			return name, typ, nil, pos, nil
		}

		if p.tok().kind == tKeyword && p.tok().text == "void" && p.peek(1).text == ")" {
			p.next()
			p.next()
			typ = p.types.Func(typ, nil, false)
			return name, typ, nil, pos, nil
		}

		for {
			if p.eat("...") {
				variadic = true
				break
			}

			spec, err := p.declSpec()
			if err != nil {
				return "", tp.None, nil, pos, err
			}

			pname, ptyp, _, ppos, err := p.declarator(spec.typ)
			if err != nil {
				return "", tp.None, nil, pos, err
			}

			// arrays decay to pointers in parameter lists
			if pt := p.types.At(ptyp); pt.Kind == tp.KindArray {
				ptyp = p.types.Ptr(pt.Elem)
			}

			ptypes = append(ptypes, ptyp)
			params = append(params, ast.Param{Name: pname, Type: ptyp, Pos: ppos})

			if !p.eat(",") {
				break
			}
		}

		err = p.expect(")")
		if err != nil {
			return "", tp.None, nil, pos, err
		}

		typ = p.types.Func(typ, ptypes, variadic)
	default:
		// array suffixes, innermost last
		var lens []uint64

		for p.eat("[") {
			t := p.tok()
			if t.kind != tNumber || t.float {
				return "", tp.None, nil, pos, p.errf("array length expected, got %q", t.text)
			}

			lens = append(lens, t.ival)
			p.next()

			err = p.expect("]")
			if err != nil {
				return "", tp.None, nil, pos, err
			}
		}

		for i := len(lens) - 1; i >= 0; i-- {
			typ = p.types.Array(lens[i], typ)
		}
	}

	return name, typ, params, pos, nil
}

func (p *Parser) tok() token     { return p.toks[p.i] }
func (p *Parser) peek(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.i+n]
}

func (p *Parser) next() { p.i++ }

func (p *Parser) eat(text string) bool {
	t := p.tok()
	if (t.kind == tPunct || t.kind == tKeyword) && t.text == text {
		p.next()
		return true
	}

	return false
}

func (p *Parser) expect(text string) error {
	if !p.eat(text) {
		return p.errf("%q expected, got %q", text, p.tok().text)
	}

	return nil
}

func (p *Parser) errf(format string, args ...any) error {
	t := p.tok()
	return errors.New("%d:%d: "+format, append([]any{t.pos.Line, t.pos.Col}, args...)...)
}

func (p *Parser) push() { p.scopes = append(p.scopes, map[string]symbol{}) }
func (p *Parser) pop()  { p.scopes = p.scopes[:len(p.scopes)-1] }

func (p *Parser) define(name string, s symbol, pos ast.Pos) {
	top := p.scopes[len(p.scopes)-1]

	if old, ok := top[name]; ok {
		// a matching redeclaration at file scope is fine
		if !(s.global && old.typ == s.typ) {
			p.diags.Add(diag.Redefined, pos, "%s", name)
			return
		}
	}

	top[name] = s
}

func (p *Parser) lookup(name string) (symbol, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if s, ok := p.scopes[i][name]; ok {
			return s, true
		}
	}

	return symbol{}, false
}
