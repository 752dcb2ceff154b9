package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/back"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/gen"
	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/parse"
	"github.com/minicc/minicc/compiler/tp"
)

// Result carries what a pipeline run produced. Diags is always
// populated; Asm stays empty when any diagnostic was recorded.
type Result struct {
	Module *ir.Module
	Asm    []byte
	Diags  *diag.List
}

func CompileFile(ctx context.Context, name string) (*Result, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile runs the staged pipeline: parse, build IR, verify, then
// lower function by function. Each stage consumes the previous one in
// full; static errors stop the pipeline after their stage and no
// assembly is produced.
func Compile(ctx context.Context, name string, text []byte) (_ *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	res := &Result{
		Diags: &diag.List{File: name},
	}

	m, err := Build(ctx, name, text, res.Diags)
	if err != nil {
		return res, err
	}
	if m == nil {
		return res, nil
	}

	res.Module = m

	err = m.Verify()
	if err != nil {
		return res, errors.Wrap(err, "verify")
	}

	c := back.New()

	res.Asm, err = c.CompileModule(ctx, nil, m)
	if err != nil {
		return res, errors.Wrap(err, "lower")
	}

	return res, nil
}

// Build stops after the IR builder, for inspection tooling. It
// returns a nil module when diagnostics were recorded.
func Build(ctx context.Context, name string, text []byte, diags *diag.List) (*ir.Module, error) {
	types := tp.New()

	p := parse.New(types, diags)

	f, err := p.File(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	if !diags.Empty() {
		return nil, nil
	}

	g := gen.New()

	m, err := g.Build(ctx, types, diags, f)
	if err != nil {
		return nil, errors.Wrap(err, "build ir")
	}

	if !diags.Empty() {
		return nil, nil
	}

	return m, nil
}
