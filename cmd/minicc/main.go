package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/parse"
	"github.com/minicc/minicc/compiler/tp"
)

func main() {
	parseCmd := &cli.Command{
		Name:   "parse",
		Action: parseAct,
		Args:   cli.Args{},
	}

	irCmd := &cli.Command{
		Name:   "ir",
		Action: irAct,
		Args:   cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "minicc",
		Description: "minicc compiles a C subset to x86-64 assembly",
		Commands: []*cli.Command{
			parseCmd,
			irCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		types := tp.New()
		diags := &diag.List{File: a}

		x, err := parse.New(types, diags).File(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		if !diags.Empty() {
			diags.Print(os.Stderr)
			return errors.New("parse failed")
		}

		fmt.Printf("ast: %+v\n", x)
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		diags := &diag.List{File: a}

		m, err := compiler.Build(ctx, a, text, diags)
		if err != nil {
			return errors.Wrap(err, "build %v", a)
		}

		if m == nil {
			diags.Print(os.Stderr)
			return errors.New("compilation failed")
		}

		err = m.Verify()
		if err != nil {
			return errors.Wrap(err, "verify %v", a)
		}

		fmt.Printf("%s", m.Dump(nil))
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	prof, err := loadProfile(".")
	if err != nil {
		return errors.Wrap(err, "build profile")
	}

	for _, a := range c.Args {
		res, err := compiler.CompileFile(ctx, a)
		if res != nil && !res.Diags.Empty() {
			res.Diags.Print(os.Stderr)
			return errors.New("compilation failed")
		}
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		out := prof.outputName(a)
		if out == "-" {
			fmt.Printf("%s", res.Asm)
			continue
		}

		err = os.WriteFile(out, res.Asm, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", out)
		}

		tlog.SpanFromContext(ctx).Printw("wrote assembly", "file", out, "size", len(res.Asm))
	}

	return nil
}

func (p *profile) outputName(src string) string {
	if p != nil && p.Build.Output != "" {
		return p.Build.Output
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	return base + ".s"
}
