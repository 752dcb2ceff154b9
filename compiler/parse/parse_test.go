package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/tp"
)

func parseSrc(t *testing.T, src string) (*ast.File, *tp.Pool, *diag.List) {
	t.Helper()

	types := tp.New()
	diags := &diag.List{}

	p := New(types, diags)

	f, err := p.File(context.Background(), "test.c", []byte(src))
	require.NoError(t, err)

	return f, types, diags
}

func TestParseFunc(t *testing.T) {
	f, types, diags := parseSrc(t, `
int add(int a, int b) {
	return a + b;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.Len(t, f.Decls, 1)

	fd, ok := f.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)

	assert.Equal(t, "add", fd.Name)
	require.Len(t, fd.Params, 2)
	assert.Equal(t, tp.I32, fd.Params[0].Type)

	ft := types.At(fd.Type)
	assert.Equal(t, tp.KindFunc, ft.Kind)
	assert.Equal(t, tp.I32, ft.Elem)
}

func TestParseDeclarators(t *testing.T) {
	f, types, diags := parseSrc(t, `
int *p;
long arr[4][2];
double d = 1.5;
extern int e;
void v(int *, long n, ...);
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.Len(t, f.Decls, 5)

	p0 := f.Decls[0].(*ast.VarDecl)
	assert.Equal(t, types.Ptr(tp.I32), p0.Type)

	a := f.Decls[1].(*ast.VarDecl)
	assert.Equal(t, types.Array(4, types.Array(2, tp.I64)), a.Type)

	e := f.Decls[3].(*ast.VarDecl)
	assert.True(t, e.Extern)

	v := f.Decls[4].(*ast.FuncDecl)
	vt := types.At(v.Type)
	assert.True(t, vt.Variadic)
	require.Len(t, vt.Params, 2)
	assert.Equal(t, types.Ptr(tp.I32), vt.Params[0])
}

func TestUsualConversions(t *testing.T) {
	f, _, diags := parseSrc(t, `
double mix(int i, double d) {
	return i + d;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())

	fd := f.Decls[0].(*ast.FuncDecl)
	ret := fd.Body.Stmts[0].(*ast.Return)

	bin, ok := ret.X.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, tp.F64, bin.Type)

	// the integer side got an implicit cast
	_, ok = bin.L.(*ast.Cast)
	assert.True(t, ok)
}

func TestUndeclared(t *testing.T) {
	_, _, diags := parseSrc(t, `
int f(void) {
	return missing;
}
`)
	require.False(t, diags.Empty())
	assert.Equal(t, diag.Undeclared, diags.All()[0].Kind)
}

func TestLvalueRequired(t *testing.T) {
	_, _, diags := parseSrc(t, `
int f(int a) {
	a + 1 = 2;
	return 0;
}
`)
	require.False(t, diags.Empty())
	assert.Equal(t, diag.LvalueRequired, diags.All()[0].Kind)
}

func TestSizeof(t *testing.T) {
	f, _, diags := parseSrc(t, `
unsigned long s = sizeof(long);
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())

	v := f.Decls[0].(*ast.VarDecl)

	c, ok := v.Init.(ast.ConstExpr)
	require.True(t, ok)
	assert.Equal(t, uint64(8), c.U)
	assert.Equal(t, tp.U64, c.Type)
}

func TestShiftTyping(t *testing.T) {
	f, _, diags := parseSrc(t, `
int f(char c) {
	return c << 1;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())

	fd := f.Decls[0].(*ast.FuncDecl)
	ret := fd.Body.Stmts[0].(*ast.Return)

	// left operand promotes, its type is the result type
	bin := ret.X.(*ast.Binary)
	assert.Equal(t, tp.I32, bin.Type)
}
