package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/diag"
)

func TestCompileEndToEnd(t *testing.T) {
	ctx := context.Background()

	res, err := Compile(ctx, "fib.c", []byte(`
int fib(int n) {
	if (n < 2)
		return n;
	return fib(n - 1) + fib(n - 2);
}
`))
	require.NoError(t, err)
	require.True(t, res.Diags.Empty(), "diags: %v", res.Diags.All())
	require.NotNil(t, res.Module)

	asm := string(res.Asm)
	t.Logf("asm:\n%s", asm)

	assert.Contains(t, asm, ".globl fib")
	assert.Contains(t, asm, "call fib")
	assert.Contains(t, asm, "ret")
}

func TestCompileStaticErrorSuppressesAsm(t *testing.T) {
	ctx := context.Background()

	res, err := Compile(ctx, "bad.c", []byte(`
int f(void) {
	goto nowhere;
	return 0;
}
`))
	require.NoError(t, err)
	require.False(t, res.Diags.Empty())
	assert.Equal(t, diag.UnresolvedLabel, res.Diags.All()[0].Kind)
	assert.Empty(t, res.Asm)
}

func TestCompileCollectsMultipleDiags(t *testing.T) {
	ctx := context.Background()

	res, err := Compile(ctx, "bad.c", []byte(`
int f(void) {
	return missing + other;
}
`))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Diags.Len(), 2)
	assert.Empty(t, res.Asm)
}

func TestCompileIRDump(t *testing.T) {
	ctx := context.Background()

	diags := &diag.List{}

	m, err := Build(ctx, "sum.c", []byte(`
int sum(int n) {
	int s = 0;
	while (n > 0) {
		s = s + n;
		n--;
	}
	return s;
}
`), diags)
	require.NoError(t, err)
	require.NotNil(t, m)

	dump := string(m.Dump(nil))
	t.Logf("ir:\n%s", dump)

	assert.True(t, strings.HasPrefix(dump, "module sum.c:\n"))
	assert.Contains(t, dump, "def i32 sum(i32 %")
	assert.Contains(t, dump, "alloca i32")
	assert.Contains(t, dump, "br ")
	assert.Contains(t, dump, "ret i32")
}
