package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/parse"
	"github.com/minicc/minicc/compiler/tp"
)

func build(t *testing.T, src string) (*ir.Module, *diag.List) {
	t.Helper()

	ctx := context.Background()
	types := tp.New()
	diags := &diag.List{}

	p := parse.New(types, diags)

	f, err := p.File(ctx, "test.c", []byte(src))
	require.NoError(t, err)

	g := New()

	m, err := g.Build(ctx, types, diags, f)
	require.NoError(t, err)

	return m, diags
}

func TestGlobalConstantFold(t *testing.T) {
	m, diags := build(t, `int g = (2 + 3) * 4;`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())

	gv := m.GetGlobalVar("g")
	require.NotNil(t, gv)
	require.NotNil(t, gv.Init)

	c, ok := gv.Init.Const.(ir.IntConst)
	require.True(t, ok)
	assert.Equal(t, uint64(20), c.Val)
	assert.Equal(t, tp.I32, c.Type)
}

func TestGlobalAddressInit(t *testing.T) {
	m, diags := build(t, `
int base[8];
int *third = &base[3];
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())

	gv := m.GetGlobalVar("third")
	require.NotNil(t, gv.Init)
	assert.Nil(t, gv.Init.Const)
	assert.Equal(t, "@base", gv.Init.Sym)
	assert.Equal(t, int64(12), gv.Init.Off)
}

func TestGlobalTwoAddresses(t *testing.T) {
	_, diags := build(t, `
int a;
int b;
long bad = (long)&a + (long)&b;
`)
	require.False(t, diags.Empty())
}

func TestZeroDivideFold(t *testing.T) {
	_, diags := build(t, `int g = 1 / 0;`)
	require.False(t, diags.Empty())
	assert.Equal(t, diag.ZeroDivide, diags.All()[0].Kind)
}

func TestShortCircuit(t *testing.T) {
	m, diags := build(t, `
int b(void);

int f(int a) {
	return a && b();
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())

	f := m.GetFunction("f")
	require.NotNil(t, f)

	// the call to b may not sit in the entry block: it only runs
	// when a is nonzero
	entry := f.Entry()

	var callBlock *ir.Block

	for _, blk := range f.Blocks {
		for _, x := range blk.Instrs {
			if _, ok := x.(ir.Call); ok {
				callBlock = blk
			}
		}
	}

	require.NotNil(t, callBlock, "call to b not emitted")
	assert.NotEqual(t, entry, callBlock)

	dump := string(m.Dump(nil))
	assert.Contains(t, dump, "call @b()")
}

func TestSwitchFallthrough(t *testing.T) {
	m, diags := build(t, `
void f(void);
void g(void);
void h(void);

void run(int x) {
	switch (x) {
	case 1: f();
	case 2: g();
	default: h();
	}
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())

	fn := m.GetFunction("run")

	var sw ir.Switch
	found := false

	for _, blk := range fn.Blocks {
		for _, x := range blk.Instrs {
			if s, ok := x.(ir.Switch); ok {
				sw = s
				found = true
			}
		}
	}

	require.True(t, found, "no switch instruction")
	require.Len(t, sw.Cases, 2)
	assert.Equal(t, uint64(1), sw.Cases[0].Val.Val)
	assert.Equal(t, uint64(2), sw.Cases[1].Val.Val)
	require.NotNil(t, sw.Default)

	// no breaks: case 1 falls into case 2 falls into default
	b1, b2 := sw.Cases[0].Dst, sw.Cases[1].Dst

	t1, ok := b1.Term().(ir.Br)
	require.True(t, ok)
	assert.Equal(t, b2, t1.Then)

	t2, ok := b2.Term().(ir.Br)
	require.True(t, ok)
	assert.Equal(t, sw.Default, t2.Then)
}

func TestDuplicateCase(t *testing.T) {
	_, diags := build(t, `
void f(int x) {
	switch (x) {
	case 1: break;
	case 1: break;
	}
}
`)
	require.False(t, diags.Empty())
	assert.Equal(t, diag.DuplicateCase, diags.All()[0].Kind)
}

func TestGotoForward(t *testing.T) {
	m, diags := build(t, `
int f(int a) {
	if (a) goto out;
	a = a + 1;
out:
	return a;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())
}

func TestGotoUnresolved(t *testing.T) {
	_, diags := build(t, `
int f(int a) {
	goto nowhere;
	return a;
}
`)
	require.False(t, diags.Empty())
	assert.Equal(t, diag.UnresolvedLabel, diags.All()[0].Kind)
}

func TestSingleExit(t *testing.T) {
	m, diags := build(t, `
int f(int a) {
	if (a) return 1;
	if (a > 2) return 2;
	return 3;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())

	f := m.GetFunction("f")

	rets := 0
	for _, blk := range f.Blocks {
		for _, x := range blk.Instrs {
			if _, ok := x.(ir.Ret); ok {
				rets++
			}
		}
	}

	assert.Equal(t, 1, rets, "every return goes through one exit block")
}

func TestInvariantsOnKitchenSink(t *testing.T) {
	m, diags := build(t, `
int ext(int x, double y);

double gd = 2.5;
int gi = 7;

int work(int n, double d, int *p, long arr_len) {
	long arr[8];
	int i;
	int acc = 0;

	for (i = 0; i < n; i++) {
		acc = acc + i;

		if (i % 2 == 0)
			continue;

		acc = acc - (int)d;
	}

	while (acc > 100)
		acc = acc / 2;

	do {
		acc++;
	} while (acc < 10);

	arr[0] = acc;
	arr[1] = arr[0] + 1;
	*p = acc;
	p[2] = acc;

	acc = n > 0 ? acc : -acc;
	acc = acc ^ 3;
	acc = ~acc + !acc;

	return ext(acc, d + gd) + gi;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())

	dump := string(m.Dump(nil))
	assert.Contains(t, dump, "def i32 work")
	assert.Contains(t, dump, "module test.c")
}

func TestVoidReturn(t *testing.T) {
	m, diags := build(t, `
void f(int a) {
	if (a) return;
	a = 2;
}
`)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())
}
