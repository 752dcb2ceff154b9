package back

import (
	"context"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/gen"
	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/parse"
	"github.com/minicc/minicc/compiler/tp"
)

func buildModule(t *testing.T, src string) *ir.Module {
	t.Helper()

	ctx := context.Background()
	types := tp.New()
	diags := &diag.List{}

	p := parse.New(types, diags)

	f, err := p.File(ctx, "test.c", []byte(src))
	require.NoError(t, err)
	require.True(t, diags.Empty(), "diags: %v", diags.All())

	g := gen.New()

	m, err := g.Build(ctx, types, diags, f)
	require.NoError(t, err)
	require.True(t, diags.Empty(), "diags: %v", diags.All())
	require.NoError(t, m.Verify())

	return m
}

func compileModule(t *testing.T, src string) string {
	t.Helper()

	m := buildModule(t, src)

	c := New()

	asm, err := c.CompileModule(context.Background(), nil, m)
	require.NoError(t, err)

	t.Logf("asm:\n%s", asm)

	return string(asm)
}

func TestAllocCacheRotation(t *testing.T) {
	m := buildModule(t, `
int f(int a, int b) {
	return a + b;
}
`)

	ctx := context.Background()
	f := m.GetFunction("f")

	du, err := BuildDefUse(ctx, f)
	require.NoError(t, err)
	require.NoError(t, du.VerifySingleUse())

	a, err := Allocate(ctx, m.Types, f, du)
	require.NoError(t, err)

	// a couple of loads at a time never exhaust the three slots
	assert.True(t, a.Used[Rbx])
	assert.False(t, a.Used[R13] && a.Used[R12] && len(a.UsedCalleeSaved()) > 2,
		"two simultaneously live values fit in two slots")
}

func TestAllocSpill(t *testing.T) {
	// four argument temporaries are live at once when the call takes
	// them, the fourth (and fifth) binding evicts the longest held
	// one to a 16 byte aligned frame
	asm := compileModule(t, `
long g(long a, long b, long c, long d);

long f(long a, long b, long c, long d) {
	return g(a + b, b + c, c + d, d + a);
}
`)

	re := regexp.MustCompile(`movq %r[a-z0-9]+, -(\d+)\(%rbp\)`)

	spills := re.FindAllStringSubmatch(asm, -1)
	require.NotEmpty(t, spills, "expected at least one spill store")

	for _, sp := range spills {
		n, err := strconv.Atoi(sp[1])
		require.NoError(t, err)
		assert.Zero(t, n%8, "spill slot %d is 8 byte aligned", n)
	}

	sub := regexp.MustCompile(`subq \$(\d+), %rsp`).FindStringSubmatch(asm)
	require.NotNil(t, sub, "prologue reserves the frame")

	frame, err := strconv.Atoi(sub[1])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, frame, 8)
}

func TestAllocAllocaOnStack(t *testing.T) {
	m := buildModule(t, `
int f(void) {
	int x;
	x = 3;
	return x;
}
`)

	ctx := context.Background()
	f := m.GetFunction("f")

	du, err := BuildDefUse(ctx, f)
	require.NoError(t, err)

	a, err := Allocate(ctx, m.Types, f, du)
	require.NoError(t, err)

	for _, b := range f.Blocks {
		for _, x := range b.Instrs {
			al, ok := x.(ir.Alloca)
			if !ok {
				continue
			}

			m, ok := a.Loc(al.Res).(x64Mem)
			require.True(t, ok, "alloca %s bound to the stack", al.Res.Name)
			assert.Equal(t, Rbp, m.Base)
			assert.Negative(t, m.Off)
		}
	}
}

func TestVerifySingleUseBroken(t *testing.T) {
	types := tp.New()
	m := ir.NewModule("test", types)

	f := m.AddFunc("f", types.Func(tp.I32, nil, false))
	b := f.AddBlock("0")

	r := &ir.Reg{Name: "%0", Type: tp.I32}
	one := ir.IntConst{Val: 1, Type: tp.I32}

	b.Push(ir.Bin{Op: ir.OpAdd, Res: r, L: one, R: one})

	// two uses of %0 break the builder invariant
	r1 := &ir.Reg{Name: "%1", Type: tp.I32}
	b.Push(ir.Bin{Op: ir.OpAdd, Res: r1, L: r, R: r})
	b.Push(ir.Ret{Val: r1})

	du, err := BuildDefUse(context.Background(), f)
	require.NoError(t, err)

	assert.Error(t, du.VerifySingleUse())

	assert.Panics(t, func() {
		_, _ = Allocate(context.Background(), types, f, du)
	})
}
