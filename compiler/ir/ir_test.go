package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/tp"
)

func TestDump(t *testing.T) {
	types := tp.New()
	m := NewModule("demo", types)

	g := m.AddGlobalVar("answer", tp.I32)
	g.Init = &GlobalInit{Const: IntConst{Val: 42, Type: tp.I32}}

	f := m.AddFunc("twice", types.Func(tp.I32, []tp.ID{tp.I32}, false))

	p := &Reg{Name: "%0", Type: tp.I32}
	f.Params = append(f.Params, p)

	b := f.AddBlock("1")

	r := &Reg{Name: "%2", Type: tp.I32}
	b.Push(Bin{Op: OpAdd, Res: r, L: p, R: IntConst{Val: 0, Type: tp.I32}})
	b.Push(Ret{Val: r})

	dump := string(m.Dump(nil))
	t.Logf("dump:\n%s", dump)

	assert.True(t, strings.HasPrefix(dump, "module demo:\n"))
	assert.Contains(t, dump, "i32 answer = 42;")
	assert.Contains(t, dump, "def i32 twice(i32 %0) {")
	assert.Contains(t, dump, "1:\n")
	assert.Contains(t, dump, "%2 = add i32 %0, 0;")
	assert.Contains(t, dump, "ret i32 %2;")
}

func TestDumpExtern(t *testing.T) {
	types := tp.New()
	m := NewModule("demo", types)

	f := m.AddFunc("ext", types.Func(tp.Void, []tp.ID{tp.F64}, true))
	f.Noreturn = true

	dump := string(m.Dump(nil))

	assert.Contains(t, dump, "def void noreturn ext(f64, ...);")
}

func TestVerifyTerminators(t *testing.T) {
	types := tp.New()
	m := NewModule("demo", types)

	f := m.AddFunc("f", types.Func(tp.Void, nil, false))
	b := f.AddBlock("0")

	err := m.Verify()
	require.Error(t, err, "empty block")

	b.Push(Ret{})
	require.NoError(t, m.Verify())

	// a terminator in the middle is rejected
	b.Instrs = append(b.Instrs, Ret{})
	require.Error(t, m.Verify())
}

func TestVerifySingleUse(t *testing.T) {
	types := tp.New()
	m := NewModule("demo", types)

	f := m.AddFunc("f", types.Func(tp.I32, nil, false))
	b := f.AddBlock("0")

	one := IntConst{Val: 1, Type: tp.I32}

	r := &Reg{Name: "%0", Type: tp.I32}
	b.Push(Bin{Op: OpAdd, Res: r, L: one, R: one})
	b.Push(Ret{Val: r})

	require.NoError(t, m.Verify())

	// a second use of %0 violates the builder guarantee
	r2 := &Reg{Name: "%1", Type: tp.I32}
	b.Instrs = []Instr{
		Bin{Op: OpAdd, Res: r, L: one, R: one},
		Bin{Op: OpAdd, Res: r2, L: r, R: r},
		Ret{Val: r2},
	}

	require.Error(t, m.Verify())
}

func TestTargets(t *testing.T) {
	types := tp.New()
	m := NewModule("demo", types)

	f := m.AddFunc("f", types.Func(tp.Void, nil, false))
	a := f.AddBlock("a")
	b := f.AddBlock("b")

	cond := IntConst{Val: 1, Type: tp.I1}

	assert.Equal(t, []*Block{a, b}, Targets(Br{Cond: cond, Then: a, Else: b}))
	assert.Equal(t, []*Block{a}, Targets(Br{Then: a}))
	assert.Equal(t, []*Block{a}, Targets(Br{Cond: cond, Then: a, Else: a}))
	assert.Empty(t, Targets(Ret{}))

	sw := Switch{
		Scrut:   cond,
		Default: a,
		Cases: []SwitchCase{
			{Val: IntConst{Val: 1, Type: tp.I32}, Dst: b},
			{Val: IntConst{Val: 2, Type: tp.I32}, Dst: b},
		},
	}

	assert.Equal(t, []*Block{a, b}, Targets(sw))
}
