package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/tp"
)

// diamond builds A -> {B, C} -> D.
func diamond() (*ir.Function, [4]*ir.Block) {
	types := tp.New()
	m := ir.NewModule("test", types)

	f := m.AddFunc("f", types.Func(tp.Void, nil, false))

	a := f.AddBlock("A")
	b := f.AddBlock("B")
	c := f.AddBlock("C")
	d := f.AddBlock("D")

	cond := ir.IntConst{Val: 1, Type: tp.I1}

	a.Push(ir.Br{Cond: cond, Then: b, Else: c})
	b.Push(ir.Br{Then: d})
	c.Push(ir.Br{Then: d})
	d.Push(ir.Ret{})

	return f, [4]*ir.Block{a, b, c, d}
}

func TestCFG(t *testing.T) {
	ctx := context.Background()

	f, _ := diamond()

	g, err := BuildCFG(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, g.Succ[0])
	assert.Equal(t, []int{3}, g.Succ[1])
	assert.Equal(t, []int{3}, g.Succ[2])
	assert.Empty(t, g.Succ[3])

	assert.Empty(t, g.Pred[0])
	assert.Equal(t, []int{0}, g.Pred[1])
	assert.Equal(t, []int{0}, g.Pred[2])
	assert.Equal(t, []int{1, 2}, g.Pred[3])
}

func TestCFGSwitchDedup(t *testing.T) {
	ctx := context.Background()

	types := tp.New()
	m := ir.NewModule("test", types)

	f := m.AddFunc("f", types.Func(tp.Void, nil, false))

	a := f.AddBlock("A")
	b := f.AddBlock("B")

	// two cases share a target, the edge appears once
	a.Push(ir.Switch{
		Scrut:   ir.IntConst{Val: 0, Type: tp.I32},
		Default: b,
		Cases: []ir.SwitchCase{
			{Val: ir.IntConst{Val: 1, Type: tp.I32}, Dst: b},
			{Val: ir.IntConst{Val: 2, Type: tp.I32}, Dst: b},
		},
	})
	b.Push(ir.Ret{})

	g, err := BuildCFG(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, g.Succ[0])
	assert.Equal(t, []int{0}, g.Pred[1])
}

func TestDominatorsDiamond(t *testing.T) {
	ctx := context.Background()

	f, _ := diamond()

	g, err := BuildCFG(ctx, f)
	require.NoError(t, err)

	d := BuildDominators(ctx, g)

	assert.Equal(t, 0, d.Idom[0])
	assert.Equal(t, 0, d.Idom[1])
	assert.Equal(t, 0, d.Idom[2])
	assert.Equal(t, 0, d.Idom[3])

	// the entry has the largest postorder number
	for i := 1; i < 4; i++ {
		assert.Less(t, d.post[i], d.post[0])
	}

	doms := d.Dominators(3)
	assert.True(t, doms.IsSet(0))
	assert.True(t, doms.IsSet(3))
	assert.False(t, doms.IsSet(1))
	assert.False(t, doms.IsSet(2))

	assert.True(t, d.Dominates(0, 3))
	assert.False(t, d.Dominates(1, 3))
}

func TestDominatorsLoop(t *testing.T) {
	ctx := context.Background()

	types := tp.New()
	m := ir.NewModule("test", types)

	f := m.AddFunc("f", types.Func(tp.Void, nil, false))

	entry := f.AddBlock("0")
	head := f.AddBlock("1")
	body := f.AddBlock("2")
	exit := f.AddBlock("3")

	cond := ir.IntConst{Val: 1, Type: tp.I1}

	entry.Push(ir.Br{Then: head})
	head.Push(ir.Br{Cond: cond, Then: body, Else: exit})
	body.Push(ir.Br{Then: head})
	exit.Push(ir.Ret{})

	g, err := BuildCFG(ctx, f)
	require.NoError(t, err)

	d := BuildDominators(ctx, g)

	assert.Equal(t, 0, d.Idom[1])
	assert.Equal(t, 1, d.Idom[2])
	assert.Equal(t, 1, d.Idom[3])
}

func TestDominatorsUnreachable(t *testing.T) {
	ctx := context.Background()

	types := tp.New()
	m := ir.NewModule("test", types)

	f := m.AddFunc("f", types.Func(tp.Void, nil, false))

	entry := f.AddBlock("0")
	dead := f.AddBlock("1")

	entry.Push(ir.Ret{})
	dead.Push(ir.Ret{})

	g, err := BuildCFG(ctx, f)
	require.NoError(t, err)

	d := BuildDominators(ctx, g)

	assert.True(t, d.Reachable(0))
	assert.False(t, d.Reachable(1))
	assert.Equal(t, -1, d.Idom[1])
	dom1 := d.Dominators(1)
	assert.Equal(t, 0, dom1.Size())
}
