package tp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterning(t *testing.T) {
	p := New()

	require.Equal(t, I32, p.Int(32, true))
	require.Equal(t, U8, p.Int(8, false))
	require.Equal(t, F64, p.Float(64))

	p1 := p.Ptr(I32)
	p2 := p.Ptr(I32)
	assert.Equal(t, p1, p2)

	a1 := p.Array(4, I32)
	a2 := p.Array(4, I32)
	a3 := p.Array(5, I32)
	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, a3)

	f1 := p.Func(Void, []ID{I32, p1}, false)
	f2 := p.Func(Void, []ID{I32, p1}, false)
	f3 := p.Func(Void, []ID{I32, p1}, true)
	assert.Equal(t, f1, f2)
	assert.NotEqual(t, f1, f3)
}

func TestSizeAlign(t *testing.T) {
	p := New()

	for _, tc := range []struct {
		id    ID
		size  uint64
		align uint64
	}{
		{I1, 1, 1},
		{I8, 1, 1},
		{U16, 2, 2},
		{I32, 4, 4},
		{U64, 8, 8},
		{F32, 4, 4},
		{F64, 8, 8},
		{p.Ptr(I8), 8, 8},
		{p.Array(10, I32), 40, 4},
		{p.Array(3, p.Ptr(F64)), 24, 8},
	} {
		assert.Equal(t, tc.size, p.Sizeof(tc.id), "sizeof %s", p.String(tc.id))
		assert.Equal(t, tc.align, p.Alignof(tc.id), "alignof %s", p.String(tc.id))
	}
}

func TestString(t *testing.T) {
	p := New()

	assert.Equal(t, "i32", p.String(I32))
	assert.Equal(t, "u64", p.String(U64))
	assert.Equal(t, "f32", p.String(F32))
	assert.Equal(t, "i8*", p.String(p.Ptr(I8)))
	assert.Equal(t, "[4 x i32]", p.String(p.Array(4, I32)))
	assert.Equal(t, "void(i32, ...)", p.String(p.Func(Void, []ID{I32}, true)))
}
