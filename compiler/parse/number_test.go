package parse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicc/minicc/compiler/tp"
)

func TestIntLitType(t *testing.T) {
	for _, tc := range []struct {
		u      uint64
		base   int
		suffix string
		want   tp.ID
	}{
		// no suffix, decimal: smallest of int32, int64
		{1, 10, "", tp.I32},
		{math.MaxInt32, 10, "", tp.I32},
		{math.MaxInt32 + 1, 10, "", tp.I64},
		{math.MaxUint64, 10, "", tp.I64},

		// no suffix, other bases: smallest of int32, uint32, int64, uint64
		{0xff, 16, "", tp.I32},
		{math.MaxInt32 + 1, 16, "", tp.U32},
		{math.MaxUint32, 16, "", tp.U32},
		{math.MaxUint32 + 1, 16, "", tp.I64},
		{math.MaxInt64 + 1, 16, "", tp.U64},

		// u: smallest unsigned
		{1, 10, "u", tp.U32},
		{1, 10, "U", tp.U32},
		{math.MaxUint32, 10, "u", tp.U32},
		{math.MaxUint32 + 1, 10, "u", tp.U64},

		// l, decimal
		{1, 10, "l", tp.I32},
		{math.MaxInt32 + 1, 10, "L", tp.I64},

		// l, hex
		{math.MaxInt32 + 1, 16, "l", tp.U32},

		// ul in any letter order
		{1, 10, "ul", tp.U32},
		{1, 10, "lu", tp.U32},
		{math.MaxUint32 + 1, 10, "UL", tp.U64},

		// ll
		{1, 10, "ll", tp.I64},
		{math.MaxInt64 + 1, 16, "ll", tp.U64},
		{1, 16, "ll", tp.I64},

		// ull
		{1, 10, "ull", tp.U64},
		{1, 10, "llu", tp.U64},
	} {
		got, err := IntLitType(tc.u, tc.base, tc.suffix)
		require.NoError(t, err, "%d base %d %q", tc.u, tc.base, tc.suffix)
		assert.Equal(t, tc.want, got, "%d base %d %q", tc.u, tc.base, tc.suffix)
	}
}

func TestIntLitTypeBadSuffix(t *testing.T) {
	for _, s := range []string{"x", "ulu", "lll", "f"} {
		_, err := IntLitType(1, 10, s)
		assert.Error(t, err, "%q", s)
	}
}

func TestFloatLitType(t *testing.T) {
	for _, tc := range []struct {
		f      float64
		suffix string
		want   tp.ID
	}{
		{1.5, "f", tp.F32},
		{1.5, "F", tp.F32},
		{1.5, "l", tp.F64},
		{1.5, "", tp.F32},
		{1e300, "", tp.F64},
	} {
		got, err := FloatLitType(tc.f, tc.suffix)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v %q", tc.f, tc.suffix)
	}
}

func TestScanNumber(t *testing.T) {
	for _, tc := range []struct {
		src   string
		ival  uint64
		fval  float64
		float bool
		typ   tp.ID
	}{
		{"42", 42, 0, false, tp.I32},
		{"0x10", 16, 0, false, tp.I32},
		{"017", 15, 0, false, tp.I32},
		{"0b101", 5, 0, false, tp.I32},
		{"7u", 7, 0, false, tp.U32},
		{"1.5", 0, 1.5, true, tp.F32},
		{"2e3", 0, 2000, true, tp.F32},
		{"1.5l", 0, 1.5, true, tp.F64},
	} {
		tk, n, err := scanNumber([]byte(tc.src + ";"))
		require.NoError(t, err, tc.src)
		assert.Equal(t, len(tc.src), n, tc.src)
		assert.Equal(t, tc.float, tk.float, tc.src)
		assert.Equal(t, tc.typ, tk.typ, tc.src)

		if tc.float {
			assert.Equal(t, tc.fval, tk.fval, tc.src)
		} else {
			assert.Equal(t, tc.ival, tk.ival, tc.src)
		}
	}
}
