package parse

import (
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/minicc/minicc/compiler/tp"
)

// scanNumber consumes an integer or floating literal at the start of b
// and returns the token and the number of bytes consumed.
func scanNumber(b []byte) (tk token, n int, err error) {
	base := 10
	i := 0

	if b[0] == '0' && len(b) > 1 {
		switch b[1] {
		case 'x', 'X':
			base = 16
			i = 2
		case 'b', 'B':
			base = 2
			i = 2
		case 'o', 'O':
			base = 8
			i = 2
		default:
			if isDigit(b[1]) {
				base = 8
				i = 1
			}
		}
	}

	dst := i
	dot, exp := false, false

	for ; i < len(b); i++ {
		c := b[i]

		switch {
		case isDigit(c):
		case base == 16 && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		case base == 10 && !dot && c == '.':
			dot = true
		case base == 10 && !exp && (c == 'e' || c == 'E'):
			exp = true

			if i+1 < len(b) && (b[i+1] == '+' || b[i+1] == '-') {
				i++
			}
		default:
			goto digitsdone
		}
	}

digitsdone:
	if i == dst || i == dst+1 && dot {
		return tk, 0, errors.New("number expected")
	}

	digits := string(b[dst:i])

	sfx := i
	for i < len(b) && isIdent(b[i]) {
		i++
	}

	suffix := string(b[sfx:i])

	if dot || exp {
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return tk, 0, errors.Wrap(err, "float literal")
		}

		typ, err := FloatLitType(f, suffix)
		if err != nil {
			return tk, 0, err
		}

		return token{kind: tNumber, text: string(b[:i]), fval: f, float: true, typ: typ}, i, nil
	}

	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return tk, 0, errors.Wrap(err, "integer literal")
	}

	typ, err := IntLitType(u, base, suffix)
	if err != nil {
		return tk, 0, err
	}

	return token{kind: tNumber, text: string(b[:i]), ival: u, typ: typ}, i, nil
}

// IntLitType types an integer literal from its value, base and suffix.
// Decimal literals without a u suffix never turn unsigned, everything
// else takes the smallest type that fits.
func IntLitType(u uint64, base int, suffix string) (tp.ID, error) {
	s := strings.ToLower(suffix)

	// normalize "lu", "llu" style to u-first
	var us, ls int
	for _, c := range s {
		switch c {
		case 'u':
			us++
		case 'l':
			ls++
		default:
			return tp.None, errors.New("bad integer suffix %q", suffix)
		}
	}

	if us > 1 || ls > 2 {
		return tp.None, errors.New("bad integer suffix %q", suffix)
	}

	unsigned := us == 1
	long := ls == 1
	longlong := ls == 2

	switch {
	case !unsigned && !long && !longlong && base == 10:
		if u <= math.MaxInt32 {
			return tp.I32, nil
		}

		return tp.I64, nil
	case !unsigned && !long && !longlong:
		return smallestAny(u), nil
	case unsigned && !long && !longlong:
		if u <= math.MaxUint32 {
			return tp.U32, nil
		}

		return tp.U64, nil
	case !unsigned && long && base == 10:
		if u <= math.MaxInt32 {
			return tp.I32, nil
		}

		return tp.I64, nil
	case !unsigned && long:
		return smallestAny(u), nil
	case unsigned && long:
		if u <= math.MaxUint32 {
			return tp.U32, nil
		}

		return tp.U64, nil
	case !unsigned && longlong && base == 10:
		return tp.I64, nil
	case !unsigned && longlong:
		if u <= math.MaxInt64 {
			return tp.I64, nil
		}

		return tp.U64, nil
	default: // unsigned && longlong
		return tp.U64, nil
	}
}

func smallestAny(u uint64) tp.ID {
	switch {
	case u <= math.MaxInt32:
		return tp.I32
	case u <= math.MaxUint32:
		return tp.U32
	case u <= math.MaxInt64:
		return tp.I64
	default:
		return tp.U64
	}
}

// FloatLitType types a floating literal from its suffix: f forces
// float32, l forces float64, no suffix takes float32 when the value
// fits and float64 otherwise.
func FloatLitType(f float64, suffix string) (tp.ID, error) {
	switch strings.ToLower(suffix) {
	case "f":
		return tp.F32, nil
	case "l":
		return tp.F64, nil
	case "":
		if math.Abs(f) < math.MaxFloat32 {
			return tp.F32, nil
		}

		return tp.F64, nil
	default:
		return tp.None, errors.New("bad float suffix %q", suffix)
	}
}
