package tp

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

type (
	// ID is an interned type handle. Two types are equal iff their IDs are.
	ID int

	Kind uint8

	Type struct {
		Kind Kind

		Bits   int16 // Int, Float
		Signed bool  // Int

		Elem ID // Ptr pointee, Array element, Func return

		Len    uint64 // Array
		VarLen bool
		Static bool

		Params   []ID // Func
		Variadic bool

		Name   string // Aggregate tag
		Fields []Field
		Union  bool
	}

	Field struct {
		Name   string
		Type   ID
		Offset uint64
	}

	// Pool deduplicates type descriptors. All construction goes through it.
	Pool struct {
		types []Type
		index map[key]ID
	}

	key struct {
		Kind   Kind
		Bits   int16
		Signed bool
		Elem   ID
		Len    uint64
		VarLen bool
		Static bool
		Extra  string
	}
)

const None ID = -1

const (
	Void ID = iota
	I1
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
)

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPtr
	KindArray
	KindFunc
	KindAggregate
)

func New() *Pool {
	p := &Pool{
		index: make(map[key]ID, 32),
	}

	p.intern(Type{Kind: KindVoid})

	for _, w := range []int16{1, 8, 16, 32, 64} {
		p.intern(Type{Kind: KindInt, Bits: w, Signed: true})

		if w != 1 {
			p.intern(Type{Kind: KindInt, Bits: w, Signed: false})
		}
	}

	p.intern(Type{Kind: KindFloat, Bits: 32})
	p.intern(Type{Kind: KindFloat, Bits: 64})

	return p
}

func (p *Pool) Int(bits int16, signed bool) ID {
	return p.intern(Type{Kind: KindInt, Bits: bits, Signed: signed})
}

func (p *Pool) Float(bits int16) ID {
	return p.intern(Type{Kind: KindFloat, Bits: bits})
}

func (p *Pool) Ptr(el ID) ID {
	return p.intern(Type{Kind: KindPtr, Elem: el})
}

func (p *Pool) Array(n uint64, el ID) ID {
	return p.intern(Type{Kind: KindArray, Len: n, Elem: el})
}

func (p *Pool) ArrayOf(n uint64, el ID, varLen, static bool) ID {
	return p.intern(Type{Kind: KindArray, Len: n, Elem: el, VarLen: varLen, Static: static})
}

func (p *Pool) Func(ret ID, params []ID, variadic bool) ID {
	return p.intern(Type{Kind: KindFunc, Elem: ret, Params: params, Variadic: variadic})
}

func (p *Pool) Aggregate(name string, fields []Field, union bool) ID {
	return p.intern(Type{Kind: KindAggregate, Name: name, Fields: fields, Union: union})
}

func (p *Pool) At(id ID) Type {
	if id < 0 || int(id) >= len(p.types) {
		panic(fmt.Sprintf("tp: bad type id %d", id))
	}

	return p.types[id]
}

func (p *Pool) Kind(id ID) Kind { return p.At(id).Kind }

func (p *Pool) IsInt(id ID) bool   { return p.At(id).Kind == KindInt }
func (p *Pool) IsFloat(id ID) bool { return p.At(id).Kind == KindFloat }
func (p *Pool) IsPtr(id ID) bool   { return p.At(id).Kind == KindPtr }
func (p *Pool) IsVoid(id ID) bool  { return p.At(id).Kind == KindVoid }

func (p *Pool) IsSigned(id ID) bool {
	t := p.At(id)
	return t.Kind == KindInt && t.Signed
}

// Sizeof follows the System V x86-64 data model.
func (p *Pool) Sizeof(id ID) uint64 {
	t := p.At(id)

	switch t.Kind {
	case KindVoid, KindFunc:
		return 0
	case KindInt:
		if t.Bits == 1 {
			return 1
		}

		return uint64(t.Bits) / 8
	case KindFloat:
		return uint64(t.Bits) / 8
	case KindPtr:
		return 8
	case KindArray:
		return t.Len * p.Sizeof(t.Elem)
	case KindAggregate:
		var s uint64

		for _, f := range t.Fields {
			end := f.Offset + p.Sizeof(f.Type)
			if t.Union {
				end = p.Sizeof(f.Type)
			}

			s = max(s, end)
		}

		a := p.Alignof(id)
		if a != 0 && s%a != 0 {
			s += a - s%a
		}

		return s
	default:
		panic(fmt.Sprintf("tp: sizeof of kind %d", t.Kind))
	}
}

func (p *Pool) Alignof(id ID) uint64 {
	t := p.At(id)

	switch t.Kind {
	case KindVoid, KindFunc:
		return 1
	case KindInt, KindFloat, KindPtr:
		return p.Sizeof(id)
	case KindArray:
		return p.Alignof(t.Elem)
	case KindAggregate:
		var a uint64 = 1

		for _, f := range t.Fields {
			a = max(a, p.Alignof(f.Type))
		}

		return a
	default:
		panic(fmt.Sprintf("tp: alignof of kind %d", t.Kind))
	}
}

func (p *Pool) String(id ID) string {
	t := p.At(id)

	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		if t.Signed {
			return fmt.Sprintf("i%d", t.Bits)
		}

		return fmt.Sprintf("u%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindPtr:
		return p.String(t.Elem) + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.Len, p.String(t.Elem))
	case KindFunc:
		var sb strings.Builder

		sb.WriteString(p.String(t.Elem))
		sb.WriteByte('(')

		for i, in := range t.Params {
			if i != 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(p.String(in))
		}

		if t.Variadic {
			sb.WriteString(", ...")
		}

		sb.WriteByte(')')

		return sb.String()
	case KindAggregate:
		if t.Union {
			return "union " + t.Name
		}

		return "struct " + t.Name
	default:
		panic(fmt.Sprintf("tp: string of kind %d", t.Kind))
	}
}

func (p *Pool) intern(t Type) ID {
	k := keyOf(t)

	if id, ok := p.index[k]; ok {
		return id
	}

	n, err := safecast.Conv[int32](len(p.types))
	if err != nil {
		panic(fmt.Sprintf("tp: pool overflow: %v", err))
	}

	id := ID(n)
	p.types = append(p.types, t)
	p.index[k] = id

	return id
}

func keyOf(t Type) key {
	k := key{
		Kind:   t.Kind,
		Bits:   t.Bits,
		Signed: t.Signed,
		Elem:   t.Elem,
		Len:    t.Len,
		VarLen: t.VarLen,
		Static: t.Static,
	}

	switch t.Kind {
	case KindFunc:
		var sb strings.Builder

		for _, in := range t.Params {
			fmt.Fprintf(&sb, "%d,", in)
		}

		if t.Variadic {
			sb.WriteString("...")
		}

		k.Extra = sb.String()
	case KindAggregate:
		k.Extra = t.Name
	}

	return k
}
