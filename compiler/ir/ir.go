package ir

import (
	"github.com/minicc/minicc/compiler/tp"
)

type (
	// Operand is a value an instruction consumes or produces.
	// Constants have no definition site. Register names starting with %
	// are function locals, @ marks linker symbols.
	Operand interface {
		TypeID() tp.ID
	}

	IntConst struct {
		Val  uint64
		Type tp.ID
	}

	FloatConst struct {
		Val  float64
		Type tp.ID
	}

	Reg struct {
		Name string
		Type tp.ID
	}

	// Instr is one of the instruction structs below.
	Instr any

	BinOp  uint8
	CmpOp  uint8
	ConvOp uint8

	Bin struct {
		Op   BinOp
		Res  *Reg
		L, R Operand
	}

	Cmp struct {
		Op   CmpOp
		Res  *Reg
		L, R Operand
	}

	Conv struct {
		Op  ConvOp
		Res *Reg
		Val Operand
	}

	Alloca struct {
		Res  *Reg // pointer to Elem
		Elem tp.ID
	}

	Load struct {
		Res  *Reg
		Addr Operand
	}

	Store struct {
		Val  Operand
		Addr Operand
	}

	// GetElePtr computes Base + Index*Scale + Off without loading.
	GetElePtr struct {
		Res   *Reg
		Base  Operand
		Index Operand // nil if only Off applies
		Scale uint64
		Off   uint64
	}

	// Br is conditional if Cond is set, unconditional otherwise.
	Br struct {
		Cond Operand
		Then *Block
		Else *Block
	}

	Ret struct {
		Val Operand // nil for void
	}

	SwitchCase struct {
		Val IntConst
		Dst *Block
	}

	Switch struct {
		Scrut   Operand
		Default *Block
		Cases   []SwitchCase
	}

	Call struct {
		Res    *Reg // nil for void
		Callee Operand
		FType  tp.ID
		Args   []Operand
	}

	Select struct {
		Res  *Reg
		Cond Operand
		T, F Operand
	}

	PhiIn struct {
		B   *Block
		Val Operand
	}

	Phi struct {
		Res *Reg
		Ins []PhiIn
	}
)

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLshr
	OpAshr

	OpFadd
	OpFsub
	OpFmul
	OpFdiv
)

const (
	CmpEQ CmpOp = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

const (
	ConvTrunc ConvOp = iota
	ConvFtrunc
	ConvZext
	ConvSext
	ConvFext
	ConvFtoU
	ConvFtoS
	ConvUtoF
	ConvStoF
	ConvPtrtoI
	ConvItoPtr
	ConvBitcast
)

func (x IntConst) TypeID() tp.ID   { return x.Type }
func (x FloatConst) TypeID() tp.ID { return x.Type }
func (x *Reg) TypeID() tp.ID       { return x.Type }

func (x BinOp) IsFloat() bool { return x >= OpFadd }

func (x *Reg) IsGlobal() bool {
	return len(x.Name) != 0 && x.Name[0] == '@'
}

// Result returns the register an instruction defines, nil if none.
func Result(x Instr) *Reg {
	switch x := x.(type) {
	case Bin:
		return x.Res
	case Cmp:
		return x.Res
	case Conv:
		return x.Res
	case Alloca:
		return x.Res
	case Load:
		return x.Res
	case GetElePtr:
		return x.Res
	case Call:
		return x.Res
	case Select:
		return x.Res
	case Phi:
		return x.Res
	case Store, Br, Ret, Switch:
		return nil
	default:
		panic("ir: not an instruction")
	}
}

// Uses returns the operands an instruction reads, in operand order.
func Uses(x Instr) []Operand {
	switch x := x.(type) {
	case Bin:
		return []Operand{x.L, x.R}
	case Cmp:
		return []Operand{x.L, x.R}
	case Conv:
		return []Operand{x.Val}
	case Alloca:
		return nil
	case Load:
		return []Operand{x.Addr}
	case Store:
		return []Operand{x.Val, x.Addr}
	case GetElePtr:
		if x.Index == nil {
			return []Operand{x.Base}
		}

		return []Operand{x.Base, x.Index}
	case Br:
		if x.Cond == nil {
			return nil
		}

		return []Operand{x.Cond}
	case Ret:
		if x.Val == nil {
			return nil
		}

		return []Operand{x.Val}
	case Switch:
		return []Operand{x.Scrut}
	case Call:
		ops := make([]Operand, 0, len(x.Args)+1)
		ops = append(ops, x.Callee)
		ops = append(ops, x.Args...)

		return ops
	case Select:
		return []Operand{x.Cond, x.T, x.F}
	case Phi:
		ops := make([]Operand, len(x.Ins))
		for i, in := range x.Ins {
			ops[i] = in.Val
		}

		return ops
	default:
		panic("ir: not an instruction")
	}
}

// IsTerm reports whether the instruction ends a basic block.
func IsTerm(x Instr) bool {
	switch x.(type) {
	case Br, Ret, Switch:
		return true
	default:
		return false
	}
}

// Targets returns the successor blocks of a terminator, deduplicated
// in target order. Non-terminators have none.
func Targets(x Instr) []*Block {
	switch x := x.(type) {
	case Br:
		if x.Cond == nil || x.Then == x.Else {
			return []*Block{x.Then}
		}

		return []*Block{x.Then, x.Else}
	case Switch:
		seen := make(map[*Block]bool, len(x.Cases)+1)
		dst := make([]*Block, 0, len(x.Cases)+1)

		add := func(b *Block) {
			if b == nil || seen[b] {
				return
			}

			seen[b] = true
			dst = append(dst, b)
		}

		add(x.Default)
		for _, c := range x.Cases {
			add(c.Dst)
		}

		return dst
	default:
		return nil
	}
}
