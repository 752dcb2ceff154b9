package back

import (
	"fmt"
	"math"

	"github.com/minicc/minicc/compiler/ir"
)

type (
	RegTag uint8

	// x64 is a physical location a virtual register is bound to:
	// a register, a memory reference or an immediate.
	x64 interface {
		loc(size uint64) string
	}

	x64Reg struct {
		Tag RegTag
	}

	x64Mem struct {
		Label string // label(%rip) when set

		Off   int64
		Base  RegTag
		Index RegTag
		Scale int
	}

	x64Imm struct {
		Val ir.Operand // IntConst or FloatConst
	}
)

const (
	RegNone RegTag = iota

	Rip
	Rax
	Rbx
	Rcx
	Rdx
	Rsi
	Rdi
	Rbp
	Rsp
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	Xmm0
	Xmm1
	Xmm2
	Xmm3
	Xmm4
	Xmm5
	Xmm6
	Xmm7
	Xmm8
	Xmm9
	Xmm10
	Xmm11
	Xmm12
	Xmm13
	Xmm14
	Xmm15
)

var gprName = map[RegTag][4]string{
	// 8, 4, 2 and 1 byte names
	Rax: {"%rax", "%eax", "%ax", "%al"},
	Rbx: {"%rbx", "%ebx", "%bx", "%bl"},
	Rcx: {"%rcx", "%ecx", "%cx", "%cl"},
	Rdx: {"%rdx", "%edx", "%dx", "%dl"},
	Rsi: {"%rsi", "%esi", "%si", "%sil"},
	Rdi: {"%rdi", "%edi", "%di", "%dil"},
	Rbp: {"%rbp", "%ebp", "%bp", "%bpl"},
	Rsp: {"%rsp", "%esp", "%sp", "%spl"},
	R8:  {"%r8", "%r8d", "%r8w", "%r8b"},
	R9:  {"%r9", "%r9d", "%r9w", "%r9b"},
	R10: {"%r10", "%r10d", "%r10w", "%r10b"},
	R11: {"%r11", "%r11d", "%r11w", "%r11b"},
	R12: {"%r12", "%r12d", "%r12w", "%r12b"},
	R13: {"%r13", "%r13d", "%r13w", "%r13b"},
	R14: {"%r14", "%r14d", "%r14w", "%r14b"},
	R15: {"%r15", "%r15d", "%r15w", "%r15b"},
}

func (t RegTag) IsVec() bool { return t >= Xmm0 }

// Name renders the register at the given operand size in bytes.
func (t RegTag) Name(size uint64) string {
	if t == Rip {
		return "%rip"
	}

	if t.IsVec() {
		return fmt.Sprintf("%%xmm%d", int(t-Xmm0))
	}

	n := gprName[t]

	switch size {
	case 8, 0:
		return n[0]
	case 4:
		return n[1]
	case 2:
		return n[2]
	default:
		return n[3]
	}
}

func (r x64Reg) loc(size uint64) string {
	return r.Tag.Name(size)
}

func (m x64Mem) loc(uint64) string {
	if m.Label != "" {
		return m.Label + "(%rip)"
	}

	s := ""
	if m.Off != 0 {
		s = fmt.Sprintf("%d", m.Off)
	}

	if m.Base == RegNone && m.Index == RegNone {
		return s
	}

	s += "("

	if m.Base != RegNone {
		s += m.Base.Name(8)
	}

	if m.Index != RegNone {
		s += ", " + m.Index.Name(8)

		if m.Scale != 0 {
			s += fmt.Sprintf(", %d", m.Scale)
		}
	}

	return s + ")"
}

func (i x64Imm) loc(uint64) string {
	switch v := i.Val.(type) {
	case ir.IntConst:
		return fmt.Sprintf("$%d", int64(v.Val))
	case ir.FloatConst:
		// the raw bit pattern, materialized through a gpr
		return fmt.Sprintf("$%d", int64(math.Float64bits(v.Val)))
	default:
		panic("back: bad immediate")
	}
}

// callerSaved covers the registers a call may clobber, argument
// registers included.
func callerSaved(t RegTag) bool {
	switch t {
	case Rax, Rcx, Rdx, Rsi, Rdi, R8, R9, R10, R11:
		return true
	}

	return t >= Xmm0 && t <= Xmm7
}

func calleeSaved(t RegTag) bool {
	switch t {
	case Rbx, R12, R13, R14, R15, Rbp:
		return true
	}

	return t >= Xmm8
}
