package back

import (
	"github.com/minicc/minicc/compiler/tp"
)

type (
	// ArgLoc is where the System V convention places one argument.
	ArgLoc struct {
		Reg   RegTag // RegNone when the argument goes to the stack
		Off   int64  // offset into the outgoing argument area
		Float bool
	}

	// SysVConv classifies the arguments of one call or function type.
	SysVConv struct {
		Args []ArgLoc

		IntRegs  int // integer registers consumed
		VecRegs  int // vector registers consumed
		StackLen int64
	}
)

var (
	intArgRegs = []RegTag{Rdi, Rsi, Rdx, Rcx, R8, R9}
	vecArgRegs = []RegTag{Xmm0, Xmm1, Xmm2, Xmm3, Xmm4, Xmm5, Xmm6, Xmm7}
)

// Classify places each argument type per System V: the first six
// integer and first eight floating arguments in registers, the rest
// on the stack in eight byte slots.
func Classify(types *tp.Pool, args []tp.ID) *SysVConv {
	c := &SysVConv{
		Args: make([]ArgLoc, len(args)),
	}

	for i, t := range args {
		float := types.IsFloat(t)

		switch {
		case float && c.VecRegs < len(vecArgRegs):
			c.Args[i] = ArgLoc{Reg: vecArgRegs[c.VecRegs], Float: true}
			c.VecRegs++
		case !float && c.IntRegs < len(intArgRegs):
			c.Args[i] = ArgLoc{Reg: intArgRegs[c.IntRegs]}
			c.IntRegs++
		default:
			c.Args[i] = ArgLoc{Reg: RegNone, Off: c.StackLen, Float: float}
			c.StackLen += 8
		}
	}

	return c
}
