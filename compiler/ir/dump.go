package ir

import (
	"fmt"
	"strconv"

	"github.com/minicc/minicc/compiler/tp"
)

var binName = map[BinOp]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpLshr: "lshr", OpAshr: "ashr",
	OpFadd: "fadd", OpFsub: "fsub", OpFmul: "fmul", OpFdiv: "fdiv",
}

var cmpName = map[CmpOp]string{
	CmpEQ: "eq", CmpNE: "ne", CmpLT: "lt", CmpLE: "le", CmpGT: "gt", CmpGE: "ge",
}

var convName = map[ConvOp]string{
	ConvTrunc: "trunc", ConvFtrunc: "ftrunc",
	ConvZext: "zext", ConvSext: "sext", ConvFext: "fext",
	ConvFtoU: "ftou", ConvFtoS: "ftos", ConvUtoF: "utof", ConvStoF: "stof",
	ConvPtrtoI: "ptrtoi", ConvItoPtr: "itoptr", ConvBitcast: "bitcast",
}

func (x BinOp) String() string  { return binName[x] }
func (x CmpOp) String() string  { return cmpName[x] }
func (x ConvOp) String() string { return convName[x] }

// Dump renders the module in its textual form. The dump is one way,
// it is never parsed back.
func (m *Module) Dump(b []byte) []byte {
	b = fmt.Appendf(b, "module %s:\n", m.Name)

	for _, s := range m.Syms {
		b = append(b, '\n')

		switch s := s.(type) {
		case *Function:
			b = s.dump(b, m.Types)
		case *GlobalVar:
			b = s.dump(b, m.Types)
		}
	}

	return b
}

func (g *GlobalVar) dump(b []byte, types *tp.Pool) []byte {
	b = fmt.Appendf(b, "%s %s", types.String(g.Type), g.Name)

	switch {
	case g.Init == nil:
	case g.Init.Const != nil:
		b = append(b, " = "...)
		b = appendOperand(b, types, g.Init.Const, false)
	default:
		b = fmt.Appendf(b, " = %s", g.Init.Sym)

		if g.Init.Off != 0 {
			b = fmt.Appendf(b, "%+d", g.Init.Off)
		}
	}

	b = append(b, ";\n"...)

	return b
}

func (f *Function) dump(b []byte, types *tp.Pool) []byte {
	b = fmt.Appendf(b, "def %s ", types.String(f.ReturnType()))

	if f.Inline {
		b = append(b, "inline "...)
	}
	if f.Noreturn {
		b = append(b, "noreturn "...)
	}

	b = append(b, f.Name...)
	b = append(b, '(')

	ft := types.At(f.Type)

	for i, in := range ft.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, types.String(in)...)

		if i < len(f.Params) {
			b = fmt.Appendf(b, " %s", f.Params[i].Name)
		}
	}

	if ft.Variadic {
		b = append(b, ", ..."...)
	}

	b = append(b, ')')

	if f.Extern() {
		b = append(b, ";\n"...)
		return b
	}

	b = append(b, " {\n"...)

	for _, blk := range f.Blocks {
		if blk.Name != "" {
			b = fmt.Appendf(b, "%s:\n", blk.Name)
		}

		for _, x := range blk.Instrs {
			b = append(b, "    "...)
			b = appendInstr(b, types, x)
			b = append(b, ";\n"...)
		}
	}

	b = append(b, "}\n"...)

	return b
}

func appendInstr(b []byte, types *tp.Pool, x Instr) []byte {
	switch x := x.(type) {
	case Bin:
		b = fmt.Appendf(b, "%s = %s %s ", x.Res.Name, x.Op, types.String(x.Res.Type))
		b = appendOperand(b, types, x.L, false)
		b = append(b, ", "...)
		b = appendOperand(b, types, x.R, false)
	case Cmp:
		kind := "icmp"
		if types.IsFloat(x.L.TypeID()) {
			kind = "fcmp"
		}

		b = fmt.Appendf(b, "%s = %s %s %s ", x.Res.Name, kind, x.Op, types.String(x.L.TypeID()))
		b = appendOperand(b, types, x.L, false)
		b = append(b, ", "...)
		b = appendOperand(b, types, x.R, false)
	case Conv:
		b = fmt.Appendf(b, "%s = %s %s ", x.Res.Name, x.Op, types.String(x.Res.Type))
		b = appendOperand(b, types, x.Val, true)
	case Alloca:
		b = fmt.Appendf(b, "%s = alloca %s", x.Res.Name, types.String(x.Elem))
	case Load:
		b = fmt.Appendf(b, "%s = load %s ", x.Res.Name, types.String(x.Res.Type))
		b = appendOperand(b, types, x.Addr, false)
	case Store:
		b = append(b, "store "...)
		b = appendOperand(b, types, x.Val, true)
		b = append(b, ", "...)
		b = appendOperand(b, types, x.Addr, false)
	case GetElePtr:
		b = fmt.Appendf(b, "%s = geteleptr %s ", x.Res.Name, types.String(x.Res.Type))
		b = appendOperand(b, types, x.Base, false)

		if x.Index != nil {
			b = append(b, ", "...)
			b = appendOperand(b, types, x.Index, false)
			b = fmt.Appendf(b, " x %d", x.Scale)
		}

		if x.Off != 0 {
			b = fmt.Appendf(b, " +%d", x.Off)
		}
	case Br:
		if x.Cond == nil {
			b = fmt.Appendf(b, "br %%%s", x.Then.Name)
			break
		}

		b = append(b, "br "...)
		b = appendOperand(b, types, x.Cond, false)
		b = fmt.Appendf(b, " %%%s %%%s", x.Then.Name, x.Else.Name)
	case Ret:
		b = append(b, "ret"...)

		if x.Val != nil {
			b = append(b, ' ')
			b = appendOperand(b, types, x.Val, true)
		}
	case Switch:
		b = append(b, "switch "...)
		b = appendOperand(b, types, x.Scrut, true)
		b = fmt.Appendf(b, ", default %%%s", x.Default.Name)

		for _, c := range x.Cases {
			b = fmt.Appendf(b, ", %d %%%s", c.Val.Val, c.Dst.Name)
		}
	case Call:
		if x.Res != nil {
			b = fmt.Appendf(b, "%s = ", x.Res.Name)
		}

		b = append(b, "call "...)
		b = appendOperand(b, types, x.Callee, false)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = appendOperand(b, types, a, true)
		}

		b = append(b, ')')
	case Select:
		b = fmt.Appendf(b, "%s = select ", x.Res.Name)
		b = appendOperand(b, types, x.Cond, false)
		b = append(b, ", "...)
		b = appendOperand(b, types, x.T, true)
		b = append(b, ", "...)
		b = appendOperand(b, types, x.F, true)
	case Phi:
		b = fmt.Appendf(b, "%s = phi", x.Res.Name)

		for i, in := range x.Ins {
			if i != 0 {
				b = append(b, ',')
			}

			b = fmt.Appendf(b, " [%%%s ", in.B.Name)
			b = appendOperand(b, types, in.Val, false)
			b = append(b, ']')
		}
	default:
		b = fmt.Appendf(b, "?%T", x)
	}

	return b
}

func appendOperand(b []byte, types *tp.Pool, o Operand, typed bool) []byte {
	if typed {
		b = append(b, types.String(o.TypeID())...)
		b = append(b, ' ')
	}

	switch o := o.(type) {
	case IntConst:
		if types.IsSigned(o.Type) {
			b = strconv.AppendInt(b, int64(o.Val), 10)
		} else {
			b = strconv.AppendUint(b, o.Val, 10)
		}
	case FloatConst:
		b = strconv.AppendFloat(b, o.Val, 'g', -1, 64)
	case *Reg:
		b = append(b, o.Name...)
	default:
		b = fmt.Appendf(b, "?%T", o)
	}

	return b
}
