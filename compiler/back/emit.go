package back

import (
	"context"
	"fmt"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/tp"
)

type (
	Compiler struct{}

	emitter struct {
		b []byte

		types *tp.Pool
		f     *ir.Function
		a     *Alloc
		du    *DUInfo

		pushes []RegTag
		vecSave map[RegTag]int64
		shift   int64 // pushed callee saved bytes between rbp and locals
		frame   int64

		lid int // local labels for selects and float compares
	}
)

func New() *Compiler {
	return nil
}

// CompileModule lowers every allocated function and global to AT&T
// syntax text.
func (c *Compiler) CompileModule(ctx context.Context, b []byte, m *ir.Module) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile module", "name", m.Name)
	defer tr.Finish("err", &err)

	b = fmt.Appendf(b, "// module %s\n", m.Name)

	for _, s := range m.Syms {
		g, ok := s.(*ir.GlobalVar)
		if !ok {
			continue
		}

		b, err = c.emitGlobal(b, m.Types, g)
		if err != nil {
			return nil, errors.Wrap(err, "global %v", g.Name)
		}
	}

	for _, s := range m.Syms {
		f, ok := s.(*ir.Function)
		if !ok || f.Extern() {
			continue
		}

		b, err = c.compileFunc(ctx, b, m, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

// compileFunc runs the full per function pipeline: cfg, dominators,
// def use, allocation, emission. A failed stage skips the rest.
func (c *Compiler) compileFunc(ctx context.Context, b []byte, m *ir.Module, f *ir.Function) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "func", "name", f.Name)
	defer tr.Finish("err", &err)

	cfg, err := BuildCFG(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "cfg")
	}

	dom := BuildDominators(ctx, cfg)
	_ = dom // computed for inspection dumps; emission is layout driven

	du, err := BuildDefUse(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "def use")
	}

	a, err := Allocate(ctx, m.Types, f, du)
	if err != nil {
		return nil, errors.Wrap(err, "allocate")
	}

	e := &emitter{
		b:       b,
		types:   m.Types,
		f:       f,
		a:       a,
		du:      du,
		vecSave: map[RegTag]int64{},
	}

	err = e.fn()
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	return e.b, nil
}

func (e *emitter) fn() error {
	e.pushes = e.a.UsedCalleeSaved()
	e.shift = int64(8 * len(e.pushes))

	for _, t := range []RegTag{Xmm8, Xmm9, Xmm10} {
		if e.a.Used[t] {
			e.vecSave[t] = e.a.stackSlot(8, 8)
		}
	}

	e.frame = e.a.FrameSize(len(e.pushes))

	e.p("\n.text")
	e.p(".globl %s", e.f.Name)
	e.p("%s:", e.f.Name)

	// prologue
	e.p("\tpushq %%rbp")
	e.p("\tmovq %%rsp, %%rbp")

	for _, t := range e.pushes {
		e.p("\tpushq %s", t.Name(8))
	}

	if e.frame > 0 {
		e.p("\tsubq $%d, %%rsp", e.frame)
	}

	for _, t := range []RegTag{Xmm8, Xmm9, Xmm10} {
		if off, ok := e.vecSave[t]; ok {
			e.p("\tmovsd %s, %s", t.Name(8), e.rbp(-off))
		}
	}

	e.spilledParams()

	for _, b := range e.f.Blocks {
		e.p("%s:", e.label(b))

		for _, x := range b.Instrs {
			err := e.instr(x)
			if err != nil {
				return errors.Wrap(err, "block %v", b.Name)
			}
		}
	}

	return nil
}

// spilledParams stores incoming register arguments whose binding
// landed on the stack.
func (e *emitter) spilledParams() {
	ft := e.types.At(e.f.Type)
	conv := Classify(e.types, ft.Params)

	for i, p := range e.f.Params {
		l := conv.Args[i]
		if l.Reg == RegNone {
			continue
		}

		m, ok := e.a.Loc(p).(x64Mem)
		if !ok {
			continue
		}

		if l.Float {
			e.p("\tmovsd %s, %s", l.Reg.Name(8), e.mem(m))
		} else {
			e.p("\tmovq %s, %s", l.Reg.Name(8), e.mem(m))
		}
	}
}

func (e *emitter) epilogue() {
	for _, t := range []RegTag{Xmm8, Xmm9, Xmm10} {
		if off, ok := e.vecSave[t]; ok {
			e.p("\tmovsd %s, %s", e.rbp(-off), t.Name(8))
		}
	}

	if e.frame > 0 {
		e.p("\taddq $%d, %%rsp", e.frame)
	}

	for i := len(e.pushes) - 1; i >= 0; i-- {
		e.p("\tpopq %s", e.pushes[i].Name(8))
	}

	e.p("\tpopq %%rbp")
	e.p("\tret")
}

func (e *emitter) instr(x ir.Instr) error {
	switch x := x.(type) {
	case ir.Alloca:
		// frame space only, nothing to execute
	case ir.Bin:
		e.bin(x)
	case ir.Cmp:
		e.cmpInstr(x)
	case ir.Conv:
		e.conv(x)
	case ir.Load:
		e.load(x)
	case ir.Store:
		e.store(x)
	case ir.GetElePtr:
		e.gep(x)
	case ir.Br:
		e.brInstr(x)
	case ir.Ret:
		e.ret(x)
	case ir.Switch:
		e.swtch(x)
	case ir.Call:
		e.call(x)
	case ir.Select:
		e.sel(x)
	case ir.Phi:
		panic("back: phi reached the emitter, the allocator cannot honor it")
	default:
		return errors.New("unsupported instruction %T", x)
	}

	return nil
}

// operand plumbing

func (e *emitter) p(format string, args ...any) {
	e.b = fmt.Appendf(e.b, format, args...)
	e.b = append(e.b, '\n')
}

func (e *emitter) label(b *ir.Block) string {
	return fmt.Sprintf(".L%s_%s", e.f.Name, b.Name)
}

func (e *emitter) local() string {
	e.lid++
	return fmt.Sprintf(".L%s_x%d", e.f.Name, e.lid)
}

func (e *emitter) rbp(off int64) string {
	return fmt.Sprintf("%d(%%rbp)", off-e.shift)
}

// mem renders a memory binding, shifting frame offsets below the
// pushed callee saved area.
func (e *emitter) mem(m x64Mem) string {
	if m.Base == Rbp && m.Off < 0 {
		return e.rbp(m.Off)
	}

	return m.loc(8)
}

func sizeSuffix(size uint64) string {
	switch size {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	default:
		return "q"
	}
}

func fltSuffix(size uint64) string {
	if size == 4 {
		return "ss"
	}

	return "sd"
}

func (e *emitter) size(t tp.ID) uint64 {
	s := e.types.Sizeof(t)
	if s == 0 || s > 8 {
		return 8
	}

	return s
}

// ld loads the value of an operand into a scratch register. Alloca
// results stand for their frame address.
func (e *emitter) ld(o ir.Operand, dst RegTag) {
	size := e.size(o.TypeID())
	float := e.types.IsFloat(o.TypeID())

	switch v := o.(type) {
	case ir.IntConst:
		if n := int64(v.Val); size == 8 && (n > math.MaxInt32 || n < math.MinInt32) {
			e.p("\tmovabsq $%d, %s", n, dst.Name(8))
			return
		}

		e.p("\tmov%s $%d, %s", sizeSuffix(size), int64(v.Val), dst.Name(size))
		return
	case ir.FloatConst:
		bits := int64(math.Float64bits(v.Val))
		if size == 4 {
			bits = int64(math.Float32bits(float32(v.Val)))
		}

		e.p("\tmovabsq $%d, %%r11", bits)
		e.p("\tmovq %%r11, %s", dst.Name(8))

		return
	case *ir.Reg:
		if v.IsGlobal() {
			e.p("\tleaq %s(%%rip), %s", v.Name[1:], dst.Name(8))
			return
		}

		if e.du.Alloca[v.Name] {
			m := e.a.Loc(v).(x64Mem)
			e.p("\tleaq %s, %s", e.mem(m), dst.Name(8))

			return
		}

		switch l := e.a.Loc(v).(type) {
		case x64Reg:
			e.movRR(l.Tag, dst, size, float)
		case x64Mem:
			if float {
				e.p("\tmov%s %s, %s", fltSuffix(size), e.mem(l), dst.Name(size))
			} else {
				e.p("\tmov%s %s, %s", sizeSuffix(size), e.mem(l), dst.Name(size))
			}
		default:
			panic("back: bad register binding")
		}

		return
	}

	panic("back: bad operand")
}

func (e *emitter) movRR(src, dst RegTag, size uint64, float bool) {
	if src == dst {
		return
	}

	switch {
	case float && src.IsVec() == dst.IsVec():
		e.p("\tmov%s %s, %s", fltSuffix(size), src.Name(size), dst.Name(size))
	case src.IsVec() != dst.IsVec():
		e.p("\tmovq %s, %s", src.Name(8), dst.Name(8))
	default:
		e.p("\tmov%s %s, %s", sizeSuffix(size), src.Name(size), dst.Name(size))
	}
}

// st moves a computed value from a scratch register into the binding
// of the result, spilled results store straight to their slot.
func (e *emitter) st(src RegTag, r *ir.Reg) {
	size := e.size(r.Type)
	float := e.types.IsFloat(r.Type)

	switch l := e.a.Loc(r).(type) {
	case x64Reg:
		e.movRR(src, l.Tag, size, float)
	case x64Mem:
		if float {
			e.p("\tmov%s %s, %s", fltSuffix(size), src.Name(size), e.mem(l))
		} else {
			e.p("\tmov%s %s, %s", sizeSuffix(size), src.Name(size), e.mem(l))
		}
	default:
		panic("back: bad result binding")
	}
}

// instruction lowering

func (e *emitter) bin(x ir.Bin) {
	size := e.size(x.Res.Type)

	if x.Op.IsFloat() {
		fs := fltSuffix(size)

		e.ldf(x.L, Xmm14, size)
		e.ldf(x.R, Xmm15, size)

		var op string

		switch x.Op {
		case ir.OpFadd:
			op = "add" + fs
		case ir.OpFsub:
			op = "sub" + fs
		case ir.OpFmul:
			op = "mul" + fs
		case ir.OpFdiv:
			op = "div" + fs
		}

		e.p("\t%s %s, %s", op, Xmm15.Name(size), Xmm14.Name(size))
		e.st(Xmm14, x.Res)

		return
	}

	ss := sizeSuffix(size)
	signed := e.types.IsSigned(x.Res.Type)

	e.ld(x.L, Rax)

	switch x.Op {
	case ir.OpDiv, ir.OpMod:
		e.ld(x.R, Rcx)

		if signed {
			if size == 8 {
				e.p("\tcqto")
			} else {
				e.p("\tcltd")
			}

			e.p("\tidiv%s %s", ss, Rcx.Name(size))
		} else {
			e.p("\txorl %%edx, %%edx")
			e.p("\tdiv%s %s", ss, Rcx.Name(size))
		}

		if x.Op == ir.OpMod {
			e.st(Rdx, x.Res)
		} else {
			e.st(Rax, x.Res)
		}

		return
	case ir.OpShl, ir.OpLshr, ir.OpAshr:
		e.ld(x.R, Rcx)

		op := map[ir.BinOp]string{ir.OpShl: "shl", ir.OpLshr: "shr", ir.OpAshr: "sar"}[x.Op]
		e.p("\t%s%s %%cl, %s", op, ss, Rax.Name(size))
		e.st(Rax, x.Res)

		return
	}

	e.ld(x.R, R11)

	op := map[ir.BinOp]string{
		ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "imul",
		ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor",
	}[x.Op]

	e.p("\t%s%s %s, %s", op, ss, R11.Name(size), Rax.Name(size))
	e.st(Rax, x.Res)
}

// ldf loads a float operand into an xmm scratch register.
func (e *emitter) ldf(o ir.Operand, dst RegTag, size uint64) {
	switch v := o.(type) {
	case ir.FloatConst:
		bits := int64(math.Float64bits(v.Val))
		if size == 4 {
			bits = int64(math.Float32bits(float32(v.Val)))
		}

		e.p("\tmovabsq $%d, %%r11", bits)
		e.p("\tmovq %%r11, %s", dst.Name(8))
	default:
		e.ld(o, dst)
	}
}

func (e *emitter) cmpInstr(x ir.Cmp) {
	size := e.size(x.L.TypeID())

	var cc string

	if e.types.IsFloat(x.L.TypeID()) {
		e.ldf(x.L, Xmm14, size)
		e.ldf(x.R, Xmm15, size)

		e.p("\tucomi%s %s, %s", fltSuffix(size), Xmm15.Name(size), Xmm14.Name(size))
		cc = map[ir.CmpOp]string{
			ir.CmpEQ: "e", ir.CmpNE: "ne",
			ir.CmpLT: "b", ir.CmpLE: "be", ir.CmpGT: "a", ir.CmpGE: "ae",
		}[x.Op]
	} else {
		e.ld(x.L, Rax)
		e.ld(x.R, R11)

		e.p("\tcmp%s %s, %s", sizeSuffix(size), R11.Name(size), Rax.Name(size))

		if e.types.IsSigned(x.L.TypeID()) {
			cc = map[ir.CmpOp]string{
				ir.CmpEQ: "e", ir.CmpNE: "ne",
				ir.CmpLT: "l", ir.CmpLE: "le", ir.CmpGT: "g", ir.CmpGE: "ge",
			}[x.Op]
		} else {
			cc = map[ir.CmpOp]string{
				ir.CmpEQ: "e", ir.CmpNE: "ne",
				ir.CmpLT: "b", ir.CmpLE: "be", ir.CmpGT: "a", ir.CmpGE: "ae",
			}[x.Op]
		}
	}

	e.p("\tset%s %%al", cc)
	e.st(Rax, x.Res)
}

func (e *emitter) conv(x ir.Conv) {
	from := x.Val.TypeID()
	to := x.Res.Type

	fs, ts := e.size(from), e.size(to)

	switch x.Op {
	case ir.ConvTrunc, ir.ConvPtrtoI, ir.ConvItoPtr, ir.ConvBitcast:
		e.ld(x.Val, Rax)
		e.st(Rax, x.Res)
	case ir.ConvZext:
		e.ld(x.Val, Rax)

		switch fs {
		case 1:
			e.p("\tmovzbq %%al, %%rax")
		case 2:
			e.p("\tmovzwq %%ax, %%rax")
		case 4:
			e.p("\tmovl %%eax, %%eax")
		}

		e.st(Rax, x.Res)
	case ir.ConvSext:
		e.ld(x.Val, Rax)

		switch fs {
		case 1:
			e.p("\tmovsbq %%al, %%rax")
		case 2:
			e.p("\tmovswq %%ax, %%rax")
		case 4:
			e.p("\tcltq")
		}

		e.st(Rax, x.Res)
	case ir.ConvFext:
		e.ldf(x.Val, Xmm14, 4)
		e.p("\tcvtss2sd %%xmm14, %%xmm14")
		e.st(Xmm14, x.Res)
	case ir.ConvFtrunc:
		e.ldf(x.Val, Xmm14, 8)
		e.p("\tcvtsd2ss %%xmm14, %%xmm14")
		e.st(Xmm14, x.Res)
	case ir.ConvStoF, ir.ConvUtoF:
		e.ld(x.Val, Rax)

		if fs < 8 {
			if e.types.IsSigned(from) {
				e.p("\tcltq")
			} else {
				e.p("\tmovl %%eax, %%eax")
			}
		}

		e.p("\tcvtsi2%sq %%rax, %%xmm14", fltSuffix(ts))
		e.st(Xmm14, x.Res)
	case ir.ConvFtoS, ir.ConvFtoU:
		e.ldf(x.Val, Xmm14, fs)
		e.p("\tcvtt%s2siq %s, %%rax", fltSuffix(fs), Xmm14.Name(fs))
		e.st(Rax, x.Res)
	}
}

// addr loads the address an operand points at into dst. Alloca
// results address their slot, spilled pointers reload first.
func (e *emitter) addr(o ir.Operand, dst RegTag) {
	r, ok := o.(*ir.Reg)
	if !ok {
		panic("back: address operand is not a register")
	}

	switch {
	case r.IsGlobal():
		e.p("\tleaq %s(%%rip), %s", r.Name[1:], dst.Name(8))
	case e.du.Alloca[r.Name]:
		m := e.a.Loc(r).(x64Mem)
		e.p("\tleaq %s, %s", e.mem(m), dst.Name(8))
	default:
		switch l := e.a.Loc(r).(type) {
		case x64Reg:
			e.movRR(l.Tag, dst, 8, false)
		case x64Mem:
			e.p("\tmovq %s, %s", e.mem(l), dst.Name(8))
		}
	}
}

func (e *emitter) load(x ir.Load) {
	size := e.size(x.Res.Type)
	float := e.types.IsFloat(x.Res.Type)

	e.addr(x.Addr, Rax)

	if float {
		e.p("\tmov%s (%%rax), %s", fltSuffix(size), Xmm14.Name(size))
		e.st(Xmm14, x.Res)

		return
	}

	e.p("\tmov%s (%%rax), %s", sizeSuffix(size), Rax.Name(size))
	e.st(Rax, x.Res)
}

func (e *emitter) store(x ir.Store) {
	size := e.size(x.Val.TypeID())
	float := e.types.IsFloat(x.Val.TypeID())

	e.addr(x.Addr, R10)

	if float {
		e.ldf(x.Val, Xmm14, size)
		e.p("\tmov%s %s, (%%r10)", fltSuffix(size), Xmm14.Name(size))

		return
	}

	e.ld(x.Val, Rax)
	e.p("\tmov%s %s, (%%r10)", sizeSuffix(size), Rax.Name(size))
}

func (e *emitter) gep(x ir.GetElePtr) {
	e.addr(x.Base, Rax)

	if x.Index != nil {
		e.ld(x.Index, R11)

		if x.Scale > 1 {
			e.p("\timulq $%d, %%r11", x.Scale)
		}

		e.p("\taddq %%r11, %%rax")
	}

	if x.Off != 0 {
		e.p("\taddq $%d, %%rax", x.Off)
	}

	e.st(Rax, x.Res)
}

func (e *emitter) brInstr(x ir.Br) {
	if x.Cond == nil {
		e.p("\tjmp %s", e.label(x.Then))
		return
	}

	e.ld(x.Cond, Rax)
	e.p("\ttestb %%al, %%al")
	e.p("\tjne %s", e.label(x.Then))
	e.p("\tjmp %s", e.label(x.Else))
}

func (e *emitter) ret(x ir.Ret) {
	if x.Val != nil {
		if e.types.IsFloat(x.Val.TypeID()) {
			e.ldf(x.Val, Xmm0, e.size(x.Val.TypeID()))
		} else {
			e.ld(x.Val, Rax)
		}
	}

	e.epilogue()
}

// swtch lowers to a dense comparison chain, a jump table is out of
// scope for this backend.
func (e *emitter) swtch(x ir.Switch) {
	size := e.size(x.Scrut.TypeID())

	e.ld(x.Scrut, Rax)

	for _, c := range x.Cases {
		e.p("\tcmp%s $%d, %s", sizeSuffix(size), int64(c.Val.Val), Rax.Name(size))
		e.p("\tje %s", e.label(c.Dst))
	}

	e.p("\tjmp %s", e.label(x.Default))
}

func (e *emitter) call(x ir.Call) {
	argTypes := make([]tp.ID, len(x.Args))
	for i, a := range x.Args {
		argTypes[i] = a.TypeID()
	}

	conv := Classify(e.types, argTypes)

	// overflow arguments go right to left, padded to keep rsp
	// 16 byte aligned at the call
	nstack := 0
	for _, l := range conv.Args {
		if l.Reg == RegNone {
			nstack++
		}
	}

	pad := int64(0)
	if nstack%2 != 0 {
		pad = 8
		e.p("\tsubq $8, %%rsp")
	}

	for i := len(x.Args) - 1; i >= 0; i-- {
		if conv.Args[i].Reg != RegNone {
			continue
		}

		e.ld(x.Args[i], Rax)
		e.p("\tpushq %%rax")
	}

	for i, l := range conv.Args {
		if l.Reg == RegNone {
			continue
		}

		if l.Float {
			e.ldf(x.Args[i], l.Reg, e.size(argTypes[i]))
		} else {
			e.ld(x.Args[i], l.Reg)
		}
	}

	ft := e.types.At(x.FType)
	if ft.Variadic {
		e.p("\tmovl $%d, %%eax", conv.VecRegs)
	}

	if r, ok := x.Callee.(*ir.Reg); ok && r.IsGlobal() {
		e.p("\tcall %s", r.Name[1:])
	} else {
		e.ld(x.Callee, R11)
		e.p("\tcall *%%r11")
	}

	if drop := int64(8*nstack) + pad; drop > 0 {
		e.p("\taddq $%d, %%rsp", drop)
	}

	if x.Res == nil {
		return
	}

	if e.types.IsFloat(x.Res.Type) {
		e.st(Xmm0, x.Res)
	} else {
		e.st(Rax, x.Res)
	}
}

func (e *emitter) sel(x ir.Select) {
	size := e.size(x.Res.Type)

	if e.types.IsFloat(x.Res.Type) {
		skip := e.local()

		e.ldf(x.T, Xmm14, size)
		e.ld(x.Cond, Rax)
		e.p("\ttestb %%al, %%al")
		e.p("\tjne %s", skip)
		e.ldf(x.F, Xmm14, size)
		e.p("%s:", skip)
		e.st(Xmm14, x.Res)

		return
	}

	e.ld(x.F, Rax)
	e.ld(x.T, R11)
	e.ld(x.Cond, Rcx)
	e.p("\ttestb %%cl, %%cl")

	s := size
	if s < 4 {
		s = 4 // cmov needs at least 32 bit operands
	}

	e.p("\tcmovne %s, %s", R11.Name(s), Rax.Name(s))
	e.st(Rax, x.Res)
}

// globals

func (c *Compiler) emitGlobal(b []byte, types *tp.Pool, g *ir.GlobalVar) ([]byte, error) {
	if g.Extern {
		return b, nil
	}

	size := types.Sizeof(g.Type)
	align := types.Alignof(g.Type)

	if g.Init == nil {
		b = fmt.Appendf(b, "\n.bss\n.globl %s\n.align %d\n%s:\n\t.zero %d\n", g.Name, align, g.Name, size)
		return b, nil
	}

	b = fmt.Appendf(b, "\n.data\n.globl %s\n.align %d\n%s:\n", g.Name, align, g.Name)

	switch {
	case g.Init.Const != nil:
		b = appendData(b, types, g.Init.Const)
	default:
		sym := g.Init.Sym[1:]

		if g.Init.Off != 0 {
			b = fmt.Appendf(b, "\t.quad %s%+d\n", sym, g.Init.Off)
		} else {
			b = fmt.Appendf(b, "\t.quad %s\n", sym)
		}
	}

	return b, nil
}

func appendData(b []byte, types *tp.Pool, o ir.Operand) []byte {
	switch v := o.(type) {
	case ir.IntConst:
		switch types.Sizeof(v.Type) {
		case 1:
			return fmt.Appendf(b, "\t.byte %d\n", int8(v.Val))
		case 2:
			return fmt.Appendf(b, "\t.word %d\n", int16(v.Val))
		case 4:
			return fmt.Appendf(b, "\t.long %d\n", int32(v.Val))
		default:
			return fmt.Appendf(b, "\t.quad %d\n", int64(v.Val))
		}
	case ir.FloatConst:
		if types.Sizeof(v.Type) == 4 {
			return fmt.Appendf(b, "\t.long %d\n", int64(math.Float32bits(float32(v.Val))))
		}

		return fmt.Appendf(b, "\t.quad %d\n", int64(math.Float64bits(v.Val)))
	default:
		panic("back: bad global initializer")
	}
}
