package back

import (
	"context"
	"fmt"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/minicc/minicc/compiler/ir"
	"github.com/minicc/minicc/compiler/tp"
)

type (
	// Alloc binds every virtual register of one function to a
	// physical register or a stack slot. It relies on the builder
	// guarantee that every non alloca register has exactly one use:
	// at that use the binding is last touched, so the slot frees
	// immediately. Running it on IR where uses were duplicated or
	// renamed is undefined.
	Alloc struct {
		types *tp.Pool
		du    *DUInfo

		bind map[string]x64

		frame int64 // locals and spill slots, grows down from rbp
		Used  map[RegTag]bool

		ints stackCache
		vecs stackCache

		// live non cache register bindings (parameters), spilled
		// around calls
		pinned map[string]RegTag

		seq int
	}

	// stackCache rotates three registers, binding one per live value
	// and releasing it at the value's single use. When no slot is
	// spare the longest held binding is evicted to the stack.
	stackCache struct {
		regs  [3]RegTag
		bound [3]string // "" marks a spare slot
		seq   [3]int

		h heap.Heap[cacheSlot]
	}

	cacheSlot struct {
		seq  int
		slot int
	}
)

func slotLess(d []cacheSlot, i, j int) bool { return d[i].seq < d[j].seq }

func newCache(a, b, c RegTag) stackCache {
	return stackCache{
		regs: [3]RegTag{a, b, c},
		h:    heap.Heap[cacheSlot]{Less: slotLess},
	}
}

// take binds a name to a spare register. ok is false when every slot
// is held.
func (c *stackCache) take(name string, seq int) (RegTag, bool) {
	for i := range c.regs {
		if c.bound[i] != "" {
			continue
		}

		c.bound[i] = name
		c.seq[i] = seq
		c.h.Push(cacheSlot{seq: seq, slot: i})

		return c.regs[i], true
	}

	return RegNone, false
}

// release frees the slot a name is bound to, if any.
func (c *stackCache) release(name string) {
	for i := range c.regs {
		if c.bound[i] == name {
			c.bound[i] = ""
			return
		}
	}
}

// evict picks the longest held binding, rebinding its slot to the new
// name. The previous holder is returned so the caller can move it to
// the stack.
func (c *stackCache) evict(name string, seq int) (victim string, reg RegTag) {
	for c.h.Len() > 0 {
		top := c.h.Pop()

		if c.bound[top.slot] == "" || c.seq[top.slot] != top.seq {
			continue // released or rebound since
		}

		victim = c.bound[top.slot]

		c.bound[top.slot] = name
		c.seq[top.slot] = seq
		c.h.Push(cacheSlot{seq: seq, slot: top.slot})

		return victim, c.regs[top.slot]
	}

	panic("back: register cache exhausted with nothing to evict")
}

func (c *stackCache) holds(name string) (RegTag, bool) {
	for i := range c.regs {
		if c.bound[i] == name {
			return c.regs[i], true
		}
	}

	return RegNone, false
}

// Allocate runs the planning pass over a def use annotated function.
func Allocate(ctx context.Context, types *tp.Pool, f *ir.Function, du *DUInfo) (_ *Alloc, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "alloc", "func", f.Name)
	defer tr.Finish("err", &err)

	if err := du.VerifySingleUse(); err != nil {
		panic(fmt.Sprintf("alloc: single use precondition broken in %s: %v", f.Name, err))
	}

	a := &Alloc{
		types:  types,
		du:     du,
		bind:   map[string]x64{},
		Used:   map[RegTag]bool{},
		ints:   newCache(Rbx, R12, R13),
		vecs:   newCache(Xmm8, Xmm9, Xmm10),
		pinned: map[string]RegTag{},
	}

	a.placeParams(f)

	for _, b := range f.Blocks {
		for _, x := range b.Instrs {
			a.step(x)
		}
	}

	if tr.If("dump_alloc") {
		for name, loc := range a.bind {
			tr.Printw("binding", "reg", name, "loc", loc.loc(8))
		}
	}

	return a, nil
}

func (a *Alloc) placeParams(f *ir.Function) {
	ft := a.types.At(f.Type)
	conv := Classify(a.types, ft.Params)

	for i, p := range f.Params {
		if i >= len(conv.Args) {
			break
		}

		l := conv.Args[i]

		if l.Reg != RegNone {
			a.bind[p.Name] = x64Reg{Tag: l.Reg}
			a.pinned[p.Name] = l.Reg

			continue
		}

		// return address and saved rbp sit between rbp and the
		// incoming stack arguments
		a.bind[p.Name] = x64Mem{Base: Rbp, Off: 16 + l.Off}
	}
}

func (a *Alloc) step(x ir.Instr) {
	// the single use of each operand register frees its slot
	for _, o := range ir.Uses(x) {
		r, ok := o.(*ir.Reg)
		if !ok || r.IsGlobal() {
			continue
		}

		if a.du.Alloca[r.Name] {
			continue
		}

		a.ints.release(r.Name)
		a.vecs.release(r.Name)
		delete(a.pinned, r.Name)
	}

	if _, ok := x.(ir.Call); ok {
		a.spillAroundCall()
	}

	r := ir.Result(x)
	if r == nil {
		return
	}

	if _, ok := x.(ir.Alloca); ok {
		al := x.(ir.Alloca)
		size := a.types.Sizeof(al.Elem)
		align := a.types.Alignof(al.Elem)

		off := a.stackSlot(size, align)
		a.bind[r.Name] = x64Mem{Base: Rbp, Off: -off}

		return
	}

	a.seq++

	cache := &a.ints
	if a.types.IsFloat(r.Type) {
		cache = &a.vecs
	}

	reg, ok := cache.take(r.Name, a.seq)
	if !ok {
		victim, vreg := cache.evict(r.Name, a.seq)

		off := a.stackSlot(8, 8)
		a.bind[victim] = x64Mem{Base: Rbp, Off: -off}

		reg = vreg
	}

	a.bind[r.Name] = x64Reg{Tag: reg}
	a.Used[reg] = true
}

// spillAroundCall moves live caller saved bindings to the stack. The
// cache registers are callee saved, only pinned parameter registers
// are affected.
func (a *Alloc) spillAroundCall() {
	for name, reg := range a.pinned {
		if !callerSaved(reg) {
			continue
		}

		off := a.stackSlot(8, 8)
		a.bind[name] = x64Mem{Base: Rbp, Off: -off}

		delete(a.pinned, name)
	}
}

// stackSlot reserves size bytes in the frame and returns the positive
// offset below rbp.
func (a *Alloc) stackSlot(size, align uint64) int64 {
	a.frame += int64(size)

	if align != 0 && a.frame%int64(align) != 0 {
		a.frame += int64(align) - a.frame%int64(align)
	}

	return a.frame
}

// FrameSize pads the frame so rsp lands back on a 16 byte boundary,
// given how many callee saved registers the prologue pushes on top of
// the saved rbp.
func (a *Alloc) FrameSize(pushes int) int64 {
	frame := a.frame

	if frame%16 != 0 {
		frame += 16 - frame%16
	}

	if pushes%2 != 0 {
		frame += 8
	}

	return frame
}

// Loc returns the binding of an operand: immediates for constants,
// rip relative references for globals, the planned binding for
// virtual registers.
func (a *Alloc) Loc(o ir.Operand) x64 {
	switch o := o.(type) {
	case ir.IntConst, ir.FloatConst:
		return x64Imm{Val: o}
	case *ir.Reg:
		if o.IsGlobal() {
			return x64Mem{Label: o.Name[1:]}
		}

		l, ok := a.bind[o.Name]
		if !ok {
			panic(fmt.Sprintf("alloc: register %s has no binding", o.Name))
		}

		return l
	default:
		panic("alloc: bad operand")
	}
}

// UsedCalleeSaved lists the callee saved registers the allocation
// touched, in a fixed order for the prologue.
func (a *Alloc) UsedCalleeSaved() []RegTag {
	var r []RegTag

	for _, t := range []RegTag{Rbx, R12, R13, R14, R15} {
		if a.Used[t] {
			r = append(r, t)
		}
	}

	return r
}
