package gen

import (
	"strconv"

	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/diag"
	"github.com/minicc/minicc/compiler/ir"
)

func (g *Generator) stmt(s *scope, x ast.Stmt) {
	switch x := x.(type) {
	case *ast.Compound:
		s.pushVars()

		for _, sub := range x.Stmts {
			g.stmt(s, sub)
		}

		s.popVars()
	case *ast.DeclStmt:
		for _, d := range x.Decls {
			g.localVar(s, d)
		}
	case *ast.ExprStmt:
		g.effects(s, x.X)
	case *ast.If:
		g.ifStmt(s, x)
	case *ast.While:
		g.whileStmt(s, x)
	case *ast.DoWhile:
		g.doWhileStmt(s, x)
	case *ast.For:
		g.forStmt(s, x)
	case *ast.SwitchStmt:
		g.switchStmt(s, x)
	case *ast.Case:
		g.caseStmt(s, x)
	case *ast.Default:
		g.defaultStmt(s, x)
	case *ast.Break:
		if len(s.brkDst) == 0 {
			s.diags.Add(diag.OperatorMisuse, x.Pos, "break outside of a loop or switch")
			return
		}

		s.br(s.brkDst[len(s.brkDst)-1])
		s.cur = nil
	case *ast.Continue:
		if len(s.cntDst) == 0 {
			s.diags.Add(diag.OperatorMisuse, x.Pos, "continue outside of a loop")
			return
		}

		s.br(s.cntDst[len(s.cntDst)-1])
		s.cur = nil
	case *ast.Goto:
		l := s.label(x.Label)
		if !l.placed {
			l.usedPos = x.Pos
		}

		s.br(l.blk)
		s.cur = nil
	case *ast.Labeled:
		l := s.label(x.Label)

		if l.placed {
			s.diags.Add(diag.Redefined, x.Pos, "label %s", x.Label)
			return
		}

		l.placed = true
		s.place(l.blk)
	case *ast.Return:
		g.returnStmt(s, x)
	default:
		panic(x)
	}
}

// label returns the block a name maps to, creating a pending one for
// forward gotos. Pending blocks join the layout when the label is
// placed; whatever remains pending at the epilog is unresolved.
func (s *scope) label(name string) *labelState {
	l, ok := s.labels[name]
	if ok {
		return l
	}

	l = &labelState{
		blk: &ir.Block{Fn: s.Function},
	}
	s.labels[name] = l

	return l
}

// place appends a pending block to the layout and moves the cursor there.
func (s *scope) place(b *ir.Block) {
	s.br(b)

	b.Name = strconv.Itoa(s.id)
	s.id++

	s.Function.Blocks = append(s.Function.Blocks, b)
	s.cur = b
}

func (g *Generator) localVar(s *scope, d *ast.VarDecl) {
	slot := s.alloca(d.Type)
	s.defineVar(d.Name, varInfo{addr: slot, typ: d.Type})

	if d.Init == nil {
		return
	}

	v := g.value(s, d.Init)
	s.emit(ir.Store{Val: v, Addr: slot})
}

func (g *Generator) ifStmt(s *scope, x *ast.If) {
	tb := s.newBlock()

	var fb *ir.Block
	cont := (*ir.Block)(nil)

	if x.Else != nil {
		fb = s.newBlock()
	} else {
		cont = s.newBlock()
		fb = cont
	}

	g.cond(s, x.Cond, tb, fb)

	s.cur = tb
	g.stmt(s, x.Then)

	if x.Else == nil {
		s.br(cont)
		s.cur = cont

		return
	}

	cont = s.newBlock()
	s.br(cont)

	s.cur = fb
	g.stmt(s, x.Else)
	s.br(cont)

	s.cur = cont
}

func (g *Generator) whileStmt(s *scope, x *ast.While) {
	cond := s.newBlock()
	body := s.newBlock()
	exit := s.newBlock()

	s.br(cond)
	s.cur = cond
	g.cond(s, x.Cond, body, exit)

	s.brkDst = append(s.brkDst, exit)
	s.cntDst = append(s.cntDst, cond)

	s.cur = body
	g.stmt(s, x.Body)
	s.br(cond)

	s.brkDst = s.brkDst[:len(s.brkDst)-1]
	s.cntDst = s.cntDst[:len(s.cntDst)-1]

	s.cur = exit
}

func (g *Generator) doWhileStmt(s *scope, x *ast.DoWhile) {
	body := s.newBlock()
	cond := s.newBlock()
	exit := s.newBlock()

	s.br(body)

	s.brkDst = append(s.brkDst, exit)
	s.cntDst = append(s.cntDst, cond)

	s.cur = body
	g.stmt(s, x.Body)
	s.br(cond)

	s.brkDst = s.brkDst[:len(s.brkDst)-1]
	s.cntDst = s.cntDst[:len(s.cntDst)-1]

	s.cur = cond
	g.cond(s, x.Cond, body, exit)

	s.cur = exit
}

func (g *Generator) forStmt(s *scope, x *ast.For) {
	s.pushVars()
	defer s.popVars()

	if x.Init != nil {
		g.stmt(s, x.Init)
	}

	cond := s.newBlock()
	body := s.newBlock()

	var post *ir.Block
	if x.Post != nil {
		post = s.newBlock()
	}

	exit := s.newBlock()

	s.br(cond)
	s.cur = cond

	if x.Cond != nil {
		g.cond(s, x.Cond, body, exit)
	} else {
		s.br(body)
	}

	cnt := cond
	if post != nil {
		cnt = post
	}

	s.brkDst = append(s.brkDst, exit)
	s.cntDst = append(s.cntDst, cnt)

	s.cur = body
	g.stmt(s, x.Body)

	if post != nil {
		s.br(post)
		s.cur = post
		g.effects(s, x.Post)
	}

	s.br(cond)

	s.brkDst = s.brkDst[:len(s.brkDst)-1]
	s.cntDst = s.cntDst[:len(s.cntDst)-1]

	s.cur = exit
}

func (g *Generator) switchStmt(s *scope, x *ast.SwitchStmt) {
	scrut := g.value(s, x.X)

	// the switch instruction is backpatched once the body told us
	// where its cases are
	head := s.block()
	s.cur = nil

	exit := &ir.Block{Fn: s.Function}

	sw := &switchCtx{seen: map[uint64]bool{}}
	s.swtch = append(s.swtch, sw)
	s.brkDst = append(s.brkDst, exit)

	g.stmt(s, x.Body)
	s.br(exit)

	s.swtch = s.swtch[:len(s.swtch)-1]
	s.brkDst = s.brkDst[:len(s.brkDst)-1]

	s.place(exit)

	deflt := sw.deflt
	if deflt == nil {
		deflt = exit
	}

	head.Push(ir.Switch{Scrut: scrut, Default: deflt, Cases: sw.cases})
}

func (g *Generator) caseStmt(s *scope, x *ast.Case) {
	if len(s.swtch) == 0 {
		s.diags.Add(diag.OperatorMisuse, x.Pos, "case outside of a switch")
		return
	}

	sw := s.swtch[len(s.swtch)-1]

	c, ok := g.fold(s, x.Val)
	ic, isInt := c.(ir.IntConst)

	if !ok || !isInt {
		s.diags.Add(diag.OperatorMisuse, x.Pos, "case value is not an integer constant")
		return
	}

	if sw.seen[ic.Val] {
		s.diags.Add(diag.DuplicateCase, x.Pos, "%d", int64(ic.Val))
		return
	}
	sw.seen[ic.Val] = true

	b := s.newBlockHere()
	sw.cases = append(sw.cases, ir.SwitchCase{Val: ic, Dst: b})
}

func (g *Generator) defaultStmt(s *scope, x *ast.Default) {
	if len(s.swtch) == 0 {
		s.diags.Add(diag.OperatorMisuse, x.Pos, "default outside of a switch")
		return
	}

	sw := s.swtch[len(s.swtch)-1]

	if sw.deflt != nil {
		s.diags.Add(diag.Redefined, x.Pos, "default case")
		return
	}

	sw.deflt = s.newBlockHere()
}

// newBlockHere starts a new block falling through from the current one.
func (s *scope) newBlockHere() *ir.Block {
	b := s.newBlock()
	s.br(b)
	s.cur = b

	return b
}

func (g *Generator) returnStmt(s *scope, x *ast.Return) {
	if x.X != nil && s.RetSlot != nil {
		v := g.value(s, x.X)
		s.emit(ir.Store{Val: v, Addr: s.RetSlot})
	} else if x.X != nil {
		s.diags.Add(diag.TypeMismatch, x.Pos, "return with a value in a void function")
	} else if s.RetSlot != nil {
		s.diags.Add(diag.TypeMismatch, x.Pos, "return without a value")
	}

	// every return goes through the single exit block, placed at the
	// epilog
	s.br(s.exit)
	s.cur = nil
}
