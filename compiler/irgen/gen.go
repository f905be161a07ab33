// Package irgen lowers a reduced *ast.Program to one ir.Program per
// automaton, transcribing gen.cpp. Unlike the original's virtual gen()
// methods on every AST node, code generation here is implemented entirely
// via type switches inside this package: ast stays codegen-ignorant, a
// cleaner layering than the C++ original's dispatch, per SPEC_FULL.md §9.
package irgen

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/ioml-lang/iocc/compiler/ast"
	"github.com/ioml-lang/iocc/compiler/internal/diag"
	"github.com/ioml-lang/iocc/compiler/ir"
)

// Output holds one ir.Program per automaton, keyed by automaton name, plus
// the declaration order for deterministic iteration. Each automaton gets
// its own ir.Program so that each has independent label and register
// spaces.
type Output struct {
	Autos map[string]*ir.Program
	Order []string
}

// gen carries the per-automaton state gen.cpp keeps as AutoDecl/State
// fields (_label, _stop_label) as local backpatch maps instead, keeping
// ast.State/ast.AutoDecl read-only after construction (SPEC_FULL.md §9).
type gen struct {
	prog      *ir.Program
	stateLabs map[*ast.State]ir.Label
	stopLab   ir.Label
}

// Generate lowers every automaton in prog to its own quad stream.
func Generate(ctx context.Context, prog *ast.Program) (*Output, error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "irgen: generate program")
	defer tr.Finish()

	out := &Output{Autos: make(map[string]*ir.Program)}
	for _, a := range prog.Autos {
		p, err := generateAuto(tr, a)
		if err != nil {
			return nil, errors.Wrap(err, "automaton %q", a.Name())
		}
		out.Autos[a.Name()] = p
		out.Order = append(out.Order, a.Name())
	}
	return out, nil
}

func generateAuto(tr tlog.Span, a *ast.AutoDecl) (*ir.Program, error) {
	tr.Printw("automaton", "name", a.Name(), "states", len(a.States))

	p := ir.NewProgram(a.Name())
	g := &gen{prog: p, stateLabs: make(map[*ast.State]ir.Label)}

	g.stopLab = p.NewLabel()
	for _, s := range a.States {
		g.stateLabs[s] = p.NewLabel()
	}

	g.genStmt(a, a.Init)
	for _, s := range a.States {
		g.genState(a, s)
	}
	p.Emit(ir.Lab(g.stopLab))
	p.Emit(ir.Return())

	return p, nil
}

func (g *gen) genState(a *ast.AutoDecl, s *ast.State) {
	p := g.prog
	p.Emit(ir.Lab(g.stateLabs[s]))
	g.genStmt(a, s.Action)
	loop := p.NewLabel()
	p.Emit(ir.Lab(loop))
	for _, w := range s.Whens {
		g.genWhen(a, w)
	}
	p.Emit(ir.Goto(loop))
}

func (g *gen) genWhen(a *ast.AutoDecl, w *ast.When) {
	p := g.prog
	p.Comment(w.Pos.String())

	sigAddr := p.NewReg()
	sigVal := p.NewReg()
	p.Emit(ir.SetI(sigAddr, w.Sig.Addr))
	p.Emit(ir.Load(sigVal, sigAddr))

	bitPos := p.NewReg()
	bitMask := p.NewReg()
	p.Emit(ir.SetI(bitPos, w.Sig.Bit))
	oneReg := p.NewReg()
	p.Emit(ir.SetI(oneReg, 1))
	p.Emit(ir.Shl(bitMask, oneReg, bitPos))

	maskedBit := p.NewReg()
	p.Emit(ir.And(maskedBit, sigVal, bitMask))

	skipLabel := p.NewLabel()
	if w.Neg {
		p.Emit(ir.GotoEq(skipLabel, maskedBit, bitMask)) // skip if bit is set
	} else {
		p.Emit(ir.GotoNe(skipLabel, maskedBit, bitMask)) // skip if bit is clear
	}

	g.genStmt(a, w.Action)

	p.Emit(ir.Lab(skipLabel))
}

// genStmt transcribes every Statement kind's gen() method via type switch.
func (g *gen) genStmt(a *ast.AutoDecl, stmt ast.Statement) {
	p := g.prog
	switch s := stmt.(type) {
	case nil, *ast.NOPStmt:
		// nothing to generate

	case *ast.SeqStmt:
		g.genStmt(a, s.S1)
		g.genStmt(a, s.S2)

	case *ast.IfStmt:
		p.Comment(s.Pos.String())
		labTrue := p.NewLabel()
		labFalse := p.NewLabel()
		labEnd := p.NewLabel()
		g.genCond(s.C, labTrue, labFalse)
		p.Emit(ir.Lab(labTrue))
		g.genStmt(a, s.Then)
		p.Emit(ir.Goto(labEnd))
		p.Emit(ir.Lab(labFalse))
		if s.Else != nil {
			g.genStmt(a, s.Else)
		}
		p.Emit(ir.Lab(labEnd))

	case *ast.SetStmt:
		p.Comment(s.Pos.String())
		r := g.genExpr(s.E)
		switch d := s.Decl.(type) {
		case *ast.VarDecl:
			p.Emit(ir.Set(p.RegFor(d.Name()), r))
		case *ast.RegDecl:
			ra := p.NewReg()
			p.Emit(ir.SetI(ra, d.Addr))
			p.Emit(ir.Store(ra, r))
		default:
			diag.Assertf(false, "set: unsupported declaration kind %v", d.Kind())
		}

	case *ast.SetFieldStmt:
		g.genSetField(s)

	case *ast.GotoStmt:
		p.Comment(s.Pos.String())
		diag.Assertf(s.Target != nil, "goto: unresolved target %q (Fix not called)", s.TargetName)
		p.Emit(ir.Goto(g.stateLabs[s.Target]))

	case *ast.StopStmt:
		p.Comment(s.Pos.String())
		p.Emit(ir.Goto(g.stopLab))

	default:
		diag.Assertf(false, "genStmt: unhandled statement type %T", stmt)
	}
}

// genSetField transcribes SetFieldStatement::gen exactly, including the
// aliasing guard (fresh copy when the destination register and the value
// register coincide) and the constants-known/dynamic split.
func (g *gen) genSetField(s *ast.SetFieldStmt) {
	p := g.prog
	p.Comment(s.Pos.String())

	hiReg := g.genExpr(s.Hi)
	loReg := g.genExpr(s.Lo)
	valueReg := g.genExpr(s.E)

	var eReg, addrReg ir.Reg
	isReg := false
	switch d := s.Decl.(type) {
	case *ast.VarDecl:
		eReg = p.RegFor(d.Name())
	case *ast.RegDecl:
		isReg = true
		addrReg = p.NewReg()
		p.Emit(ir.SetI(addrReg, d.Addr))
		eReg = p.NewReg()
		p.Emit(ir.Load(eReg, addrReg))
	default:
		diag.Assertf(false, "setfield: unsupported declaration kind %v", d.Kind())
	}

	hiVal, hiOK := s.Hi.Eval()
	loVal, loOK := s.Lo.Eval()
	valVal, valOK := s.E.Eval()

	if eReg == valueReg {
		tmp := p.NewReg()
		p.Emit(ir.Set(tmp, valueReg))
		valueReg = tmp
	}

	if hiOK && loOK && valOK {
		numBits := hiVal - loVal + 1
		maskVal := ((int32(1) << uint(numBits)) - 1) << uint(loVal)
		maskReg := p.NewReg()
		p.Emit(ir.SetI(maskReg, maskVal))

		invMaskReg := p.NewReg()
		p.Emit(ir.Inv(invMaskReg, maskReg))
		p.Emit(ir.And(eReg, eReg, invMaskReg))

		valueMask := (int32(1) << uint(numBits)) - 1
		alignedValue := (valVal & valueMask) << uint(loVal)
		alignedValueReg := p.NewReg()
		p.Emit(ir.SetI(alignedValueReg, alignedValue))

		p.Emit(ir.Or(eReg, eReg, alignedValueReg))
	} else {
		oneReg := p.NewReg()
		p.Emit(ir.SetI(oneReg, 1))
		nReg := p.NewReg()
		p.Emit(ir.Sub(nReg, hiReg, loReg))
		p.Emit(ir.Add(nReg, nReg, oneReg))
		tempReg := p.NewReg()
		p.Emit(ir.Shl(tempReg, oneReg, nReg))
		maskReg := p.NewReg()
		p.Emit(ir.Sub(maskReg, tempReg, oneReg))
		p.Emit(ir.Shl(maskReg, maskReg, loReg))

		invMaskReg := p.NewReg()
		p.Emit(ir.Inv(invMaskReg, maskReg))
		p.Emit(ir.And(eReg, eReg, invMaskReg))

		valueMaskReg := p.NewReg()
		p.Emit(ir.Sub(valueMaskReg, tempReg, oneReg))

		alignedValueReg := p.NewReg()
		p.Emit(ir.And(alignedValueReg, valueReg, valueMaskReg))
		p.Emit(ir.Shl(alignedValueReg, alignedValueReg, loReg))

		p.Emit(ir.Or(eReg, eReg, alignedValueReg))
	}

	if isReg {
		p.Emit(ir.Store(addrReg, eReg))
	}
}

// genCond transcribes every Condition kind's CPS-style gen(labTrue,
// labFalse) method via type switch.
func (g *gen) genCond(cond ast.Condition, labTrue, labFalse ir.Label) {
	p := g.prog
	switch c := cond.(type) {
	case *ast.CompCond:
		a1 := g.genExpr(c.E1)
		a2 := g.genExpr(c.E2)
		switch c.Op {
		case ast.EQ:
			p.Emit(ir.GotoEq(labTrue, a1, a2))
		case ast.NE:
			p.Emit(ir.GotoNe(labTrue, a1, a2))
		case ast.LT:
			p.Emit(ir.GotoLt(labTrue, a1, a2))
		case ast.LE:
			p.Emit(ir.GotoLe(labTrue, a1, a2))
		case ast.GT:
			p.Emit(ir.GotoGt(labTrue, a1, a2))
		case ast.GE:
			p.Emit(ir.GotoGe(labTrue, a1, a2))
		default:
			diag.Assertf(false, "genCond: unhandled comparison op %v", c.Op)
		}
		p.Emit(ir.Goto(labFalse))

	case *ast.NotCond:
		g.genCond(c.C, labFalse, labTrue)

	case *ast.AndCond:
		labMid := p.NewLabel()
		g.genCond(c.C1, labMid, labFalse)
		p.Emit(ir.Lab(labMid))
		g.genCond(c.C2, labTrue, labFalse)

	case *ast.OrCond:
		labMid := p.NewLabel()
		g.genCond(c.C1, labTrue, labMid)
		p.Emit(ir.Lab(labMid))
		g.genCond(c.C2, labTrue, labFalse)

	default:
		diag.Assertf(false, "genCond: unhandled condition type %T", cond)
	}
}

// genExpr transcribes every Expression kind's gen() method via type
// switch, returning the virtual register holding the result.
func (g *gen) genExpr(expr ast.Expression) ir.Reg {
	p := g.prog
	switch e := expr.(type) {
	case *ast.ConstExpr:
		r := p.NewReg()
		p.Emit(ir.SetI(r, e.Value))
		return r

	case *ast.MemExpr:
		switch d := e.Decl.(type) {
		case *ast.ConstDecl:
			r := p.NewReg()
			p.Emit(ir.SetI(r, d.Value))
			return r
		case *ast.VarDecl:
			return p.RegFor(d.Name())
		case *ast.RegDecl:
			ra := p.NewReg()
			rd := p.NewReg()
			p.Emit(ir.SetI(ra, d.Addr))
			p.Emit(ir.Load(rd, ra))
			return rd
		default:
			diag.Assertf(false, "mem: unsupported declaration kind %v", d.Kind())
			return 0
		}

	case *ast.UnopExpr:
		ro := g.genExpr(e.E)
		r := p.NewReg()
		switch e.Op {
		case ast.NEG:
			p.Emit(ir.Neg(r, ro))
		case ast.INV:
			p.Emit(ir.Inv(r, ro))
		default:
			diag.Assertf(false, "unop: unhandled op %v", e.Op)
		}
		return r

	case *ast.BinopExpr:
		r1 := g.genExpr(e.E1)
		r2 := g.genExpr(e.E2)
		rd := p.NewReg()
		switch e.Op {
		case ast.ADD:
			p.Emit(ir.Add(rd, r1, r2))
		case ast.SUB:
			p.Emit(ir.Sub(rd, r1, r2))
		case ast.MUL:
			p.Emit(ir.Mul(rd, r1, r2))
		case ast.DIV:
			p.Emit(ir.Div(rd, r1, r2))
		case ast.MOD:
			p.Emit(ir.Mod(rd, r1, r2))
		case ast.BIT_AND:
			p.Emit(ir.And(rd, r1, r2))
		case ast.BIT_OR:
			p.Emit(ir.Or(rd, r1, r2))
		case ast.XOR:
			p.Emit(ir.Xor(rd, r1, r2))
		case ast.SHL:
			p.Emit(ir.Shl(rd, r1, r2))
		case ast.SHR:
			p.Emit(ir.Shr(rd, r1, r2))
		case ast.ROL:
			p.Emit(ir.Rol(rd, r1, r2))
		case ast.ROR:
			p.Emit(ir.Ror(rd, r1, r2))
		default:
			diag.Assertf(false, "binop: unhandled op %v", e.Op)
		}
		return rd

	case *ast.BitFieldExpr:
		return g.genBitField(e)

	default:
		diag.Assertf(false, "genExpr: unhandled expression type %T", expr)
		return 0
	}
}

func (g *gen) genBitField(e *ast.BitFieldExpr) ir.Reg {
	p := g.prog
	exprReg := g.genExpr(e.E)
	resultReg := p.NewReg()

	hiVal, hiOK := e.Hi.Eval()
	loVal, loOK := e.Lo.Eval()

	if hiOK && loOK {
		loValReg := p.NewReg()
		p.Emit(ir.SetI(loValReg, loVal))

		if hiVal == loVal {
			shiftedReg := p.NewReg()
			p.Emit(ir.Shr(shiftedReg, exprReg, loValReg))
			maskReg := p.NewReg()
			p.Emit(ir.SetI(maskReg, 1))
			p.Emit(ir.And(resultReg, shiftedReg, maskReg))
		} else {
			numBits := hiVal - loVal + 1
			maskVal := (int32(1) << uint(numBits)) - 1
			maskReg := p.NewReg()
			p.Emit(ir.SetI(maskReg, maskVal))
			shiftedReg := p.NewReg()
			p.Emit(ir.Shr(shiftedReg, exprReg, loValReg))
			p.Emit(ir.And(resultReg, shiftedReg, maskReg))
		}
		return resultReg
	}

	hiReg := g.genExpr(e.Hi)
	loReg := g.genExpr(e.Lo)

	diffReg := p.NewReg()
	oneReg := p.NewReg()
	p.Emit(ir.SetI(oneReg, 1))
	p.Emit(ir.Sub(diffReg, hiReg, loReg))
	p.Emit(ir.Add(diffReg, diffReg, oneReg))
	maskReg := p.NewReg()
	p.Emit(ir.Shl(maskReg, oneReg, diffReg))
	p.Emit(ir.Sub(maskReg, maskReg, oneReg))

	shiftedReg := p.NewReg()
	p.Emit(ir.Shr(shiftedReg, exprReg, loReg))
	p.Emit(ir.And(resultReg, shiftedReg, maskReg))

	return resultReg
}
