package ir

// Program is one automaton's quad stream under construction: a monotonic
// virtual-register/label allocator plus the emitted Quad list, mirroring
// gen.cpp's free-standing newReg()/newLab()/regFor()/emit() helpers
// gathered into one receiver per SPEC_FULL.md's Go API surface.
type Program struct {
	Name  string
	Quads []Quad

	// Comments maps a quad index to a human-readable annotation, purely
	// for assembly-listing readability; never consulted by asm/regalloc.
	Comments map[int]string

	nextReg   Reg
	nextLabel Label

	// regFor backs RegFor: one stable virtual register per Var
	// declaration name, minted on first reference. varOrder preserves
	// first-reference order for deterministic StackMapper registration.
	regFor   map[string]Reg
	varOrder []string

	pendingComment string
	hasPending     bool
}

// NewProgram returns an empty quad stream for one automaton.
func NewProgram(name string) *Program {
	return &Program{
		Name:     name,
		Comments: make(map[int]string),
		regFor:   make(map[string]Reg),
	}
}

// NewReg mints a fresh virtual register, never reused within this Program.
func (p *Program) NewReg() Reg {
	r := p.nextReg
	p.nextReg++
	return r
}

// NewLabel mints a fresh symbolic label.
func (p *Program) NewLabel() Label {
	l := p.nextLabel
	p.nextLabel++
	return l
}

// RegFor returns the stable virtual register standing for a Var
// declaration named name, minting one on first call.
func (p *Program) RegFor(name string) Reg {
	if r, ok := p.regFor[name]; ok {
		return r
	}
	r := p.NewReg()
	p.regFor[name] = r
	p.varOrder = append(p.varOrder, name)
	return r
}

// VarRegs returns every Var register minted so far, in first-reference
// order, for the compiler to register with regalloc.StackMapper before
// compiling any block.
func (p *Program) VarRegs() []Reg {
	out := make([]Reg, len(p.varOrder))
	for i, name := range p.varOrder {
		out[i] = p.regFor[name]
	}
	return out
}

// Emit appends q to the quad stream and returns its index. If a Comment
// call is still pending, it attaches to this quad — the first one emitted
// since that call — rather than the one before it.
func (p *Program) Emit(q Quad) int {
	p.Quads = append(p.Quads, q)
	idx := len(p.Quads) - 1
	if p.hasPending {
		p.Comments[idx] = p.pendingComment
		p.hasPending = false
	}
	return idx
}

// Comment marks the quad(s) about to be emitted with a debug annotation,
// mirroring gen.cpp's comment(pos) call convention of preceding the quads
// it describes rather than following them.
func (p *Program) Comment(text string) {
	p.pendingComment = text
	p.hasPending = true
}
