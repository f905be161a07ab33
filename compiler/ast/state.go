package ast

// When guards Action on a single signal bit: fires when Sig's bit reads
// set (or, if Neg, clear). Mirrors AST.cpp's When, which carries the
// signal and polarity directly rather than a general Condition — IOML's
// `when` clauses only ever test one signal bit. Each time the enclosing
// State's loop polls, every When is checked in declaration order and
// independently gated — one When's Goto/Stop firing does not prevent
// later Whens from being checked on a later iteration of the same
// state's loop (see SPEC_FULL.md §8).
type When struct {
	Pos    Pos
	Sig    *SigDecl
	Neg    bool
	Action Statement
}

func NewWhen(pos Pos, sig *SigDecl, neg bool, action Statement) *When {
	return &When{Pos: pos, Sig: sig, Neg: neg, Action: action}
}

// State is one node of an automaton: an entry Action run once on arrival,
// followed by a loop that repeatedly checks each When in order.
type State struct {
	Pos    Pos
	Name   string
	Action Statement
	Whens  []*When
}

func NewState(pos Pos, name string, action Statement) *State {
	return &State{Pos: pos, Name: name, Action: action}
}

func (s *State) AddWhen(w *When) {
	s.Whens = append(s.Whens, w)
}

// Program is the top-level unit handed to irgen: every declaration sharing
// one symbol table, and an ordered list of automata. Mirrors AST.cpp's
// top-level translation unit represented as a flat symbol table plus an
// ordered automaton list.
type Program struct {
	Symbols *SymbolTable
	Autos   []*AutoDecl
}

func NewProgram() *Program {
	return &Program{Symbols: NewSymbolTable()}
}

func (p *Program) AddAuto(a *AutoDecl) {
	p.Autos = append(p.Autos, a)
}

// Fix resolves every GotoStmt in every automaton in the program.
func (p *Program) Fix() error {
	for _, a := range p.Autos {
		if err := a.Fix(); err != nil {
			return err
		}
	}
	return nil
}
