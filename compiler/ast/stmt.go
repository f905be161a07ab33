package ast

import "fmt"

// Statement is the common interface for every action node: no-op,
// sequencing, assignment (plain and bit-field), conditional, state
// transition and automaton stop. Mirrors AST.cpp's Statement base class.
type Statement interface {
	Position() Pos
	// Reduce folds constant sub-expressions in place, mirroring
	// reduce.cpp's shallow per-kind behavior: only SeqStmt and SetStmt
	// actually reduce their children; the rest are no-ops, carried
	// forward unchanged from the original.
	Reduce() Statement
	// Fix resolves GotoStmt targets against owner's state list,
	// mirroring GotoStatement::fix. Statements without a goto inside
	// recurse into their children; leaves return nil.
	Fix(owner *AutoDecl) error
}

// NOPStmt does nothing.
type NOPStmt struct {
	Pos Pos
}

func NewNOPStmt(pos Pos) *NOPStmt { return &NOPStmt{Pos: pos} }

func (s *NOPStmt) Position() Pos          { return s.Pos }
func (s *NOPStmt) Reduce() Statement      { return s }
func (s *NOPStmt) Fix(*AutoDecl) error    { return nil }

// SeqStmt runs two statements in order.
type SeqStmt struct {
	Pos    Pos
	S1, S2 Statement
}

func NewSeqStmt(pos Pos, s1, s2 Statement) *SeqStmt {
	return &SeqStmt{Pos: pos, S1: s1, S2: s2}
}

func (s *SeqStmt) Position() Pos { return s.Pos }

func (s *SeqStmt) Reduce() Statement {
	s.S1 = s.S1.Reduce()
	s.S2 = s.S2.Reduce()
	return s
}

func (s *SeqStmt) Fix(owner *AutoDecl) error {
	if err := s.S1.Fix(owner); err != nil {
		return err
	}
	return s.S2.Fix(owner)
}

// SetStmt assigns E to Decl, which must be a VarDecl or RegDecl.
type SetStmt struct {
	Pos  Pos
	Decl Declaration
	E    Expression
}

func NewSetStmt(pos Pos, decl Declaration, e Expression) *SetStmt {
	return &SetStmt{Pos: pos, Decl: decl, E: e}
}

func (s *SetStmt) Position() Pos { return s.Pos }

func (s *SetStmt) Reduce() Statement {
	s.E = s.E.Reduce()
	return s
}

func (s *SetStmt) Fix(*AutoDecl) error { return nil }

// SetFieldStmt assigns E into bit-field [Lo, Hi] of Decl, which must be a
// VarDecl or RegDecl.
type SetFieldStmt struct {
	Pos    Pos
	Decl   Declaration
	Hi, Lo Expression
	E      Expression
}

func NewSetFieldStmt(pos Pos, decl Declaration, hi, lo, e Expression) *SetFieldStmt {
	return &SetFieldStmt{Pos: pos, Decl: decl, Hi: hi, Lo: lo, E: e}
}

func (s *SetFieldStmt) Position() Pos       { return s.Pos }
func (s *SetFieldStmt) Reduce() Statement   { return s }
func (s *SetFieldStmt) Fix(*AutoDecl) error { return nil }

// IfStmt runs Then if C holds, else Else (either may be nil).
type IfStmt struct {
	Pos        Pos
	C          Condition
	Then, Else Statement
}

func NewIfStmt(pos Pos, c Condition, then, els Statement) *IfStmt {
	return &IfStmt{Pos: pos, C: c, Then: then, Else: els}
}

func (s *IfStmt) Position() Pos     { return s.Pos }
func (s *IfStmt) Reduce() Statement { return s }

func (s *IfStmt) Fix(owner *AutoDecl) error {
	if s.Then != nil {
		if err := s.Then.Fix(owner); err != nil {
			return err
		}
	}
	if s.Else != nil {
		if err := s.Else.Fix(owner); err != nil {
			return err
		}
	}
	return nil
}

// GotoStmt transitions the automaton to the named state. TargetName is
// resolved to Target by Fix; Target is nil until then.
type GotoStmt struct {
	Pos        Pos
	TargetName string
	Target     *State
}

func NewGotoStmt(pos Pos, targetName string) *GotoStmt {
	return &GotoStmt{Pos: pos, TargetName: targetName}
}

func (s *GotoStmt) Position() Pos     { return s.Pos }
func (s *GotoStmt) Reduce() Statement { return s }

func (s *GotoStmt) Fix(owner *AutoDecl) error {
	st, ok := owner.FindState(s.TargetName)
	if !ok {
		return fmt.Errorf("%s: goto: unknown state %q in automaton %q", s.Pos, s.TargetName, owner.Name())
	}
	s.Target = st
	return nil
}

// StopStmt halts the enclosing automaton.
type StopStmt struct {
	Pos Pos
}

func NewStopStmt(pos Pos) *StopStmt { return &StopStmt{Pos: pos} }

func (s *StopStmt) Position() Pos       { return s.Pos }
func (s *StopStmt) Reduce() Statement   { return s }
func (s *StopStmt) Fix(*AutoDecl) error { return nil }
