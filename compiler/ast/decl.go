package ast

import "fmt"

// ConstDecl binds a name to a fixed integer literal (IOML's `const` form).
type ConstDecl struct {
	base
	Value int32
}

// NewConstDecl builds and registers a constant declaration.
func NewConstDecl(tab *SymbolTable, pos Pos, name string, value int32) (*ConstDecl, error) {
	d := &ConstDecl{base: base{name, pos}, Value: value}
	if err := tab.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ConstDecl) Kind() DeclKind { return CST }

// VarDecl is a plain scratch variable living in the stack frame, not backed
// by any memory-mapped address.
type VarDecl struct {
	base
}

func NewVarDecl(tab *SymbolTable, pos Pos, name string) (*VarDecl, error) {
	d := &VarDecl{base: base{name, pos}}
	if err := tab.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *VarDecl) Kind() DeclKind { return VAR }

// RegDecl names a memory-mapped I/O register at a fixed address.
type RegDecl struct {
	base
	Addr int32
}

func NewRegDecl(tab *SymbolTable, pos Pos, name string, addr int32) (*RegDecl, error) {
	d := &RegDecl{base: base{name, pos}, Addr: addr}
	if err := tab.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *RegDecl) Kind() DeclKind { return REG }

// SigDecl names a single signal bit within a memory-mapped register.
type SigDecl struct {
	base
	Addr int32
	Bit  int32
}

func NewSigDecl(tab *SymbolTable, pos Pos, name string, addr, bit int32) (*SigDecl, error) {
	d := &SigDecl{base: base{name, pos}, Addr: addr, Bit: bit}
	if err := tab.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *SigDecl) Kind() DeclKind { return SIG }

// AutoDecl is a named automaton: an initial action, a set of states, each
// with its own when-guarded transitions. Mirrors AST.cpp's AutoDecl.
type AutoDecl struct {
	base
	Init   Statement
	States []*State
}

func NewAutoDecl(tab *SymbolTable, pos Pos, name string, init Statement) (*AutoDecl, error) {
	d := &AutoDecl{base: base{name, pos}, Init: init}
	if err := tab.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *AutoDecl) Kind() DeclKind { return AUTO }

// AddState appends a state to the automaton, rejecting duplicate state
// names within this automaton (states are scoped to their automaton, not
// the global symbol table).
func (d *AutoDecl) AddState(s *State) error {
	for _, existing := range d.States {
		if existing.Name == s.Name {
			return fmt.Errorf("%s: state %q already declared in automaton %q", s.Pos, s.Name, d.name)
		}
	}
	d.States = append(d.States, s)
	return nil
}

// FindState returns the state with the given name, if any.
func (d *AutoDecl) FindState(name string) (*State, bool) {
	for _, s := range d.States {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Fix resolves every GotoStmt in every state's whens (and the init
// statement) against this automaton's state list, mirroring
// GotoStatement::fix. Returns an error naming the first unresolved state.
func (d *AutoDecl) Fix() error {
	if err := fixStmt(d.Init, d); err != nil {
		return err
	}
	for _, s := range d.States {
		if err := fixStmt(s.Action, d); err != nil {
			return err
		}
		for _, w := range s.Whens {
			if err := fixStmt(w.Action, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func fixStmt(stmt Statement, owner *AutoDecl) error {
	if stmt == nil {
		return nil
	}
	return stmt.Fix(owner)
}
