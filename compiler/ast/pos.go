// Package ast models the IOML automaton language: declarations, expressions,
// conditions and statements, plus the symbol table that ties names to
// declarations. It performs no lexing or parsing of its own; it is built
// directly by a front end (or, in this repository, by cmd/iocc's fixture
// builder) and handed to package irgen already fully resolved.
package ast

import "fmt"

// Pos records where a node came from in source text, for diagnostics.
// It is threaded explicitly through every constructor rather than read
// from package-level state.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}
