// Package asm performs ARM-family instruction selection over the quad IR:
// a greedy, longest-match, table-driven tiler transcribing Inst.cpp, plus
// the instruction/parameter model it selects into.
package asm

import (
	"fmt"
	"strings"
)

// ParamKind distinguishes how a resolved instruction parameter should be
// rendered: a register being read, a register being written, or a bare
// constant (immediate or label id). Mirrors Param::type_t in Inst.cpp.
type ParamKind int

const (
	ParamNone ParamKind = iota
	ParamCst
	ParamRead
	ParamWrite
)

// Param is one resolved operand of a selected machine instruction.
type Param struct {
	Kind  ParamKind
	Value int32
}

func (p Param) String() string {
	switch p.Kind {
	case ParamCst, ParamRead, ParamWrite:
		// Formats carry any register prefix themselves ("R%0"), so a
		// register renders as its bare number, just like a constant.
		return fmt.Sprintf("%d", p.Value)
	default:
		return ""
	}
}

// Instruction is one emitted machine instruction: a printf-style format
// string with %N placeholders, each resolved against Params[N]. Mirrors
// Inst::print's substitution loop exactly.
//
// IsLabel and IsControlTransfer mark the two kinds of boundary the
// compiler's post-selection block splitter looks for: a label instruction
// always starts a new basic block, and a control-transfer instruction
// (branch, call, return) always ends one. A template that fuses a
// compare-branch-label sequence tags only the branch and label members of
// its emit list, not the leading compare.
type Instruction struct {
	Format            string
	Params            []Param
	IsLabel           bool
	IsControlTransfer bool
}

// String renders the instruction, substituting each %N in Format with
// Params[N].
func (in Instruction) String() string {
	var sb strings.Builder
	r := []rune(in.Format)
	for i := 0; i < len(r); i++ {
		if r[i] != '%' || i+1 >= len(r) {
			sb.WriteRune(r[i])
			continue
		}
		i++
		n := int(r[i] - '0')
		if n < 0 || n >= len(in.Params) {
			sb.WriteString("?")
			continue
		}
		sb.WriteString(in.Params[n].String())
	}
	return sb.String()
}

// Warning records one quad the selector could not translate. Selection
// gaps are diagnostics, not failures — the pipeline logs and continues
// (fail-open), matching Inst.cpp's select() printing to cerr and skipping
// the quad (§7.3).
type Warning struct {
	Index int
	Quad  string
}

func (w Warning) String() string {
	return fmt.Sprintf("cannot translate quad[%d]: %s", w.Index, w.Quad)
}
