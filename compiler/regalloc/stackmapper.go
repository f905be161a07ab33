// Package regalloc performs local, per-basic-block register allocation
// over selected instructions with spill-to-stack, transcribing
// RegAlloc.cpp/RegAlloc.hpp.
package regalloc

import "github.com/ioml-lang/iocc/compiler/ir"

// StackMapper assigns stack-frame offsets to virtual registers and tracks
// which offsets belong to the automaton-wide "global" save area (the
// automaton's Var declarations) versus per-block temporaries (spills). It
// is shared across all basic blocks of one automaton: the compiler
// registers every Var register once via Add/MarkGlobal before compiling
// any block, then calls Rewind after each block to discard that block's
// temporary slots while preserving the global ones.
type StackMapper struct {
	offset  int32
	global  int32
	offsets map[ir.Reg]int32
}

// NewStackMapper returns a mapper with an empty frame.
func NewStackMapper() *StackMapper {
	return &StackMapper{offsets: make(map[ir.Reg]int32)}
}

// Add assigns reg the next stack slot, unconditionally (even if already
// mapped — mirrors StackMapper::add, which always allocates a fresh slot;
// callers use it once per Var register during setup and OffsetOf
// thereafter).
func (m *StackMapper) Add(reg ir.Reg) {
	m.offset -= 4
	m.offsets[reg] = m.offset
}

// OffsetOf returns reg's stack offset, allocating one on first use.
func (m *StackMapper) OffsetOf(reg ir.Reg) int32 {
	if off, ok := m.offsets[reg]; ok {
		return off
	}
	m.offset -= 4
	m.offsets[reg] = m.offset
	return m.offset
}

// MarkGlobal freezes the current frontier as the boundary between global
// (Var) save slots and temporary (spill) slots.
func (m *StackMapper) MarkGlobal() {
	m.global = m.offset
}

// IsGlobal reports whether reg was assigned a slot at or before the last
// MarkGlobal call. Offsets only ever decrease (Add/OffsetOf always move the
// frontier further from zero), so a slot assigned before the freeze has an
// offset numerically at or above the frozen boundary, and a later slot
// lies below it.
func (m *StackMapper) IsGlobal(reg ir.Reg) bool {
	off, ok := m.offsets[reg]
	return ok && off >= m.global
}

// Rewind discards every non-global slot, resetting the frontier to the
// global boundary. Called after each basic block to keep only the
// automaton's Var slots live across blocks.
func (m *StackMapper) Rewind() {
	m.offset = m.global
	for reg, off := range m.offsets {
		if off < m.global {
			delete(m.offsets, reg)
		}
	}
}
