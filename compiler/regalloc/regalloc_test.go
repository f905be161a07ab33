package regalloc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ioml-lang/iocc/compiler/asm"
	"github.com/ioml-lang/iocc/compiler/ir"
)

func readParam(virt ir.Reg) asm.Param {
	return asm.Param{Kind: asm.ParamRead, Value: int32(virt)}
}

func writeParam(virt ir.Reg) asm.Param {
	return asm.Param{Kind: asm.ParamWrite, Value: int32(virt)}
}

func TestStackMapperGlobalVsTemporary(t *testing.T) {
	m := NewStackMapper()
	m.Add(ir.Reg(1))
	m.Add(ir.Reg(2))
	m.MarkGlobal()

	assert.True(t, m.IsGlobal(ir.Reg(1)))
	assert.True(t, m.IsGlobal(ir.Reg(2)))

	temp := ir.Reg(99)
	m.OffsetOf(temp)
	assert.False(t, m.IsGlobal(temp))

	m.Rewind()
	assert.True(t, m.IsGlobal(ir.Reg(1)))
	assert.True(t, m.IsGlobal(ir.Reg(2)))
	// the temporary slot must be gone after Rewind; a fresh OffsetOf call
	// re-allocates rather than reusing its old offset.
	before := m.offset
	m.OffsetOf(temp)
	assert.Equal(t, before-4, m.offset)
}

func TestAllocatorSpillsOldestMapping(t *testing.T) {
	mapper := NewStackMapper()
	a := NewAllocator(mapper)

	// Read AllocCount distinct virtual registers, one at a time, filling
	// the physical pool exactly (the mapper registers no globals, so these
	// are local temporaries and no loads are emitted for them).
	for i := ir.Reg(0); i < AllocCount; i++ {
		inst := asm.Instruction{Format: "x", Params: []asm.Param{readParam(i)}}
		a.Process(context.Background(), inst)
	}
	assert.Equal(t, []ir.Reg{0, 1, 2, 3, 4, 5}, a.order)

	// One more distinct virtual register forces a spill of the oldest
	// mapping (virtual register 0).
	extra := ir.Reg(100)
	inst := asm.Instruction{Format: "x", Params: []asm.Param{readParam(extra)}}
	a.Process(context.Background(), inst)

	phys, ok := a.mapping[extra]
	assert.True(t, ok)
	// The freed physical register (whatever virt 0 held) must now map to
	// the new virtual register, not default to 0 via a stale map read.
	assert.Equal(t, ir.Reg(0), phys, "virt 0 held physical register 0 and must be reused directly")

	_, stillMapped := a.mapping[ir.Reg(0)]
	assert.False(t, stillMapped, "spilled virtual register must be unmapped")
}

func TestAllocatorProcessReadSkipsReloadWhenAlreadyMapped(t *testing.T) {
	mapper := NewStackMapper()
	mapper.Add(ir.Reg(7))
	mapper.MarkGlobal()

	a := NewAllocator(mapper)

	first := asm.Instruction{Format: "x", Params: []asm.Param{readParam(ir.Reg(7))}}
	a.Process(context.Background(), first)
	countAfterFirst := len(a.insts)
	assert.Equal(t, 2, countAfterFirst, "first read of a global must emit a load plus the instruction itself")

	second := asm.Instruction{Format: "y", Params: []asm.Param{readParam(ir.Reg(7))}}
	a.Process(context.Background(), second)
	assert.Equal(t, countAfterFirst+1, len(a.insts), "second read of an already-mapped register must not reload")
}

func TestAllocatorCompleteWritesBackOnlyWrittenGlobals(t *testing.T) {
	mapper := NewStackMapper()
	mapper.Add(ir.Reg(1))
	mapper.Add(ir.Reg(2))
	mapper.MarkGlobal()

	a := NewAllocator(mapper)

	// Write a global var: must be stored back at Complete.
	a.Process(context.Background(), asm.Instruction{Format: "x", Params: []asm.Param{writeParam(ir.Reg(1))}})
	// Read (but never write) another global: must not be stored back.
	a.Process(context.Background(), asm.Instruction{Format: "y", Params: []asm.Param{readParam(ir.Reg(2))}})
	// Write a local temporary (not a var): must not be stored back.
	a.Process(context.Background(), asm.Instruction{Format: "z", Params: []asm.Param{writeParam(ir.Reg(50))}})

	before := len(a.insts)
	a.Complete(context.Background())
	stores := a.insts[before:]
	assert.Len(t, stores, 1)
	assert.Equal(t, "\tstr R%0, [SP, #%1]", stores[0].Format)
}

func TestAllocatorProcessWriteDedupsWrittenList(t *testing.T) {
	mapper := NewStackMapper()
	mapper.Add(ir.Reg(1))
	mapper.MarkGlobal()

	a := NewAllocator(mapper)
	a.Process(context.Background(), asm.Instruction{Format: "x", Params: []asm.Param{writeParam(ir.Reg(1))}})
	a.Process(context.Background(), asm.Instruction{Format: "y", Params: []asm.Param{writeParam(ir.Reg(1))}})

	assert.Len(t, a.written, 1)
}
