package regalloc

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/ioml-lang/iocc/compiler/asm"
	"github.com/ioml-lang/iocc/compiler/ir"
	"github.com/ioml-lang/iocc/compiler/set"
)

// AllocCount is the number of general-purpose physical registers the
// allocator draws from. SPEC_FULL.md §4 leaves the exact count to the
// implementer; 6 (R0-R5) leaves R6 as signal-scratch headroom and R7
// reserved frame/link-adjacent, named for parity with the ARM register
// file the templates emit into even though this back end makes no calls.
const AllocCount = 6

// Allocator performs local register allocation across the instructions of
// one basic block, transcribing RegAlloc: it maps virtual registers to a
// small pool of physical ones, spilling the oldest-still-mapped virtual
// register to the stack (via mapper) when the pool is exhausted, and at
// block end stores back every physical register that held a modified
// automaton variable.
type Allocator struct {
	mapping map[ir.Reg]ir.Reg // virtual -> physical
	// order is the insertion-ordered set of currently-mapped virtual
	// registers, tracked alongside mapping because Go map iteration
	// order is not deterministic: the victim for spilling must be
	// chosen deterministically (oldest mapping first), per
	// SPEC_FULL.md §9's Design Note.
	order []ir.Reg

	written    []ir.Reg
	writtenSet set.Bits[ir.Reg]

	// avail tracks which of the AllocCount physical registers are free,
	// one bit per register. Allocation always takes the lowest-numbered
	// free register (via First/Clear); freeing or spilling a register
	// just sets its bit again. Using a bitmap here (rather than a
	// front/back free list) means the physical register chosen after a
	// spill is the lowest free id, not "whichever was freed most
	// recently" — still fully deterministic, just a different tie-break,
	// and it reuses the teacher's fixed-size bitmap type instead of a
	// hand-rolled slice.
	avail set.Bitmap

	mapper *StackMapper
	insts  []asm.Instruction

	// fried mirrors RegAlloc's _fried: a list of physical registers
	// queued for release after the current instruction, reserved for a
	// future liveness pass. Nothing in this pipeline ever populates it
	// (no such pass exists yet in the original either), so it is always
	// empty; kept for structural parity rather than deleted outright.
	fried []ir.Reg
}

// NewAllocator returns an allocator for one basic block, sharing mapper
// with every other block of the same automaton.
func NewAllocator(mapper *StackMapper) *Allocator {
	a := &Allocator{
		mapping: make(map[ir.Reg]ir.Reg),
		mapper:  mapper,
		avail:   set.MakeBitmap(AllocCount),
	}
	a.avail.FillSet(0, AllocCount)
	return a
}

// Process allocates physical registers for one selected instruction's read
// and write parameters, rewriting them in place, and appends the result to
// the block's instruction list.
func (a *Allocator) Process(ctx context.Context, inst asm.Instruction) {
	for i := range inst.Params {
		switch inst.Params[i].Kind {
		case asm.ParamRead:
			inst.Params[i] = a.processRead(ctx, inst.Params[i])
		case asm.ParamWrite:
			inst.Params[i] = a.processWrite(ctx, inst.Params[i])
		}
	}

	a.insts = append(a.insts, inst)

	for _, reg := range a.fried {
		a.free(reg)
	}
	a.fried = a.fried[:0]
}

// Complete finishes the block by storing back every physical register that
// holds a modified automaton variable.
func (a *Allocator) Complete(ctx context.Context) {
	for _, virt := range a.written {
		a.store(ctx, virt)
	}
}

// Instructions returns the block's fully allocated instruction list,
// including any store/load instructions inserted for spills and the
// final write-back generated by Complete.
func (a *Allocator) Instructions() []asm.Instruction {
	return a.insts
}

func (a *Allocator) processRead(ctx context.Context, p asm.Param) asm.Param {
	virt := ir.Reg(p.Value)

	// Checked before allocate(), per spec.md's explicit wording ("not
	// already mapped before this call"): the original C++ runs this
	// check after allocate() has already inserted the mapping, making it
	// permanently false. See DESIGN.md.
	_, alreadyMapped := a.mapping[virt]

	phys := a.allocate(ctx, virt)

	if a.isVar(virt) && !alreadyMapped {
		a.load(ctx, virt)
	}

	return asm.Param{Kind: asm.ParamRead, Value: int32(phys)}
}

func (a *Allocator) processWrite(ctx context.Context, p asm.Param) asm.Param {
	virt := ir.Reg(p.Value)
	phys := a.allocate(ctx, virt)

	if a.isVar(virt) {
		if !a.writtenSet.IsSet(virt) {
			a.written = append(a.written, virt)
			a.writtenSet.Set(virt)
		}
	}

	return asm.Param{Kind: asm.ParamWrite, Value: int32(phys)}
}

// allocate returns the physical register mapped to virt, allocating one
// from the free pool or spilling the oldest mapping if the pool is
// exhausted.
func (a *Allocator) allocate(ctx context.Context, virt ir.Reg) ir.Reg {
	if phys, ok := a.mapping[virt]; ok {
		return phys
	}

	if free := a.avail.First(); free >= 0 {
		phys := ir.Reg(free)
		a.avail.Clear(free)
		a.bind(virt, phys)
		return phys
	}

	victim := a.order[0]
	phys := a.spill(ctx, victim)
	tlog.Printw("spill", "virt", victim, "phys", phys)

	// Reuse the register spill() just freed, rather than re-reading
	// mapping[victim] (which spill() has already deleted): the original
	// C++ reads _map[to_spill] after _map.erase(to_spill) already ran,
	// which re-inserts a zero-valued entry via operator[] and always
	// reads back physical register 0 regardless of which one was
	// actually freed. See DESIGN.md.
	a.bind(virt, phys)
	return phys
}

func (a *Allocator) bind(virt, phys ir.Reg) {
	a.mapping[virt] = phys
	a.order = append(a.order, virt)
}

// spill stores virt's current value to the stack, marks its physical
// register free again, and returns that physical register.
func (a *Allocator) spill(ctx context.Context, virt ir.Reg) ir.Reg {
	a.store(ctx, virt)
	phys := a.mapping[virt]
	a.avail.Set(int(phys))
	delete(a.mapping, virt)
	a.removeFromOrder(virt)
	return phys
}

// free returns physical register phys to the free pool, unmapping the
// virtual register that held it, if any.
func (a *Allocator) free(phys ir.Reg) {
	for _, virt := range a.order {
		if a.mapping[virt] == phys {
			delete(a.mapping, virt)
			a.removeFromOrder(virt)
			break
		}
	}
	a.avail.Set(int(phys))
}

func (a *Allocator) removeFromOrder(virt ir.Reg) {
	for i, r := range a.order {
		if r == virt {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

func (a *Allocator) store(ctx context.Context, virt ir.Reg) {
	hreg := a.mapping[virt]
	offset := a.mapper.OffsetOf(virt)
	a.insts = append(a.insts, asm.Instruction{
		Format: "\tstr R%0, [SP, #%1]",
		Params: []asm.Param{
			{Kind: asm.ParamRead, Value: int32(hreg)},
			{Kind: asm.ParamCst, Value: offset},
		},
	})
}

func (a *Allocator) load(ctx context.Context, virt ir.Reg) {
	hreg := a.mapping[virt]
	offset := a.mapper.OffsetOf(virt)
	a.insts = append(a.insts, asm.Instruction{
		Format: "\tldr R%0, [SP, #%1]",
		Params: []asm.Param{
			{Kind: asm.ParamWrite, Value: int32(hreg)},
			{Kind: asm.ParamCst, Value: offset},
		},
	})
}

func (a *Allocator) isVar(virt ir.Reg) bool {
	return a.mapper.IsGlobal(virt)
}
