// Package compiler drives the full pipeline — IR generation, instruction
// selection, local register allocation — and renders final assembly text,
// transcribing the teacher's back.go CompilePackage orchestration pattern
// (tlog spans per stage, errors.Wrap at every layer boundary) generalized
// to this back end's three stages.
package compiler

import (
	"bytes"
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/ioml-lang/iocc/compiler/asm"
	"github.com/ioml-lang/iocc/compiler/ast"
	"github.com/ioml-lang/iocc/compiler/ir"
	"github.com/ioml-lang/iocc/compiler/irgen"
	"github.com/ioml-lang/iocc/compiler/regalloc"
)

// CompileProgram lowers every automaton in prog through irgen, asm and
// regalloc in turn and renders the resulting instructions as assembly
// text, alongside any selection-gap warnings collected along the way.
func CompileProgram(ctx context.Context, prog *ast.Program) ([]byte, []asm.Warning, error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: compile program", "autos", len(prog.Autos))
	defer tr.Finish()

	out, err := irgen.Generate(ctx, prog)
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate IR")
	}

	var text bytes.Buffer
	var warnings []asm.Warning

	for _, name := range out.Order {
		p := out.Autos[name]
		tr.Printw("automaton", "name", name, "quads", len(p.Quads))

		fmt.Fprintf(&text, "@ automaton %s\n", name)

		w, err := compileAuto(ctx, p, &text)
		if err != nil {
			return nil, nil, errors.Wrap(err, "automaton %q", name)
		}
		warnings = append(warnings, w...)
	}

	return text.Bytes(), warnings, nil
}

// compileAuto runs instruction selection over one automaton's whole quad
// stream — so the multi-quad fusion templates (goto_label, goto_*_seq) can
// match across what would otherwise be a block boundary — then partitions
// the resulting instruction list into basic blocks for per-block register
// allocation, mirroring the original's select()-over-everything followed by
// per-basic-block RegAlloc order. The StackMapper is shared across every
// block of this automaton: its Var registers are registered and frozen as
// the "global" frontier once, up front, so each block's local allocation
// can tell a live automaton variable apart from a block-local spill
// temporary.
func compileAuto(ctx context.Context, p *ir.Program, out *bytes.Buffer) ([]asm.Warning, error) {
	mapper := regalloc.NewStackMapper()
	for _, vr := range p.VarRegs() {
		mapper.Add(vr)
	}
	mapper.MarkGlobal()

	insts, warnings := asm.Select(ctx, p.Quads)

	for _, block := range splitBlocks(insts) {
		alloc := regalloc.NewAllocator(mapper)
		for _, inst := range block {
			alloc.Process(ctx, inst)
		}
		alloc.Complete(ctx)

		for _, inst := range alloc.Instructions() {
			fmt.Fprintln(out, inst.String())
		}

		mapper.Rewind()
	}

	return warnings, nil
}

// splitBlocks partitions a selected instruction list into basic blocks: a
// new block starts before each label instruction, and a block ends after
// any control-transfer instruction (branch, call, return). This operates
// on the post-selection instruction list, not the quad stream, per
// SPEC_FULL.md §4.5 — register allocation sees the same fused
// compare-branch-label sequences the selector actually emitted, instead of
// the pre-fusion quad boundaries that would sever them into separate
// blocks and make the fusion templates unreachable in practice.
func splitBlocks(insts []asm.Instruction) [][]asm.Instruction {
	var blocks [][]asm.Instruction
	var cur []asm.Instruction

	for _, in := range insts {
		if in.IsLabel && len(cur) > 0 {
			blocks = append(blocks, cur)
			cur = nil
		}
		cur = append(cur, in)
		if in.IsControlTransfer {
			blocks = append(blocks, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}

	return blocks
}
