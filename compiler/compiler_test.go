package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ioml-lang/iocc/compiler/asm"
	"github.com/ioml-lang/iocc/compiler/ast"
)

func TestCompileProgramEmptyAutomaton(t *testing.T) {
	prog := ast.NewProgram()
	pos := ast.Pos{File: "t", Line: 1}

	auto, err := ast.NewAutoDecl(prog.Symbols, pos, "empty", ast.NewNOPStmt(pos))
	assert.NoError(t, err)
	prog.AddAuto(auto)
	assert.NoError(t, prog.Fix())

	text, warnings, err := CompileProgram(context.Background(), prog)
	assert.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Contains(t, string(text), "@ automaton empty")
	// No states: only the stop label and the return are emitted.
	assert.Equal(t, "@ automaton empty\nL0:\n\tbx LR\n", string(text))
}

func TestCompileProgramFullPipeline(t *testing.T) {
	prog := ast.NewProgram()
	pos := ast.Pos{File: "t", Line: 1}

	gpio, err := ast.NewRegDecl(prog.Symbols, pos, "gpio", 0x40020014)
	assert.NoError(t, err)
	button, err := ast.NewSigDecl(prog.Symbols, pos, "button", 0x40020010, 3)
	assert.NoError(t, err)
	count, err := ast.NewVarDecl(prog.Symbols, pos, "presses")
	assert.NoError(t, err)

	auto, err := ast.NewAutoDecl(prog.Symbols, pos, "blink",
		ast.NewSetStmt(pos, count, ast.NewConstExpr(pos, 0)))
	assert.NoError(t, err)

	toggleLED := ast.NewSetFieldStmt(pos, gpio, ast.NewConstExpr(pos, 0), ast.NewConstExpr(pos, 0),
		ast.NewUnopExpr(pos, ast.INV, ast.NewBitFieldExpr(pos, ast.NewMemExpr(pos, gpio), ast.NewConstExpr(pos, 0), ast.NewConstExpr(pos, 0))))
	incCount := ast.NewSetStmt(pos, count, ast.NewBinopExpr(pos, ast.ADD, ast.NewMemExpr(pos, count), ast.NewConstExpr(pos, 1)))
	offAction := ast.NewSeqStmt(pos, toggleLED, ast.NewSeqStmt(pos, incCount, ast.NewGotoStmt(pos, "on")))

	offState := ast.NewState(pos, "off", ast.NewNOPStmt(pos))
	offState.AddWhen(ast.NewWhen(pos, button, false, offAction))
	assert.NoError(t, auto.AddState(offState))

	onState := ast.NewState(pos, "on", ast.NewNOPStmt(pos))
	onRelease := ast.NewIfStmt(pos,
		ast.NewCompCond(pos, ast.GE, ast.NewMemExpr(pos, count), ast.NewConstExpr(pos, 10)),
		ast.NewStopStmt(pos), ast.NewGotoStmt(pos, "off"))
	onState.AddWhen(ast.NewWhen(pos, button, true, onRelease))
	assert.NoError(t, auto.AddState(onState))

	prog.AddAuto(auto)
	assert.NoError(t, prog.Fix())

	text, _, err := CompileProgram(context.Background(), prog)
	assert.NoError(t, err)
	assert.NotEmpty(t, text)

	out := string(text)
	assert.Contains(t, out, "@ automaton blink")
	assert.True(t, strings.Contains(out, "str") || strings.Contains(out, "ldr"), "expected memory instructions for the RegDecl load/store traffic")
}

func TestSplitBlocksEndsBlockAfterControlTransfer(t *testing.T) {
	insts := []asm.Instruction{
		{Format: "\tmov R%0, #%1"},
		{Format: "\tb L%0", IsControlTransfer: true},
		{Format: "L%0:", IsLabel: true},
		{Format: "\tbx LR", IsControlTransfer: true},
	}
	blocks := splitBlocks(insts)
	assert.Len(t, blocks, 2)
	assert.Len(t, blocks[0], 2) // mov, b
	assert.Len(t, blocks[1], 2) // label, bx
}

func TestSplitBlocksStartsNewBlockBeforeLabel(t *testing.T) {
	insts := []asm.Instruction{
		{Format: "\tmov R%0, #%1"},
		{Format: "L%0:", IsLabel: true},
		{Format: "\tmov R%0, #%1"},
	}
	blocks := splitBlocks(insts)
	assert.Len(t, blocks, 2)
	assert.False(t, blocks[0][0].IsLabel)
	assert.True(t, blocks[1][0].IsLabel)
}

// TestCompileProgramFusesCompareBranchAcrossBlockBoundary reproduces spec
// scenario 3 end-to-end: a GOTO_LE immediately followed by an unconditional
// GOTO to a different label, immediately followed by the LE's own target
// label. Selection must run over the automaton's whole quad stream before
// any block split, or this 3-quad window is never seen whole and the
// goto_le_seq fusion can never match in the real pipeline.
func TestCompileProgramFusesCompareBranchAcrossBlockBoundary(t *testing.T) {
	prog := ast.NewProgram()
	pos := ast.Pos{File: "t", Line: 1}

	count, err := ast.NewVarDecl(prog.Symbols, pos, "count")
	assert.NoError(t, err)

	auto, err := ast.NewAutoDecl(prog.Symbols, pos, "gate",
		ast.NewSetStmt(pos, count, ast.NewConstExpr(pos, 0)))
	assert.NoError(t, err)

	s := ast.NewState(pos, "s", ast.NewIfStmt(pos,
		ast.NewCompCond(pos, ast.LE, ast.NewMemExpr(pos, count), ast.NewConstExpr(pos, 10)),
		ast.NewStopStmt(pos), ast.NewGotoStmt(pos, "s")))
	assert.NoError(t, auto.AddState(s))

	prog.AddAuto(auto)
	assert.NoError(t, prog.Fix())

	text, _, err := CompileProgram(context.Background(), prog)
	assert.NoError(t, err)

	out := string(text)
	assert.Equal(t, 1, strings.Count(out, "\tcmp"), "the compare must be emitted once, fused with its branch, not duplicated across an unfused goto/label pair")
}
