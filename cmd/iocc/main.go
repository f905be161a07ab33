// Command iocc is a demonstration driver for the IOML back end: lexing,
// parsing and semantic checking are out of scope for this repository (they
// are an external front end's job), so this builds a small fixture
// *ast.Program directly in Go, the way a parser+checker would, and runs it
// through the full pipeline, printing the resulting assembly and any
// selection warnings.
package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/ioml-lang/iocc/compiler"
	"github.com/ioml-lang/iocc/compiler/ast"
)

func main() {
	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "iocc",
		Description: "iocc compiles an IOML automaton fixture to ARM assembly",
		Commands: []*cli.Command{
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	prog, err := buildFixture()
	if err != nil {
		return errors.Wrap(err, "build fixture program")
	}

	obj, warnings, err := compiler.CompileProgram(ctx, prog)
	if err != nil {
		return errors.Wrap(err, "compile program")
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	fmt.Printf("%s", obj)

	return nil
}

// buildFixture constructs a minimal two-state blinking-LED automaton:
// a GPIO output register, a button-press signal bit, and a Var counting
// presses, toggling an LED bit on each press. It exercises declarations,
// signal-gated transitions, bit-field assignment and arithmetic in one
// small program so the pipeline can be demonstrated end to end without a
// parser.
func buildFixture() (*ast.Program, error) {
	prog := ast.NewProgram()
	pos := ast.Pos{File: "fixture.ioml", Line: 1}

	gpio, err := ast.NewRegDecl(prog.Symbols, pos, "gpio", 0x40020014)
	if err != nil {
		return nil, err
	}
	button, err := ast.NewSigDecl(prog.Symbols, pos, "button", 0x40020010, 3)
	if err != nil {
		return nil, err
	}
	count, err := ast.NewVarDecl(prog.Symbols, pos, "presses")
	if err != nil {
		return nil, err
	}

	auto, err := ast.NewAutoDecl(prog.Symbols, pos, "blink", ast.NewSetStmt(pos, count, ast.NewConstExpr(pos, 0)))
	if err != nil {
		return nil, err
	}

	// off: on button press, toggle bit 0 of gpio and increment presses,
	// then go to "on".
	toggleLED := ast.NewSetFieldStmt(pos, gpio, ast.NewConstExpr(pos, 0), ast.NewConstExpr(pos, 0),
		ast.NewUnopExpr(pos, ast.INV, ast.NewBitFieldExpr(pos, ast.NewMemExpr(pos, gpio), ast.NewConstExpr(pos, 0), ast.NewConstExpr(pos, 0))))
	incCount := ast.NewSetStmt(pos, count, ast.NewBinopExpr(pos, ast.ADD, ast.NewMemExpr(pos, count), ast.NewConstExpr(pos, 1)))
	goOn := ast.NewGotoStmt(pos, "on")

	offAction := ast.NewSeqStmt(pos, toggleLED, ast.NewSeqStmt(pos, incCount, goOn))
	offState := ast.NewState(pos, "off", ast.NewNOPStmt(pos))
	offState.AddWhen(ast.NewWhen(pos, button, false, offAction))
	if err := auto.AddState(offState); err != nil {
		return nil, err
	}

	// on: on button release, stop once 10 presses have accumulated,
	// otherwise go back to "off".
	onState := ast.NewState(pos, "on", ast.NewNOPStmt(pos))
	onRelease := ast.NewIfStmt(pos,
		ast.NewCompCond(pos, ast.GE, ast.NewMemExpr(pos, count), ast.NewConstExpr(pos, 10)),
		ast.NewStopStmt(pos), ast.NewGotoStmt(pos, "off"))
	onState.AddWhen(ast.NewWhen(pos, button, true, onRelease))
	if err := auto.AddState(onState); err != nil {
		return nil, err
	}

	prog.AddAuto(auto)

	if err := prog.Fix(); err != nil {
		return nil, err
	}

	return prog, nil
}
