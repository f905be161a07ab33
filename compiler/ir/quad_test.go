package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuadFieldLayout(t *testing.T) {
	q := Add(3, 1, 2)
	assert.Equal(t, ADD, q.Op)
	assert.EqualValues(t, 3, q.D)
	assert.EqualValues(t, 1, q.A)
	assert.EqualValues(t, 2, q.B)

	s := Store(5, 6)
	assert.Equal(t, STORE, s.Op)
	assert.EqualValues(t, 5, s.D, "store D is the address register")
	assert.EqualValues(t, 6, s.A, "store A is the value register")

	seti := SetI(2, -7)
	assert.Equal(t, SETI, seti.Op)
	assert.EqualValues(t, 2, seti.D)
	assert.EqualValues(t, -7, seti.A)
}

func TestIsControlTransfer(t *testing.T) {
	transferring := []Op{GOTO, GOTO_EQ, GOTO_NE, GOTO_LT, GOTO_LE, GOTO_GT, GOTO_GE, CALL, RETURN}
	for _, op := range transferring {
		assert.True(t, op.IsControlTransfer(), "%v", op)
	}

	notTransferring := []Op{NOP, SET, SETI, ADD, LAB, LOAD, STORE}
	for _, op := range notTransferring {
		assert.False(t, op.IsControlTransfer(), "%v", op)
	}
}

func TestProgramRegAndLabelAllocationIsMonotonic(t *testing.T) {
	p := NewProgram("a")
	r0 := p.NewReg()
	r1 := p.NewReg()
	assert.NotEqual(t, r0, r1)

	l0 := p.NewLabel()
	l1 := p.NewLabel()
	assert.NotEqual(t, l0, l1)
}

func TestProgramRegForIsStablePerName(t *testing.T) {
	p := NewProgram("a")
	r1 := p.RegFor("x")
	r2 := p.RegFor("x")
	assert.Equal(t, r1, r2)

	r3 := p.RegFor("y")
	assert.NotEqual(t, r1, r3)

	assert.Equal(t, []Reg{r1, r3}, p.VarRegs())
}

func TestProgramEmitAndComment(t *testing.T) {
	p := NewProgram("a")
	p.Emit(Nop())
	p.Comment("hello")
	p.Emit(Nop())
	assert.Equal(t, "hello", p.Comments[1])
	assert.NotContains(t, p.Comments, 0)
}
