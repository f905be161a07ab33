package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinopReduceFoldsConstants(t *testing.T) {
	e := NewBinopExpr(Pos{}, ADD, NewConstExpr(Pos{}, 2), NewConstExpr(Pos{}, 3))
	r := e.Reduce()
	c, ok := r.(*ConstExpr)
	assert.True(t, ok)
	assert.EqualValues(t, 5, c.Value)
}

func TestBinopReduceLeavesNonConstAlone(t *testing.T) {
	tab := NewSymbolTable()
	v, err := NewVarDecl(tab, Pos{}, "v")
	assert.NoError(t, err)

	e := NewBinopExpr(Pos{}, ADD, NewMemExpr(Pos{}, v), NewConstExpr(Pos{}, 3))
	r := e.Reduce()
	_, isConst := r.(*ConstExpr)
	assert.False(t, isConst)
}

func TestMemExprReduceFoldsConstDecl(t *testing.T) {
	tab := NewSymbolTable()
	cd, err := NewConstDecl(tab, Pos{}, "C", 9)
	assert.NoError(t, err)

	r := NewMemExpr(Pos{}, cd).Reduce()
	c, ok := r.(*ConstExpr)
	assert.True(t, ok)
	assert.EqualValues(t, 9, c.Value)
}

func TestBitFieldReducePreservesSingleBitAlias(t *testing.T) {
	tab := NewSymbolTable()
	v, err := NewVarDecl(tab, Pos{}, "v")
	assert.NoError(t, err)

	idx := NewConstExpr(Pos{}, 3)
	e := NewBitFieldExpr(Pos{}, NewMemExpr(Pos{}, v), idx, idx)

	r := e.Reduce()
	bf, ok := r.(*BitFieldExpr)
	assert.True(t, ok, "non-constant base expression must not fold")
	assert.Same(t, bf.Hi, bf.Lo, "single-bit index aliasing must survive Reduce")
}

func TestBitFieldReduceFoldsWhenFullyConstant(t *testing.T) {
	e := NewBitFieldExpr(Pos{}, NewConstExpr(Pos{}, 0xF0), NewConstExpr(Pos{}, 7), NewConstExpr(Pos{}, 4))
	r := e.Reduce()
	c, ok := r.(*ConstExpr)
	assert.True(t, ok)
	assert.EqualValues(t, 0xF, c.Value)
}

func TestSymbolTableRejectsDuplicateNames(t *testing.T) {
	tab := NewSymbolTable()
	_, err := NewVarDecl(tab, Pos{}, "x")
	assert.NoError(t, err)
	_, err = NewConstDecl(tab, Pos{}, "x", 1)
	assert.Error(t, err)
}
