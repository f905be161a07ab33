package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoDeclFixResolvesGoto(t *testing.T) {
	tab := NewSymbolTable()
	auto, err := NewAutoDecl(tab, Pos{}, "a", NewNOPStmt(Pos{}))
	assert.NoError(t, err)

	g := NewGotoStmt(Pos{}, "b")
	s1 := NewState(Pos{}, "a_state", g)
	s2 := NewState(Pos{}, "b", NewNOPStmt(Pos{}))
	assert.NoError(t, auto.AddState(s1))
	assert.NoError(t, auto.AddState(s2))

	assert.NoError(t, auto.Fix())
	assert.Same(t, s2, g.Target)
}

func TestAutoDeclFixRejectsUnknownState(t *testing.T) {
	tab := NewSymbolTable()
	auto, err := NewAutoDecl(tab, Pos{}, "a", NewNOPStmt(Pos{}))
	assert.NoError(t, err)

	s1 := NewState(Pos{}, "only", NewGotoStmt(Pos{}, "nowhere"))
	assert.NoError(t, auto.AddState(s1))

	assert.Error(t, auto.Fix())
}

func TestAutoDeclRejectsDuplicateStateName(t *testing.T) {
	tab := NewSymbolTable()
	auto, err := NewAutoDecl(tab, Pos{}, "a", NewNOPStmt(Pos{}))
	assert.NoError(t, err)

	assert.NoError(t, auto.AddState(NewState(Pos{}, "s", NewNOPStmt(Pos{}))))
	assert.Error(t, auto.AddState(NewState(Pos{}, "s", NewNOPStmt(Pos{}))))
}
