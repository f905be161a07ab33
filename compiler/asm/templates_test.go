package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTemplateTableOrder pins the selector table's priority order: zero/one
// algebraic identities and immediate/fused-branch/pow2 forms must all come
// before the general one-quad fallbacks, which in turn precede the rarely
// matched call/label/mov/return/nop tail.
func TestTemplateTableOrder(t *testing.T) {
	want := []string{
		"add_zero", "sub_zero", "negate", "mul_zero", "mul_one",
		"addi", "subi", "andi", "ori", "xori", "shli", "shri", "rori", "roli",
		"goto_label", "goto_eq_seq", "goto_ne_seq", "goto_lt_seq", "goto_le_seq", "goto_gt_seq", "goto_ge_seq",
		"mul_pow2", "div_pow2",
		"add", "addi2", "sub", "mul", "div", "mod", "and", "or", "xor", "shl", "shr", "ror", "rol",
		"neg", "inv", "load", "store",
		"goto", "goto_eq", "goto_ne", "goto_lt", "goto_le", "goto_gt", "goto_ge",
		"call", "label", "mov", "movi", "ldreq", "return", "nop",
	}

	got := make([]string, len(templates))
	for i, tmpl := range templates {
		got[i] = tmpl.name
	}
	assert.Equal(t, want, got)
}

func TestGotoLeSeqUsesValidConditionCode(t *testing.T) {
	tmpl := findTemplate(t, "goto_le_seq")
	assert.Equal(t, "\tbgt L%0", tmpl.emit[1].format, "bg is not a valid ARM condition code")
}

func TestGotoGeSeqUsesValidConditionCode(t *testing.T) {
	tmpl := findTemplate(t, "goto_ge_seq")
	assert.Equal(t, "\tblt L%0", tmpl.emit[1].format, "bl is branch-with-link, not branch-if-less-than")
}

func TestStoreOperandOrder(t *testing.T) {
	tmpl := findTemplate(t, "store")
	assert.Equal(t, "\tstr R%0, [R%1]", tmpl.emit[0].format)
	// position 0 (the stored value) must read slot 1 (STORE's A field);
	// position 1 (the address) must read slot 0 (STORE's D field).
	assert.Equal(t, 1, tmpl.emit[0].params[0].slot)
	assert.Equal(t, 0, tmpl.emit[0].params[1].slot)
}

func findTemplate(t *testing.T, name string) Template {
	t.Helper()
	for _, tmpl := range templates {
		if tmpl.name == name {
			return tmpl
		}
	}
	t.Fatalf("template %q not found", name)
	return Template{}
}
