package asm

import (
	"context"
	"fmt"
	"math/bits"

	"tlog.app/go/tlog"

	"github.com/ioml-lang/iocc/compiler/ir"
)

// isImmediate reports whether x fits the ARM rotated-immediate encoding: an
// 8-bit value rotated right by an even number of bit positions. Unlike
// Inst.cpp's version, which only shifts x right looking for trailing zero
// pairs and misses values that need to wrap around (e.g. 0xC0000003, which
// fits as 0x0F rotated right by 2 bits), this checks every
// rotation explicitly, per spec.md's corrected prose.
func isImmediate(x uint32) bool {
	for rot := uint(0); rot < 32; rot += 2 {
		if bits.RotateLeft32(x, int(rot))&0xFFFFFF00 == 0 {
			return true
		}
	}
	return false
}

// vars holds the template variables recorded while matching one selector
// against the quad stream, indexed by pattern slot. A fixed-size array
// (not a map) deliberately mirrors Inst.cpp's uint32_t vars[16]: an unset
// slot reads back as zero, the same zero-value semantics select_roli's
// preserved quirk (see templates.go) relies on.
type vars [16]int32

func matchParam(p qp, arg int32, v *vars) bool {
	switch p.check {
	case ignore:
		return true
	case pow2:
		if bits.OnesCount32(uint32(arg)) != 1 {
			return false
		}
		v[p.slot] = arg
		return true
	case record:
		v[p.slot] = arg
		return true
	case equal:
		return v[p.slot] == arg
	case isImm:
		if !isImmediate(uint32(arg)) {
			return false
		}
		v[p.slot] = arg
		return true
	case literal:
		return arg == p.lit
	default:
		return false
	}
}

func matchQuad(pat qpat, q ir.Quad, v *vars) bool {
	return pat.op == q.Op &&
		matchParam(pat.d, q.D, v) &&
		matchParam(pat.a, q.A, v) &&
		matchParam(pat.b, q.B, v)
}

func makeInst(t instTemplate, v *vars) Instruction {
	params := make([]Param, len(t.params))
	for i, p := range t.params {
		var val int32
		switch p.action {
		case actCopy:
			val = v[p.slot]
		case actLog2:
			val = int32(bits.TrailingZeros32(uint32(v[p.slot])))
		}
		params[i] = Param{Kind: p.kind, Value: val}
	}
	return Instruction{
		Format:            t.format,
		Params:            params,
		IsLabel:           t.isLabel,
		IsControlTransfer: t.isControlTransfer,
	}
}

// Select performs greedy, longest-match instruction selection over quads,
// trying each template in table order at each position and taking the
// first whose whole pattern matches, transcribing Inst.cpp's select().
// Quads nothing matches are skipped with a Warning logged via the span
// (fail-open, never an error — selection gaps are diagnostics per
// SPEC_FULL.md §7.3).
func Select(ctx context.Context, quads []ir.Quad) ([]Instruction, []Warning) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "asm: select", "quads", len(quads))
	defer tr.Finish()

	var insts []Instruction
	var warnings []Warning

	for i := 0; i < len(quads); {
		matched := false
		for _, t := range templates {
			var v vars
			j := i
			ok := true
			for _, pat := range t.pattern {
				if j >= len(quads) || !matchQuad(pat, quads[j], &v) {
					ok = false
					break
				}
				j++
			}
			if !ok {
				continue
			}
			for _, et := range t.emit {
				insts = append(insts, makeInst(et, &v))
			}
			matched = true
			i = j
			break
		}
		if !matched {
			w := Warning{Index: i, Quad: fmt.Sprintf("%+v", quads[i])}
			warnings = append(warnings, w)
			tr.Printw("selection gap", "index", i, "op", quads[i].Op)
			i++
		}
	}

	return insts, warnings
}
