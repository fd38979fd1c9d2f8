// Package operand implements the §4.4 classification predicates over a
// parsed expr.Operand: is this a plain register, (HL), (IX+d), (BC)/(DE),
// an absolute memory address, or an immediate.
package operand

import (
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/regs"
)

// IsReg reports "is register r (0-7)": a bare, non-indirect 8-bit register.
func IsReg(o *expr.Operand) (field uint8, ok bool) {
	if o == nil || o.Kind != expr.Register {
		return 0, false
	}
	r := regs.Reg(o.Reg)
	if regs.IsReg8(r) {
		return uint8(r), true
	}
	if regs.IsIndexHalf(r) {
		return regs.Field8(r), true
	}
	return 0, false
}

// IsRegPair reports "is register-pair rr": a bare 16-bit register.
func IsRegPair(o *expr.Operand) (regs.Reg, bool) {
	if o == nil || o.Kind != expr.Register {
		return 0, false
	}
	r := regs.Reg(o.Reg)
	switch r &^ (regs.Arith | regs.Stackable | regs.IndexMask) {
	case regs.BC, regs.DE, regs.HL, regs.SP, regs.IX, regs.IY, regs.AF:
		return r, true
	}
	return 0, false
}

// IsHLIndirect reports "is (HL)".
func IsHLIndirect(o *expr.Operand) bool {
	return o != nil && o.Kind == expr.IndirectRegister && regs.Reg(o.Reg)&^(regs.Arith|regs.Stackable|regs.IndexMask) == regs.HL
}

// IsIndexed reports "is (IX+d)/(IY+d)" and returns which index register and
// the displacement expression.
func IsIndexed(o *expr.Operand) (idx regs.Reg, disp *expr.Node, ok bool) {
	if o == nil || o.Kind != expr.Indexed {
		return 0, nil, false
	}
	return regs.Reg(o.IndexReg), o.Displacement, true
}

// IsBCorDEIndirect reports "is (BC)/(DE)".
func IsBCorDEIndirect(o *expr.Operand) (regs.Reg, bool) {
	if o == nil || o.Kind != expr.IndirectRegister {
		return 0, false
	}
	r := regs.Reg(o.Reg) &^ (regs.Arith | regs.Stackable | regs.IndexMask)
	if r == regs.BC || r == regs.DE {
		return r, true
	}
	return 0, false
}

// IsMemoryAddress reports "is (nn)": parenthesized, and none of the more
// specific indirect forms above.
func IsMemoryAddress(o *expr.Operand) (*expr.Node, bool) {
	if o == nil || o.Kind != expr.MemoryAddress {
		return nil, false
	}
	return o.Expr, true
}

// IsImmediate reports "is immediate": unparenthesized and not a register or
// indexed form. An immediate whose expression tree contains a register
// reference was already rejected during classification (Kind==Illegal), so
// reaching here with Kind==Immediate guarantees a register-free tree.
func IsImmediate(o *expr.Operand) (*expr.Node, bool) {
	if o == nil || o.Kind != expr.Immediate {
		return nil, false
	}
	return o.Expr, true
}

// IsHLPostIncDec reports the GBZ80 "(HL+)"/"(HL-)" special operand.
func IsHLPostIncDec(o *expr.Operand) (delta int, ok bool) {
	if o == nil || o.Kind != expr.HLPostIncDec {
		return 0, false
	}
	return o.HLDelta, true
}

// IsCondition reports whether o names a condition code (used at operand
// positions for conditional jump/call/return, parsed directly by the
// encoder rather than through the generic arithmetic grammar).
func IsCondition(o *expr.Operand) (regs.Cond, bool) {
	if o == nil || o.Kind != expr.Condition {
		return 0, false
	}
	return regs.Cond(o.Cond), true
}
