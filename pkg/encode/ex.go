package encode

import (
	"strings"

	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// EmitEx implements emit_ex: `EX DE,HL`, `EX AF,AF'`, `EX (SP),HL`,
// `EX (SP),IX`, `EX (SP),IY`.
func (c *Ctx) EmitEx(tail string) error {
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}

	if strings.EqualFold(strings.TrimSpace(ops[0]), "AF") && strings.TrimSpace(ops[1]) == "AF'" {
		c.emitBytes(0x08)
		return nil
	}

	left := c.parseOperand(ops[0])
	if lr, ok := operand.IsRegPair(left); ok && lr&^(regs.Arith|regs.Stackable|regs.IndexMask) == regs.DE {
		right := c.parseOperand(ops[1])
		if rr, ok := operand.IsRegPair(right); ok && rr&^(regs.Arith|regs.Stackable|regs.IndexMask) == regs.HL {
			c.emitBytes(0xEB)
			return nil
		}
		return c.illegalOperand()
	}

	if isSPIndirect(left) {
		right := c.parseOperand(ops[1])
		if rr, ok := operand.IsRegPair(right); ok {
			switch rr &^ (regs.Arith | regs.Stackable | regs.IndexMask) {
			case regs.HL:
				c.emitBytes(0xE3)
				return nil
			case regs.IX:
				c.emitBytes(0xDD, 0xE3)
				return nil
			case regs.IY:
				c.emitBytes(0xFD, 0xE3)
				return nil
			}
		}
		return c.illegalOperand()
	}

	return c.illegalOperand()
}

func isSPIndirect(op *expr.Operand) bool {
	if op == nil {
		return false
	}
	return op.Kind == expr.IndirectRegister && regs.Reg(op.Reg)&^(regs.Arith|regs.Stackable|regs.IndexMask) == regs.SP
}
