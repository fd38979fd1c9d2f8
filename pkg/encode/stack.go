package encode

import (
	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// pushPopField returns the 2-bit PUSH/POP register field (BC=0,DE=1,HL/IX/
// IY=2,AF=3) and the DD/FD prefix to emit first, if any.
func pushPopField(r regs.Reg) (field uint8, prefix byte, hasPrefix bool, ok bool) {
	switch r &^ (regs.Arith | regs.Stackable | regs.IndexMask) {
	case regs.BC:
		return 0, 0, false, true
	case regs.DE:
		return 1, 0, false, true
	case regs.HL:
		return 2, 0, false, true
	case regs.AF:
		return 3, 0, false, true
	case regs.IX:
		return 2, 0xDD, true, true
	case regs.IY:
		return 2, 0xFD, true, true
	}
	return 0, 0, false, false
}

func (c *Ctx) emitStackOp(base byte) func(tail string) error {
	return func(tail string) error {
		ops, ok := c.operands(tail, 1)
		if !ok {
			return errIllegal
		}
		op := c.parseOperand(ops[0])
		r, ok := operand.IsRegPair(op)
		if !ok || r&regs.Stackable == 0 {
			return c.illegalOperand()
		}
		field, prefix, hasPrefix, ok := pushPopField(r)
		if !ok {
			return c.illegalOperand()
		}
		if hasPrefix {
			c.emitBytes(prefix, base+field<<4)
		} else {
			c.emitBytes(base + field<<4)
		}
		return nil
	}
}

// EmitPush implements emit_push: `PUSH rr` for rr in {BC,DE,HL,AF,IX,IY}, plus
// the Z80N `PUSH nn` immediate form (ED 8A, big-endian word, §4.6).
func (c *Ctx) EmitPush(tail string) error {
	ops, ok := c.operands(tail, 1)
	if !ok {
		return errIllegal
	}
	op := c.parseOperand(ops[0])
	if ex, ok := operand.IsImmediate(op); ok {
		if !c.requireCPU(dialect.Z80N) {
			return errIllegal
		}
		c.emitBytes(0xED, 0x8A)
		return c.Emit.EmitWordBE(ex)
	}
	return c.emitStackOp(0xC5)(tail)
}

// EmitPop implements emit_pop: `POP rr`.
func (c *Ctx) EmitPop(tail string) error { return c.emitStackOp(0xC1)(tail) }
