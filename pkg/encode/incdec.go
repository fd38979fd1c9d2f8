package encode

import (
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// emitIncDec implements emit_incdec: INC/DEC over an 8-bit r/(HL)/(IX+d) or
// a 16-bit register pair, sharing the src8 classifier with the ALU family.
// is8Base/is16Base select which half of the opcode space applies (8-bit:
// base+field<<3 with INC=0x04,DEC=0x05; 16-bit: base|rr<<4 with INC=0x03,
// DEC=0x0B; AF is not a valid INC/DEC operand so it's rejected like ADD).
func (c *Ctx) emitIncDec(is8Base, is16Base byte) func(tail string) error {
	return func(tail string) error {
		ops, ok := c.operands(tail, 1)
		if !ok {
			return errIllegal
		}
		op := c.parseOperand(ops[0])
		if src, ok := c.classifySrc8(op); ok {
			return c.emitSrc8(src, is8Base+src.field<<3)
		}
		if dr, ok := operand.IsRegPair(op); ok {
			switch dr &^ (regs.Arith | regs.Stackable | regs.IndexMask) {
			case regs.BC:
				c.emitBytes(is16Base | 0<<4)
				return nil
			case regs.DE:
				c.emitBytes(is16Base | 1<<4)
				return nil
			case regs.HL:
				c.emitBytes(is16Base | 2<<4)
				return nil
			case regs.SP:
				c.emitBytes(is16Base | 3<<4)
				return nil
			case regs.IX:
				c.emitBytes(0xDD, is16Base|2<<4)
				return nil
			case regs.IY:
				c.emitBytes(0xFD, is16Base|2<<4)
				return nil
			}
		}
		return c.illegalOperand()
	}
}

func (c *Ctx) EmitInc(tail string) error { return c.emitIncDec(0x04, 0x03)(tail) }
func (c *Ctx) EmitDec(tail string) error { return c.emitIncDec(0x05, 0x0B)(tail) }
