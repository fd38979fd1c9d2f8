package encode

import (
	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// emitAbsTarget emits a 16/24-bit absolute jump/call target, honoring the
// eZ80 long-address instruction mode.
func (c *Ctx) emitAbsTarget(tail string) error {
	ops, ok := c.operands(tail, 1)
	if !ok {
		return errIllegal
	}
	op := c.parseOperand(ops[0])
	ex, ok := operand.IsImmediate(op)
	if !ok {
		if ex2, ok2 := operand.IsMemoryAddress(op); ok2 {
			ex = ex2
		} else {
			return c.illegalOperand()
		}
	}
	return c.Emit.EmitWord(ex, c.D.LongInsn())
}

// EmitJp implements emit_jp: `JP nn`, `JP cc,nn`, `JP (HL)`, `JP (IX)`,
// `JP (IY)`.
func (c *Ctx) EmitJp(tail string) error {
	ops := splitOperands(tail)
	if len(ops) == 2 {
		return c.EmitJpcc(ops[0], ops[1])
	}
	if len(ops) != 1 {
		c.Diag.Error("bad expression syntax")
		return errIllegal
	}
	op := c.parseOperand(ops[0])
	if operand.IsHLIndirect(op) {
		c.emitBytes(0xE9)
		return nil
	}
	if idx, disp, ok := operand.IsIndexed(op); ok {
		if v, ok := expr.Eval(disp, nil); !ok || v != 0 {
			return c.illegalOperand() // JP (IX+d) with a nonzero displacement doesn't exist
		}
		c.emitBytes(indexPrefix(idx), 0xE9)
		return nil
	}
	c.emitBytes(0xC3)
	return c.emitAbsTarget(tail)
}

// EmitJpcc implements `JP cc,nn`.
func (c *Ctx) EmitJpcc(condTail, targetTail string) error {
	cc, ok := c.condOperand(condTail)
	if !ok {
		return c.illegalOperand()
	}
	c.emitBytes(0xC2 + byte(cc))
	op := c.parseOperand(targetTail)
	ex, ok := operand.IsImmediate(op)
	if !ok {
		if ex2, ok2 := operand.IsMemoryAddress(op); ok2 {
			ex = ex2
		} else {
			return c.illegalOperand()
		}
	}
	return c.Emit.EmitWord(ex, c.D.LongInsn())
}

// EmitJr implements emit_jr: `JR e` or `JR cc,e` (cc restricted to NZ/Z/NC/C;
// DJNZ shares this shape via a distinct base opcode).
func (c *Ctx) EmitJr(tail string) error {
	ops := splitOperands(tail)
	if len(ops) == 2 {
		return c.EmitJrcc(ops[0], ops[1])
	}
	if len(ops) != 1 {
		c.Diag.Error("bad expression syntax")
		return errIllegal
	}
	c.emitBytes(0x18)
	op := c.parseOperand(ops[0])
	ex, ok := operand.IsImmediate(op)
	if !ok {
		return c.illegalOperand()
	}
	return c.Emit.EmitPCRelByte(ex, 2)
}

// EmitJrcc implements `JR cc,e`.
func (c *Ctx) EmitJrcc(condTail, targetTail string) error {
	cc, ok := c.condOperand(condTail)
	if !ok || !regs.IsJRCond(cc) {
		return c.illegalOperand()
	}
	c.emitBytes(0x20 + byte(cc))
	op := c.parseOperand(targetTail)
	ex, ok := operand.IsImmediate(op)
	if !ok {
		return c.illegalOperand()
	}
	return c.Emit.EmitPCRelByte(ex, 2)
}

// EmitDjnz implements `DJNZ e` (Z80/R800/Z180/eZ80/Z80N only — GBZ80 dropped
// it in favor of plain loop constructs).
func (c *Ctx) EmitDjnz(tail string) error {
	if c.D.CPU() == dialect.GBZ80 {
		c.Diag.Error("illegal operand")
		return errIllegal
	}
	ops, ok := c.operands(tail, 1)
	if !ok {
		return errIllegal
	}
	c.emitBytes(0x10)
	op := c.parseOperand(ops[0])
	ex, ok := operand.IsImmediate(op)
	if !ok {
		return c.illegalOperand()
	}
	return c.Emit.EmitPCRelByte(ex, 2)
}

// EmitCall implements emit_call: `CALL nn` or `CALL cc,nn`.
func (c *Ctx) EmitCall(tail string) error {
	ops := splitOperands(tail)
	if len(ops) == 2 {
		cc, ok := c.condOperand(ops[0])
		if !ok {
			return c.illegalOperand()
		}
		c.emitBytes(0xC4 + byte(cc))
		return c.emitAbsTarget(ops[1])
	}
	c.emitBytes(0xCD)
	return c.emitAbsTarget(tail)
}

// EmitRetcc implements emit_retcc: bare `RET`, or `RET cc`.
func (c *Ctx) EmitRetcc(tail string) error {
	tail = trimSpace(tail)
	if tail == "" {
		c.emitBytes(0xC9)
		return nil
	}
	cc, ok := c.condOperand(tail)
	if !ok {
		return c.illegalOperand()
	}
	c.emitBytes(0xC0 + byte(cc))
	return nil
}

// EmitReti implements `RETI` (ED 4D) and `RETN` (ED 45) — identical shape,
// distinguished only by the fixed second opcode byte the caller selects.
func (c *Ctx) EmitReti(second byte) func(tail string) error {
	return func(tail string) error {
		if trimSpace(tail) != "" {
			c.Diag.Error("bad expression syntax")
			return errIllegal
		}
		c.emitBytes(0xED, second)
		return nil
	}
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
