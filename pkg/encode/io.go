package encode

import (
	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// EmitIn implements emit_in: `IN A,(n)`, `IN r,(C)`, the eZ80-only `IN r,(BC)`
// port form, and the undocumented `IN (C)`/`IN F,(C)` (reads into flags only,
// discarding the result; §4.6, gated on ClassInFC).
func (c *Ctx) EmitIn(tail string) error {
	parts := splitOperands(tail)
	if len(parts) == 1 {
		// the undocumented single-operand `IN (C)` / `IN F,(C)` spelling
		if !c.isInOutPort(c.parseOperand(parts[0])) {
			return c.illegalOperand()
		}
		if !c.checkClass(dialect.ClassInFC) {
			return errIllegal
		}
		c.emitBytes(0xED, 0x70)
		return nil
	}
	if len(parts) != 2 {
		c.Diag.Error("bad expression syntax")
		return errIllegal
	}
	ops := parts
	dst := c.parseOperand(ops[0])
	f, ok := operand.IsReg(dst)
	if !ok && dst != nil && dst.Kind == expr.Register && regs.Reg(dst.Reg) == regs.F {
		f, ok = uint8(regs.F), true
	}
	if ok {
		if f == uint8(regs.F) {
			if !c.isInOutPort(c.parseOperand(ops[1])) {
				return c.illegalOperand()
			}
			if !c.checkClass(dialect.ClassInFC) {
				return errIllegal
			}
			c.emitBytes(0xED, 0x70)
			return nil
		}
		if f == uint8(regs.A) {
			src := c.parseOperand(ops[1])
			if ex, ok := operand.IsMemoryAddress(src); ok {
				c.emitBytes(0xDB)
				return c.Emit.EmitByte(ex, fixup.Reloc8)
			}
		}
		if c.isInOutPort(c.parseOperand(ops[1])) {
			c.emitBytes(0xED, 0x40+f<<3)
			return nil
		}
	}
	return c.illegalOperand()
}

// EmitOut implements emit_out: `OUT (n),A`, `OUT (C),r`, the eZ80-only
// `OUT (BC),r` port form, and the undocumented `OUT (C),0` (ClassOutC0).
func (c *Ctx) EmitOut(tail string) error {
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	dst := c.parseOperand(ops[0])
	if ex, ok := operand.IsMemoryAddress(dst); ok {
		src := c.parseOperand(ops[1])
		if f, ok := operand.IsReg(src); ok && f == uint8(regs.A) {
			c.emitBytes(0xD3)
			return c.Emit.EmitByte(ex, fixup.Reloc8)
		}
		return c.illegalOperand()
	}
	if c.isInOutPort(dst) {
		src := c.parseOperand(ops[1])
		if f, ok := operand.IsReg(src); ok {
			c.emitBytes(0xED, 0x41+f<<3)
			return nil
		}
		if zeroImmediate(src) {
			if !c.checkClass(dialect.ClassOutC0) {
				return errIllegal
			}
			c.emitBytes(0xED, 0x71)
			return nil
		}
	}
	return c.illegalOperand()
}

// EmitIn0 implements the Z180 `IN0 r,(n)` form (ED 00+r<<3, n).
func (c *Ctx) EmitIn0(tail string) error {
	if !c.requireCPU(dialect.Z180) {
		return errIllegal
	}
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	dst := c.parseOperand(ops[0])
	f, ok := operand.IsReg(dst)
	if !ok {
		return c.illegalOperand()
	}
	src := c.parseOperand(ops[1])
	ex, ok := operand.IsMemoryAddress(src)
	if !ok {
		return c.illegalOperand()
	}
	c.emitBytes(0xED, 0x00+f<<3)
	return c.Emit.EmitByte(ex, fixup.Reloc8)
}

// EmitOut0 implements the Z180 `OUT0 (n),r` form (ED 01+r<<3, n).
func (c *Ctx) EmitOut0(tail string) error {
	if !c.requireCPU(dialect.Z180) {
		return errIllegal
	}
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	dst := c.parseOperand(ops[0])
	ex, ok := operand.IsMemoryAddress(dst)
	if !ok {
		return c.illegalOperand()
	}
	src := c.parseOperand(ops[1])
	f, ok := operand.IsReg(src)
	if !ok {
		return c.illegalOperand()
	}
	c.emitBytes(0xED, 0x01+f<<3)
	return c.Emit.EmitByte(ex, fixup.Reloc8)
}

// isParenC reports whether op is the literal `(C)` port-indirect operand.
func isParenC(op *expr.Operand) bool {
	return op != nil && op.Kind == expr.IndirectRegister && regs.Reg(op.Reg) == regs.C
}

// isInOutPort reports whether op is a valid IN/OUT port operand: the literal
// `(C)` form, or the eZ80-only `(BC)` form (emit_in/emit_out: port.X_add_number
// == REG_BC gated on INS_EZ80).
func (c *Ctx) isInOutPort(op *expr.Operand) bool {
	if isParenC(op) {
		return true
	}
	if r, ok := operand.IsBCorDEIndirect(op); ok && r == regs.BC {
		return c.D.CPU() == dialect.EZ80
	}
	return false
}

// zeroImmediate reports whether op is a constant-foldable immediate with
// value 0 (the undocumented `OUT (C),0`).
func zeroImmediate(op *expr.Operand) bool {
	if op == nil || op.Kind != expr.Immediate {
		return false
	}
	v, ok := expr.Eval(op.Expr, nil)
	return ok && v == 0
}
