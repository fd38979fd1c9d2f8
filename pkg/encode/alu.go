package encode

import (
	"strings"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// src8 is a classified 8-bit ALU/LD source or destination: a plain register
// field, (HL), or (II+d) with its prefix byte and displacement expression.
type src8 struct {
	prefix    byte
	hasPrefix bool
	field     uint8
	disp      *expr.Node
}

// classifySrc8 recognizes the four 8-bit operand shapes common to ALU, INC/
// DEC, rotate/shift, and bit-test instructions: r, (HL), (IX+d), (IY+d).
func (c *Ctx) classifySrc8(op *expr.Operand) (src8, bool) {
	if field, ok := operand.IsReg(op); ok {
		r := regs.Reg(op.Reg)
		if regs.IsIndexHalf(r) {
			if !c.checkClass(dialect.ClassIdxHalves) {
				return src8{}, false
			}
			return src8{prefix: indexPrefix(r), hasPrefix: true, field: field}, true
		}
		return src8{field: field}, true
	}
	if operand.IsHLIndirect(op) {
		return src8{field: 6}, true
	}
	if idx, disp, ok := operand.IsIndexed(op); ok {
		return src8{prefix: indexPrefix(idx), hasPrefix: true, field: 6, disp: disp}, true
	}
	return src8{}, false
}

// emitSrc8 writes the prefix (if any), the opcode byte (base with field
// folded in, or base|0x06 when passed directly), then the displacement byte
// for an indexed form.
func (c *Ctx) emitSrc8(src src8, opcode byte) error {
	if src.hasPrefix {
		c.emitBytes(src.prefix, opcode)
	} else {
		c.emitBytes(opcode)
	}
	if src.disp != nil {
		return c.Emit.EmitByte(src.disp, fixup.RelocDisp8)
	}
	return nil
}

// emitALU implements emit_s: the single-operand ALU family (AND/OR/XOR/CP),
// each sharing the `base+field` / `base+6,(HL)` / `base+6,(II+d),d` /
// `immOpcode,n` shape. A redundant leading `A,` is accepted on eZ80 or under
// sdcc compatibility.
func (c *Ctx) emitALU(base, immOpcode byte, tail string) error {
	return c.emitALUForm(base, immOpcode, tail, false)
}

// emitALUForm is emit_s/emit_sub: the shared single-operand ALU shape, plus
// the `A,s` redundant-accumulator form. emit_s accepts that form only on
// eZ80 or sdcc-compat source; emit_sub (SUB, isSub true) is the same off
// GBZ80, but on GBZ80 requires the `A,` prefix outright.
func (c *Ctx) emitALUForm(base, immOpcode byte, tail string, isSub bool) error {
	onGBZ80 := isSub && c.D.CPU() == dialect.GBZ80
	parts := splitOperands(strings.TrimSpace(tail))
	switch len(parts) {
	case 1:
		if onGBZ80 {
			return c.illegalOperand()
		}
		return c.emitALUOperand(base, immOpcode, c.parseOperand(parts[0]))
	case 2:
		if !onGBZ80 && c.D.CPU() != dialect.EZ80 && !c.D.SDCCCompat {
			return c.illegalOperand()
		}
		dst := c.parseOperand(parts[0])
		if f, ok := operand.IsReg(dst); !ok || f != uint8(regs.A) {
			return c.illegalOperand()
		}
		return c.emitALUOperand(base, immOpcode, c.parseOperand(parts[1]))
	default:
		return c.illegalOperand()
	}
}

func (c *Ctx) emitALUOperand(base, immOpcode byte, op *expr.Operand) error {
	if src, ok := c.classifySrc8(op); ok {
		return c.emitSrc8(src, base+src.field)
	}
	if ex, ok := operand.IsImmediate(op); ok {
		c.emitBytes(immOpcode)
		return c.Emit.EmitByte(ex, fixup.Reloc8)
	}
	return c.illegalOperand()
}

// rr16 classifies a bare 16-bit register-pair operand (BC/DE/HL/SP or IX/IY)
// restricted to those valid as an ADD/ADC/SBC HL/IX/IY right-hand side.
func rr16(op *expr.Operand) (regs.Reg, bool) {
	r, ok := operand.IsRegPair(op)
	if !ok || r&regs.Arith == 0 {
		return 0, false
	}
	return r &^ (regs.Arith | regs.Stackable | regs.IndexMask), true
}

func rrField(r regs.Reg) uint8 {
	switch r {
	case regs.BC &^ regs.IndexMask:
		return 0
	case regs.DE &^ regs.IndexMask:
		return 1
	case regs.HL &^ regs.IndexMask:
		return 2
	case regs.SP &^ regs.IndexMask:
		return 3
	}
	return 0
}

// EmitAdd implements emit_add: `ADD A,s` (shares emit_s's source forms) or
// `ADD HL/IX/IY,rr` (16-bit pair add, gated on the accumulator register
// matching the instruction's own index prefix).
func (c *Ctx) EmitAdd(tail string) error {
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	dst := c.parseOperand(ops[0])
	if dstField, ok := operand.IsReg(dst); ok && dstField == uint8(regs.A) {
		return c.emitALU(0x80, 0xC6, ops[1])
	}
	if dr, ok := operand.IsRegPair(dst); ok {
		base := dr &^ (regs.Arith | regs.Stackable | regs.IndexMask)
		src := c.parseOperand(ops[1])
		sr, ok := rr16(src)
		if !ok {
			return c.illegalOperand()
		}
		switch base {
		case regs.HL &^ regs.IndexMask:
			c.emitBytes(0x09 | rrField(sr)<<4)
			return nil
		case regs.IX &^ regs.IndexMask:
			if sr == regs.HL&^regs.IndexMask {
				return c.illegalOperand()
			}
			c.emitBytes(0xDD, 0x09|ixField(sr, regs.IX)<<4)
			return nil
		case regs.IY &^ regs.IndexMask:
			if sr == regs.HL&^regs.IndexMask {
				return c.illegalOperand()
			}
			c.emitBytes(0xFD, 0x09|ixField(sr, regs.IY)<<4)
			return nil
		}
	}
	return c.illegalOperand()
}

// ixField maps a 16-bit source register to the field value ADD IX,pp/ADD
// IY,pp expect, where the index register itself takes HL's field (2).
func ixField(sr regs.Reg, self regs.Reg) uint8 {
	if sr == self&^regs.IndexMask {
		return 2
	}
	return rrField(sr)
}

// EmitAdc implements emit_adc: `ADC A,s` or `ADC HL,rr` (no IX/IY form
// exists for ADC/SBC, unlike ADD).
func (c *Ctx) EmitAdc(tail string) error {
	return emitAccOr16(c, tail, 0x88, 0xCE, 0x4A)
}

// EmitSbc implements `SBC A,s` / `SBC HL,rr`.
func (c *Ctx) EmitSbc(tail string) error {
	return emitAccOr16(c, tail, 0x98, 0xDE, 0x42)
}

func emitAccOr16(c *Ctx, tail string, base, imm byte, hlBase byte) error {
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	dst := c.parseOperand(ops[0])
	if f, ok := operand.IsReg(dst); ok && f == uint8(regs.A) {
		return c.emitALU(base, imm, ops[1])
	}
	if dr, ok := operand.IsRegPair(dst); ok && dr&^(regs.Arith|regs.Stackable|regs.IndexMask) == regs.HL&^regs.IndexMask {
		src := c.parseOperand(ops[1])
		sr, ok := rr16(src)
		if !ok {
			return c.illegalOperand()
		}
		c.emitBytes(0xED, hlBase|rrField(sr)<<4)
		return nil
	}
	return c.illegalOperand()
}

// EmitSub implements emit_sub: `SUB s`, or `SUB A,s` with the leading `A,`
// optional off GBZ80 (eZ80/sdcc-compat only) and mandatory on GBZ80.
func (c *Ctx) EmitSub(tail string) error { return c.emitALUForm(0x90, 0xD6, tail, true) }

// EmitAnd implements `AND s`.
func (c *Ctx) EmitAnd(tail string) error { return c.emitALU(0xA0, 0xE6, tail) }

// EmitXor implements `XOR s`.
func (c *Ctx) EmitXor(tail string) error { return c.emitALU(0xA8, 0xEE, tail) }

// EmitOr implements `OR s`.
func (c *Ctx) EmitOr(tail string) error { return c.emitALU(0xB0, 0xF6, tail) }

// EmitCp implements `CP s`.
func (c *Ctx) EmitCp(tail string) error { return c.emitALU(0xB8, 0xFE, tail) }

// EmitTst implements the Z80N/R800 `TST s` / `TST A,s` instruction (ED 04/
// ED 64-family depending on dialect); gated to the CPUs that define it.
func (c *Ctx) EmitTst(tail string) error {
	if !c.requireCPU(dialect.Z80N, dialect.R800) {
		return errIllegal
	}
	ops := splitOperands(tail)
	last := ops[len(ops)-1]
	if len(ops) == 2 {
		dst := c.parseOperand(ops[0])
		if f, ok := operand.IsReg(dst); !ok || f != uint8(regs.A) {
			return c.illegalOperand()
		}
	}
	op := c.parseOperand(last)
	if src, ok := c.classifySrc8(op); ok && src.disp == nil {
		c.emitBytes(0xED, 0x04+src.field<<3)
		return nil
	}
	if ex, ok := operand.IsImmediate(op); ok {
		c.emitBytes(0xED, 0x64)
		return c.Emit.EmitByte(ex, fixup.Reloc8)
	}
	return c.illegalOperand()
}
