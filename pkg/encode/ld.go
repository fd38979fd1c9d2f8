package encode

import (
	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// EmitLd implements emit_ld: the top-level `LD dst,src` dispatcher. Each
// concrete operand-kind combination is handled by one of the emitLd*
// sub-cases below, mirroring the original's own decomposition of LD into
// eight named shapes (§4.6).
func (c *Ctx) EmitLd(tail string) error {
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	dst := c.parseOperand(ops[0])
	src := c.parseOperand(ops[1])

	// GBZ80 `LD A,(HL+)` / `LD (HL+),A` / `LD A,(HL-)` / `LD (HL-),A`,
	// reusing the Z80 LD HL/A,(nn)-family opcodes since GBZ80 has no direct
	// 16-bit addressing instructions of its own.
	if done, err := c.emitLdHLPostIncDec(dst, src); done {
		return err
	}

	// LD A,I / LD A,R / LD I,A / LD R,A / LD A,MB / LD MB,A (eZ80).
	if done, err := c.emitLdSpecialReg(dst, src); done {
		return err
	}

	// LD SP,HL / LD SP,IX / LD SP,IY.
	if dr, ok := operand.IsRegPair(dst); ok && dr&^(regs.Arith|regs.Stackable|regs.IndexMask) == regs.SP {
		if sr, ok := rr16(src); ok {
			if sr == regs.HL {
				c.emitBytes(0xF9)
				return nil
			}
			if sr == regs.IX {
				c.emitBytes(0xDD, 0xF9)
				return nil
			}
			if sr == regs.IY {
				c.emitBytes(0xFD, 0xF9)
				return nil
			}
		}
	}

	// LD r,r' / LD r,n / LD r,(HL)/(IX+d)/(IY+d)/(BC)/(DE)/(nn).
	if dField, ok := operand.IsReg(dst); ok {
		return c.emitLdRDst(dField, dst, src)
	}

	// LD (HL)/(IX+d)/(IY+d),r / ,n ; LD (BC)/(DE),A ; LD (nn),A / (nn),rr.
	if dstSrc, ok := c.classifySrc8(dst); ok {
		return c.emitLdMDst(dstSrc, src)
	}
	if bd, ok := operand.IsBCorDEIndirect(dst); ok {
		return c.emitLdBCDEDst(bd, src)
	}
	if ex, ok := operand.IsMemoryAddress(dst); ok {
		return c.emitLdAbsDst(ex, src)
	}

	// LD rr,nn / LD rr,(nn).
	if dr, ok := operand.IsRegPair(dst); ok {
		return c.emitLdRRDst(dr, src)
	}

	return c.illegalOperand()
}

// emitLdHLPostIncDec implements GBZ80's `LD A,(HL+)`/`LD (HL+),A`/`LD A,
// (HL-)`/`LD (HL-),A`. Returns done=false when neither operand is the
// HLPostIncDec form.
func (c *Ctx) emitLdHLPostIncDec(dst, src *expr.Operand) (done bool, err error) {
	if delta, ok := operand.IsHLPostIncDec(src); ok {
		if f, ok := operand.IsReg(dst); !ok || f != uint8(regs.A) {
			return true, c.illegalOperand()
		}
		if !c.requireCPU(dialect.GBZ80) {
			return true, errIllegal
		}
		if delta > 0 {
			c.emitBytes(0x2A)
		} else {
			c.emitBytes(0x3A)
		}
		return true, nil
	}
	if delta, ok := operand.IsHLPostIncDec(dst); ok {
		if f, ok := operand.IsReg(src); !ok || f != uint8(regs.A) {
			return true, c.illegalOperand()
		}
		if !c.requireCPU(dialect.GBZ80) {
			return true, errIllegal
		}
		if delta > 0 {
			c.emitBytes(0x22)
		} else {
			c.emitBytes(0x32)
		}
		return true, nil
	}
	return false, nil
}

// emitLdSpecialReg handles the four ED-prefixed special-register loads, and
// the eZ80 LD A,MB / LD MB,A pair. Returns done=false when neither operand
// matches, so the caller falls through to the generic dispatch.
func (c *Ctx) emitLdSpecialReg(dst, src *expr.Operand) (done bool, err error) {
	dReg, dIsReg := regSpecial(dst)
	sReg, sIsReg := regSpecial(src)
	if !dIsReg && !sIsReg {
		return false, nil
	}
	if dIsReg && dReg == regs.A && sIsReg {
		switch sReg {
		case regs.I:
			c.emitBytes(0xED, 0x57)
			return true, nil
		case regs.R:
			c.emitBytes(0xED, 0x5F)
			return true, nil
		case regs.MB:
			if !c.requireCPU(dialect.EZ80) {
				return true, errIllegal
			}
			c.emitBytes(0xED, 0x6E)
			return true, nil
		}
	}
	if sIsReg && sReg == regs.A && dIsReg {
		switch dReg {
		case regs.I:
			c.emitBytes(0xED, 0x47)
			return true, nil
		case regs.R:
			c.emitBytes(0xED, 0x4F)
			return true, nil
		case regs.MB:
			if !c.requireCPU(dialect.EZ80) {
				return true, errIllegal
			}
			c.emitBytes(0xED, 0x6D)
			return true, nil
		}
	}
	if dIsReg && (dReg == regs.I || dReg == regs.R || dReg == regs.MB) ||
		sIsReg && (sReg == regs.I || sReg == regs.R || sReg == regs.MB) {
		return true, c.illegalOperand()
	}
	return false, nil
}

func regSpecial(op *expr.Operand) (regs.Reg, bool) {
	if op == nil || op.Kind != expr.Register {
		return 0, false
	}
	r := regs.Reg(op.Reg)
	switch r {
	case regs.A, regs.I, regs.R, regs.MB:
		return r, true
	}
	return 0, false
}

// emitLdRDst implements emit_ld_r_r / emit_ld_r_n / emit_ld_r_m: `LD
// r,src` where r is a plain 8-bit destination register (dField is its
// 3-bit field, already resolved through index-half gating).
func (c *Ctx) emitLdRDst(dField uint8, dst, src *expr.Operand) error {
	dReg := regs.Reg(dst.Reg)
	dIsIdxHalf := regs.IsIndexHalf(dReg)

	if dIsIdxHalf {
		// An index-half destination can only pair with a plain register of
		// the SAME index (or a non-index, non-(HL) register) as source: the
		// DD/FD prefix that substitutes H/L for IXH/IXL/IYH/IYL is the same
		// prefix that turns (HL) into (IX+d)/(IY+d), so no encoding exists
		// that does both at once.
		if sField, ok := operand.IsReg(src); ok {
			sReg := regs.Reg(src.Reg)
			if regs.IsIndexHalf(sReg) && sReg&regs.IndexMask != dReg&regs.IndexMask {
				return c.illegalOperand()
			}
			if !c.checkClass(dialect.ClassIdxHalves) {
				return errIllegal
			}
			c.emitBytes(indexPrefix(dReg), 0x40+dField<<3+sField)
			return nil
		}
		if ex, ok := operand.IsImmediate(src); ok {
			return c.emitLdRN(dField, dReg, ex)
		}
		return c.illegalOperand()
	}

	if srcSrc, ok := c.classifySrc8(src); ok {
		if srcSrc.hasPrefix {
			c.emitBytes(srcSrc.prefix, 0x40+dField<<3+srcSrc.field)
			if srcSrc.disp != nil {
				return c.Emit.EmitByte(srcSrc.disp, fixup.RelocDisp8)
			}
			return nil
		}
		c.emitBytes(0x40 + dField<<3 + srcSrc.field)
		return nil
	}

	if ex, ok := operand.IsImmediate(src); ok {
		return c.emitLdRN(dField, dReg, ex)
	}

	if bd, ok := operand.IsBCorDEIndirect(src); ok {
		if dField != uint8(regs.A) {
			return c.illegalOperand()
		}
		if bd == regs.BC {
			c.emitBytes(0x0A)
		} else {
			c.emitBytes(0x1A)
		}
		return nil
	}

	if ex, ok := operand.IsMemoryAddress(src); ok {
		if dField != uint8(regs.A) {
			return c.illegalOperand()
		}
		c.emitBytes(0x3A)
		return c.Emit.EmitWord(ex, c.D.LongInsn())
	}

	return c.illegalOperand()
}

// emitLdRN implements `LD r,n`, honoring the DD/FD prefix for an IXH/IXL/
// IYH/IYL destination.
func (c *Ctx) emitLdRN(dField uint8, dReg regs.Reg, ex *expr.Node) error {
	if regs.IsIndexHalf(dReg) {
		if !c.checkClass(dialect.ClassIdxHalves) {
			return errIllegal
		}
		c.emitBytes(indexPrefix(dReg), 0x06+dField<<3)
		return c.Emit.EmitByte(ex, fixup.Reloc8)
	}
	c.emitBytes(0x06 + dField<<3)
	return c.Emit.EmitByte(ex, fixup.Reloc8)
}

// emitLdMDst implements emit_ld_m_n / emit_ld_m_r: `LD (HL)/(IX+d)/(IY+d),
// src` where src is a register or an immediate.
func (c *Ctx) emitLdMDst(dst src8, src *expr.Operand) error {
	if _, ok := operand.IsReg(src); ok {
		srcSrc, ok := c.classifySrc8(src)
		if !ok || srcSrc.hasPrefix {
			return c.illegalOperand() // LD (HL),IXH and LD (IX+d),IYL both don't exist
		}
		return c.emitSrc8(dst, 0x40+dst.field<<3+srcSrc.field)
	}
	if ex, ok := operand.IsImmediate(src); ok {
		if err := c.emitSrc8(dst, 0x06+dst.field<<3); err != nil {
			return err
		}
		return c.Emit.EmitByte(ex, fixup.Reloc8)
	}
	return c.illegalOperand()
}

// emitLdBCDEDst implements `LD (BC),A` / `LD (DE),A`.
func (c *Ctx) emitLdBCDEDst(bd regs.Reg, src *expr.Operand) error {
	if f, ok := operand.IsReg(src); !ok || f != uint8(regs.A) {
		return c.illegalOperand()
	}
	if bd == regs.BC {
		c.emitBytes(0x02)
	} else {
		c.emitBytes(0x12)
	}
	return nil
}

// emitLdAbsDst implements emit_ld_m_rr's `LD (nn),A`/`LD (nn),rr` half, and
// the Z80N `LD (nn),A` shares this same opcode with no dialect distinction.
func (c *Ctx) emitLdAbsDst(ex *expr.Node, src *expr.Operand) error {
	if f, ok := operand.IsReg(src); ok && f == uint8(regs.A) {
		c.emitBytes(0x32)
		return c.Emit.EmitWord(ex, c.D.LongInsn())
	}
	if sr, ok := operand.IsRegPair(src); ok {
		base := sr &^ (regs.Arith | regs.Stackable | regs.IndexMask)
		switch base {
		case regs.HL:
			c.emitBytes(0x22)
		case regs.BC:
			c.emitBytes(0xED, 0x43)
		case regs.DE:
			c.emitBytes(0xED, 0x53)
		case regs.SP:
			c.emitBytes(0xED, 0x73)
		case regs.IX:
			c.emitBytes(0xDD, 0x22)
		case regs.IY:
			c.emitBytes(0xFD, 0x22)
		default:
			return c.illegalOperand()
		}
		return c.Emit.EmitWord(ex, c.D.LongInsn())
	}
	return c.illegalOperand()
}

// emitLdRRDst implements emit_ld_rr_nn / emit_ld_rr_m: `LD rr,nn` or `LD
// rr,(nn)`.
func (c *Ctx) emitLdRRDst(dr regs.Reg, src *expr.Operand) error {
	base := dr &^ (regs.Arith | regs.Stackable | regs.IndexMask)

	if ex, ok := operand.IsImmediate(src); ok {
		switch base {
		case regs.BC:
			c.emitBytes(0x01)
		case regs.DE:
			c.emitBytes(0x11)
		case regs.HL:
			c.emitBytes(0x21)
		case regs.SP:
			c.emitBytes(0x31)
		case regs.IX:
			c.emitBytes(0xDD, 0x21)
		case regs.IY:
			c.emitBytes(0xFD, 0x21)
		default:
			return c.illegalOperand()
		}
		return c.Emit.EmitWord(ex, c.D.LongInsn())
	}

	if ex, ok := operand.IsMemoryAddress(src); ok {
		switch base {
		case regs.HL:
			c.emitBytes(0x2A)
		case regs.BC:
			c.emitBytes(0xED, 0x4B)
		case regs.DE:
			c.emitBytes(0xED, 0x5B)
		case regs.SP:
			c.emitBytes(0xED, 0x7B)
		case regs.IX:
			c.emitBytes(0xDD, 0x2A)
		case regs.IY:
			c.emitBytes(0xFD, 0x2A)
		default:
			return c.illegalOperand()
		}
		return c.Emit.EmitWord(ex, c.D.LongInsn())
	}

	return c.illegalOperand()
}
