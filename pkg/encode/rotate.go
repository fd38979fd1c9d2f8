package encode

import (
	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
	"github.com/jiiink/z80asm/pkg/operand"
	"github.com/jiiink/z80asm/pkg/regs"
)

// Rotate/shift opcode bases for the CB-prefixed family (field folded into
// the low 3 bits).
const (
	opRLC byte = 0x00
	opRRC byte = 0x08
	opRL  byte = 0x10
	opRR  byte = 0x18
	opSLA byte = 0x20
	opSRA byte = 0x28
	opSLL byte = 0x30 // undocumented SLL/SLI
	opSRL byte = 0x38
)

// emitMR implements emit_mr: CB-prefixed rotate/shift over r, (HL), (IX+d),
// or (IY+d), with the undocumented `(II+d),r` copy-into-register extra
// operand (§4.6, gated on ClassOpIIStore).
func (c *Ctx) emitMR(base byte) func(tail string) error {
	return func(tail string) error {
		ops := splitOperands(tail)
		if len(ops) < 1 || len(ops) > 2 {
			c.Diag.Error("bad expression syntax")
			return errIllegal
		}
		op := c.parseOperand(ops[0])

		if idx, disp, ok := operand.IsIndexed(op); ok {
			storeField := uint8(6)
			if len(ops) == 2 {
				extra := c.parseOperand(ops[1])
				f, ok := operand.IsReg(extra)
				if !ok {
					return c.illegalOperand()
				}
				if !c.checkClass(dialect.ClassOpIIStore) {
					return errIllegal
				}
				storeField = f
			}
			c.emitBytes(indexPrefix(idx), 0xCB)
			off := c.Emit.Frag.More(1)
			if v, ok := expr.Eval(disp, c.Emit.Sym); ok {
				c.Emit.Frag.PutByte(off, byte(v))
			} else {
				c.Emit.Frag.FixNewExp(off, 1, disp, false, fixup.RelocDisp8, 0)
			}
			c.emitBytes(base + storeField)
			return nil
		}

		if len(ops) != 1 {
			return c.illegalOperand()
		}
		if operand.IsHLIndirect(op) {
			c.emitBytes(0xCB, base+6)
			return nil
		}
		if field, ok := operand.IsReg(op); ok {
			if base == opSLL {
				if !c.checkClass(dialect.ClassSli) {
					return errIllegal
				}
			}
			if regs.IsIndexHalf(regs.Reg(op.Reg)) {
				return c.illegalOperand() // CB-prefixed ops never take IXH/IXL/IYH/IYL
			}
			c.emitBytes(0xCB, base+field)
			return nil
		}
		return c.illegalOperand()
	}
}

// EmitRlc, EmitRrc, EmitRl, EmitRr, EmitSla, EmitSra, EmitSll, EmitSrl are
// emit_mr specialized to each rotate/shift mnemonic.
func (c *Ctx) EmitRlc(tail string) error { return c.emitMR(opRLC)(tail) }
func (c *Ctx) EmitRrc(tail string) error { return c.emitMR(opRRC)(tail) }
func (c *Ctx) EmitRl(tail string) error  { return c.emitMR(opRL)(tail) }
func (c *Ctx) EmitRr(tail string) error  { return c.emitMR(opRR)(tail) }
func (c *Ctx) EmitSla(tail string) error { return c.emitMR(opSLA)(tail) }
func (c *Ctx) EmitSra(tail string) error { return c.emitMR(opSRA)(tail) }
func (c *Ctx) EmitSll(tail string) error { return c.emitMR(opSLL)(tail) }
func (c *Ctx) EmitSrl(tail string) error { return c.emitMR(opSRL)(tail) }

// EmitBshft is the Z80N two-operand barrel-shift form `<SLL|SRL|...> A,r` (ED
// prefix); folded in here rather than pkg/dispatch since it shares the
// rotate-opcode table above.
var bshftOp = map[string]byte{
	"ADD": 0x00, "SUB": 0x10, "SLL": 0x20, "SRL": 0x30,
}

func (c *Ctx) EmitBshft(mnemonic, tail string) error {
	if !c.requireCPU(dialect.Z80N) {
		return errIllegal
	}
	ops, ok := c.operands(tail, 2)
	if !ok {
		return errIllegal
	}
	base, known := bshftOp[mnemonic]
	if !known {
		return c.illegalOperand()
	}
	dst := c.parseOperand(ops[0])
	if f, ok := operand.IsReg(dst); !ok || f != uint8(regs.A) {
		return c.illegalOperand()
	}
	src := c.parseOperand(ops[1])
	f, ok := operand.IsReg(src)
	if !ok {
		return c.illegalOperand()
	}
	c.emitBytes(0xED, base+f)
	return nil
}

// EmitBit implements emit_bit: BIT/RES/SET b,r|(HL)|(IX+d)[,r].
func (c *Ctx) emitBit(base byte) func(tail string) error {
	return func(tail string) error {
		ops := splitOperands(tail)
		if len(ops) < 2 || len(ops) > 3 {
			c.Diag.Error("bad expression syntax")
			return errIllegal
		}
		bitOp := c.parseOperand(ops[0])
		ex, ok := operand.IsImmediate(bitOp)
		if !ok {
			return c.illegalOperand()
		}
		bit, ok := expr.Eval(ex, c.Emit.Sym)
		if !ok || bit < 0 || bit > 7 {
			c.Diag.Error("bad expression syntax")
			return errIllegal
		}
		b := uint8(bit)

		target := c.parseOperand(ops[1])
		if idx, disp, ok := operand.IsIndexed(target); ok {
			storeField := uint8(6)
			if len(ops) == 3 {
				if base == 0x40 {
					return c.illegalOperand() // BIT never stores
				}
				extra := c.parseOperand(ops[2])
				f, ok := operand.IsReg(extra)
				if !ok {
					return c.illegalOperand()
				}
				if !c.checkClass(dialect.ClassOpIIStore) {
					return errIllegal
				}
				storeField = f
			} else if len(ops) != 2 {
				return c.illegalOperand()
			}
			c.emitBytes(indexPrefix(idx), 0xCB)
			off := c.Emit.Frag.More(1)
			if v, ok := expr.Eval(disp, c.Emit.Sym); ok {
				c.Emit.Frag.PutByte(off, byte(v))
			} else {
				c.Emit.Frag.FixNewExp(off, 1, disp, false, fixup.RelocDisp8, 0)
			}
			c.emitBytes(base + b<<3 + storeField)
			return nil
		}

		if len(ops) != 2 {
			return c.illegalOperand()
		}
		if operand.IsHLIndirect(target) {
			c.emitBytes(0xCB, base+b<<3+6)
			return nil
		}
		if field, ok := operand.IsReg(target); ok {
			c.emitBytes(0xCB, base+b<<3+field)
			return nil
		}
		return c.illegalOperand()
	}
}

func (c *Ctx) EmitBit(tail string) error { return c.emitBit(0x40)(tail) }
func (c *Ctx) EmitRes(tail string) error { return c.emitBit(0x80)(tail) }
func (c *Ctx) EmitSet(tail string) error { return c.emitBit(0xC0)(tail) }

// EmitSwap implements the GBZ80 `SWAP r` instruction (nibble swap, CB 30+r;
// the same opcode slot SLL/SLI occupies on the other CPUs, disambiguated by
// CPU at dispatch time).
func (c *Ctx) EmitSwap(tail string) error {
	if !c.requireCPU(dialect.GBZ80) {
		return errIllegal
	}
	return c.emitMR(opSLL)(tail)
}
