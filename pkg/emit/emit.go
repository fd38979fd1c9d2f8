// Package emit implements §4.5: writing bytes into the current fragment,
// deciding between a direct constant write and a recorded relocation, and
// the overflow checks that distinguish a hard error from a warning.
package emit

import (
	"fmt"

	"github.com/jiiink/z80asm/pkg/diag"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
)

// Emitter bundles the fragment and diagnostic sink every byte/word/data
// emission needs; it owns no dialect state (inst_mode is read directly from
// the caller, since which encoder is running is the one that knows whether
// the current instruction is in long-data mode).
type Emitter struct {
	Frag *fixup.Fragment
	Diag *diag.Sink
	Sym  expr.SymbolResolver
}

// SignedOverflow reports whether v doesn't fit in a signed field of bits
// width.
func SignedOverflow(v int64, bits uint) bool {
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return v < lo || v > hi
}

// UnsignedOverflow reports whether v doesn't fit in an unsigned field of
// bits width.
func UnsignedOverflow(v int64, bits uint) bool {
	if v < 0 {
		return true
	}
	return v > (int64(1)<<bits)-1
}

// IsOverflow chooses signed checking for negative values, unsigned
// otherwise — the textbook "is_overflow" dispatch.
func IsOverflow(v int64, bits uint) bool {
	if v < 0 {
		return SignedOverflow(v, bits)
	}
	return UnsignedOverflow(v, bits)
}

// EmitByte reserves one byte for e and either writes a resolved constant
// directly or records a fixup, rejecting any expression containing a
// register reference.
func (e *Emitter) EmitByte(ex *expr.Node, kind fixup.RelocKind) error {
	if ex.ContainsRegister() {
		e.Diag.Error("illegal operand")
		return fmt.Errorf("illegal operand")
	}
	off := e.Frag.More(1)

	if v, ok := expr.Eval(ex, e.Sym); ok {
		switch kind {
		case fixup.Reloc8:
			if IsOverflow(v, 8) {
				e.Diag.Warn("8-bit signed/unsigned constant %d truncated", v)
			}
			e.Frag.PutByte(off, byte(v))
			return nil
		case fixup.Reloc8PCRel, fixup.RelocDisp8:
			if SignedOverflow(v, 8) {
				e.Diag.Error("offset overflow")
				return fmt.Errorf("offset overflow")
			}
			e.Frag.PutByte(off, byte(v))
			return nil
		}
		e.Frag.PutByte(off, byte(v))
		return nil
	}

	e.Frag.FixNewExp(off, 1, ex, kind == fixup.Reloc8PCRel, kind, 0)
	return nil
}

// EmitWord emits a 16-bit value normally, or 24 bits (3 bytes) when
// longData is set (eZ80 ADL with a .IL/.LIL suffix).
func (e *Emitter) EmitWord(ex *expr.Node, longData bool) error {
	size := 2
	kind := fixup.Reloc16
	if longData {
		size = 3
		kind = fixup.Reloc24
	}
	off := e.Frag.More(size)
	if v, ok := expr.Eval(ex, e.Sym); ok {
		for i := 0; i < size; i++ {
			e.Frag.PutByte(off+i, byte(v>>(8*uint(i))))
		}
		return nil
	}
	e.Frag.FixNewExp(off, size, ex, false, kind, 0)
	return nil
}

// EmitWordBE emits a big-endian 16-bit value (Z80N's PUSH nn).
func (e *Emitter) EmitWordBE(ex *expr.Node) error {
	off := e.Frag.More(2)
	if v, ok := expr.Eval(ex, e.Sym); ok {
		e.Frag.PutByte(off, byte(v>>8))
		e.Frag.PutByte(off+1, byte(v))
		return nil
	}
	e.Frag.FixNewExp(off, 2, ex, false, fixup.RelocWord16BE, 0)
	return nil
}

// EmitPCRelByte computes a JR/DJNZ-style relative displacement: the fixup
// value is target - (pc of the next instruction), i.e. target - start - len
// where len is the instruction's total byte length (commonly 2). The
// addend -len is recorded on the fixup so the front end's relaxation/final
// resolution still sees the right arithmetic even when target is a forward
// reference.
func (e *Emitter) EmitPCRelByte(ex *expr.Node, insnLen int) error {
	off := e.Frag.More(1)
	v, ok := expr.Eval(ex, e.Sym)
	if !ok && ex.Op == "sym" && ex.Symbol == "$" {
		// "$" with no resolver for it is the start of this instruction.
		v, ok = int64(e.Frag.Base()+off-1), true
	}
	if ok {
		disp := v - int64(e.Frag.Base()+off-1+insnLen)
		if SignedOverflow(disp, 8) {
			e.Diag.Error("offset overflow")
			return fmt.Errorf("offset overflow")
		}
		e.Frag.PutByte(off, byte(disp))
		return nil
	}
	e.Frag.FixNewExp(off, 1, ex, true, fixup.Reloc8PCRel, int64(-insnLen))
	return nil
}

// EmitDataVal handles db/dw/d24/d32/defs-style data directives of the given
// byte width. In a 2-byte field, `value >> 8` is rewritten into byte-slice
// relocations (RelocByte1, RelocByte2) so a linker can resolve that slice of an absolute address
// without this module folding the shift itself. `value & mask` shapes and
// word-slice relocations are not rewritten; they are emitted as a plain
// value of the field's width.
func (e *Emitter) EmitDataVal(ex *expr.Node, size int) error {
	if size == 1 {
		return e.EmitByte(ex, fixup.Reloc8)
	}
	if size == 2 {
		if kind, base, ok := sliceRewrite(ex); ok && kind == fixup.RelocByte1 {
			return e.emitSlice(base, kind, size)
		}
		return e.EmitWord(ex, false)
	}
	if size == 3 {
		return e.EmitWord(ex, true)
	}
	// size == 4 or 8: little-endian, with a Reloc32 fixup if unresolved
	off := e.Frag.More(size)
	if v, ok := expr.Eval(ex, e.Sym); ok {
		for i := 0; i < size; i++ {
			e.Frag.PutByte(off+i, byte(v>>(8*uint(i))))
		}
		return nil
	}
	e.Frag.FixNewExp(off, size, ex, false, fixup.Reloc32, 0)
	return nil
}

// sliceRewrite recognizes `value >> (8*k)` for k = 0..3 as a byte-select,
// returning the RelocByte0..3 kind to use and the un-shifted base
// expression. Masks and word-selects are not recognized.
func sliceRewrite(ex *expr.Node) (fixup.RelocKind, *expr.Node, bool) {
	if ex.Op == ">>" && len(ex.Children) == 2 {
		shiftAmt, ok := expr.Eval(ex.Children[1], nil)
		if !ok {
			return 0, nil, false
		}
		switch shiftAmt {
		case 0:
			return fixup.RelocByte0, ex.Children[0], true
		case 8:
			return fixup.RelocByte1, ex.Children[0], true
		case 16:
			return fixup.RelocByte2, ex.Children[0], true
		case 24:
			return fixup.RelocByte3, ex.Children[0], true
		}
	}
	return 0, nil, false
}

// emitSlice emits the `value >> 8` rewrite for a 2-byte data field: since
// the slot is 2 bytes wide but the rewrite selects a single byte's worth of
// a wider absolute value, the emission splits across BYTE1 (bits 8-15) then
// BYTE2 (bits 16-23) to preserve full linker precision once the value is
// only known at link time (§4.5).
func (e *Emitter) emitSlice(base *expr.Node, kind fixup.RelocKind, size int) error {
	if size == 2 && kind == fixup.RelocByte1 {
		off := e.Frag.More(2)
		if v, ok := expr.Eval(base, e.Sym); ok {
			e.Frag.PutByte(off, byte(v>>8))
			e.Frag.PutByte(off+1, byte(v>>16))
			return nil
		}
		e.Frag.FixNewExp(off, 1, base, false, fixup.RelocByte1, 0)
		e.Frag.FixNewExp(off+1, 1, base, false, fixup.RelocByte2, 0)
		return nil
	}

	off := e.Frag.More(1)
	if v, ok := expr.Eval(base, e.Sym); ok {
		shift := byteShiftFor(kind)
		e.Frag.PutByte(off, byte(v>>shift))
		return nil
	}
	e.Frag.FixNewExp(off, 1, base, false, kind, 0)
	return nil
}

func byteShiftFor(kind fixup.RelocKind) uint {
	switch kind {
	case fixup.RelocByte0:
		return 0
	case fixup.RelocByte1:
		return 8
	case fixup.RelocByte2:
		return 16
	case fixup.RelocByte3:
		return 24
	}
	return 0
}
