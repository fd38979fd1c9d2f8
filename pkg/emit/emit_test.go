package emit

import (
	"testing"

	"github.com/jiiink/z80asm/pkg/diag"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
)

func newEmitter() (*Emitter, *fixup.Fragment) {
	frag := fixup.NewFragment(0)
	return &Emitter{Frag: frag, Diag: &diag.Sink{}}, frag
}

func TestSignedUnsignedOverflow(t *testing.T) {
	if SignedOverflow(127, 8) || !SignedOverflow(128, 8) {
		t.Errorf("SignedOverflow boundary wrong at 8 bits")
	}
	if !SignedOverflow(-129, 8) || SignedOverflow(-128, 8) {
		t.Errorf("SignedOverflow negative boundary wrong at 8 bits")
	}
	if UnsignedOverflow(255, 8) || !UnsignedOverflow(256, 8) {
		t.Errorf("UnsignedOverflow boundary wrong at 8 bits")
	}
	if !UnsignedOverflow(-1, 8) {
		t.Errorf("UnsignedOverflow(-1) = false, want true")
	}
}

func TestIsOverflowDispatch(t *testing.T) {
	if IsOverflow(-1, 8) {
		t.Errorf("IsOverflow(-1, 8) = true, want false (fits signed)")
	}
	if !IsOverflow(-129, 8) {
		t.Errorf("IsOverflow(-129, 8) = false, want true")
	}
	if IsOverflow(200, 8) {
		t.Errorf("IsOverflow(200, 8) = true, want false (fits unsigned byte)")
	}
}

func TestEmitByteConstant(t *testing.T) {
	e, frag := newEmitter()
	if err := e.EmitByte(expr.ConstNode(65), fixup.Reloc8); err != nil {
		t.Fatalf("EmitByte: %v", err)
	}
	if len(frag.Bytes) != 1 || frag.Bytes[0] != 65 {
		t.Errorf("Bytes = %v, want [65]", frag.Bytes)
	}
}

func TestEmitByteRejectsRegister(t *testing.T) {
	e, _ := newEmitter()
	regLeaf := &expr.Node{Op: "reg"}
	reg := expr.BinaryNode("+", regLeaf, expr.ConstNode(1))
	if err := e.EmitByte(reg, fixup.Reloc8); err == nil {
		t.Errorf("EmitByte(register expr) succeeded, want error")
	}
}

func TestEmitByteOffsetOverflowIsError(t *testing.T) {
	e, _ := newEmitter()
	if err := e.EmitByte(expr.ConstNode(200), fixup.Reloc8PCRel); err == nil {
		t.Errorf("EmitByte(200, Reloc8PCRel) succeeded, want offset overflow error")
	}
}

func TestEmitByteUnresolvedRecordsFixup(t *testing.T) {
	e, frag := newEmitter()
	sym := expr.SymbolNode("LATER")
	if err := e.EmitByte(sym, fixup.Reloc8); err != nil {
		t.Fatalf("EmitByte: %v", err)
	}
	if len(frag.Relocs) != 1 {
		t.Fatalf("len(Relocs) = %d, want 1", len(frag.Relocs))
	}
	if frag.Relocs[0].Kind != fixup.Reloc8 {
		t.Errorf("Relocs[0].Kind = %v, want Reloc8", frag.Relocs[0].Kind)
	}
}

func TestEmitWordShortAndLong(t *testing.T) {
	e, frag := newEmitter()
	if err := e.EmitWord(expr.ConstNode(0x1234), false); err != nil {
		t.Fatalf("EmitWord: %v", err)
	}
	if len(frag.Bytes) != 2 || frag.Bytes[0] != 0x34 || frag.Bytes[1] != 0x12 {
		t.Errorf("Bytes = %v, want [0x34, 0x12]", frag.Bytes)
	}

	e2, frag2 := newEmitter()
	if err := e2.EmitWord(expr.ConstNode(0x123456), true); err != nil {
		t.Fatalf("EmitWord(long): %v", err)
	}
	want := []byte{0x56, 0x34, 0x12}
	if len(frag2.Bytes) != 3 {
		t.Fatalf("Bytes = %v, want 3 bytes", frag2.Bytes)
	}
	for i := range want {
		if frag2.Bytes[i] != want[i] {
			t.Errorf("Bytes[%d] = %#02x, want %#02x", i, frag2.Bytes[i], want[i])
		}
	}
}

func TestEmitWordBEBigEndian(t *testing.T) {
	e, frag := newEmitter()
	if err := e.EmitWordBE(expr.ConstNode(0x1234)); err != nil {
		t.Fatalf("EmitWordBE: %v", err)
	}
	if len(frag.Bytes) != 2 || frag.Bytes[0] != 0x12 || frag.Bytes[1] != 0x34 {
		t.Errorf("Bytes = %v, want [0x12, 0x34]", frag.Bytes)
	}
}

func TestEmitPCRelByteComputesDisplacement(t *testing.T) {
	e, frag := newEmitter()
	// Target at address 10, instruction starts at offset 0 and is 2 bytes
	// long: disp = 10 - (0 + 0 - 1 + 2) = 9.
	if err := e.EmitPCRelByte(expr.ConstNode(10), 2); err != nil {
		t.Fatalf("EmitPCRelByte: %v", err)
	}
	if len(frag.Bytes) != 1 || int8(frag.Bytes[0]) != 9 {
		t.Errorf("disp byte = %d, want 9", int8(frag.Bytes[0]))
	}
}

func TestEmitPCRelByteOutOfRangeIsError(t *testing.T) {
	e, _ := newEmitter()
	if err := e.EmitPCRelByte(expr.ConstNode(1000), 2); err == nil {
		t.Errorf("EmitPCRelByte(far target) succeeded, want offset overflow error")
	}
}

func TestEmitDataValDispatchesByWidth(t *testing.T) {
	e, frag := newEmitter()
	if err := e.EmitDataVal(expr.ConstNode(7), 1); err != nil {
		t.Fatalf("EmitDataVal(width 1): %v", err)
	}
	if len(frag.Bytes) != 1 || frag.Bytes[0] != 7 {
		t.Errorf("Bytes = %v, want [7]", frag.Bytes)
	}

	e2, frag2 := newEmitter()
	if err := e2.EmitDataVal(expr.ConstNode(0x1234), 2); err != nil {
		t.Fatalf("EmitDataVal(width 2): %v", err)
	}
	if len(frag2.Bytes) != 2 {
		t.Errorf("Bytes length = %d, want 2", len(frag2.Bytes))
	}
}

func TestEmitDataValByteSliceRewrite(t *testing.T) {
	e, frag := newEmitter()
	sym := expr.SymbolNode("ADDR")
	shifted := expr.BinaryNode(">>", sym, expr.ConstNode(8))
	if err := e.EmitDataVal(shifted, 2); err != nil {
		t.Fatalf("EmitDataVal(byte-select): %v", err)
	}
	if len(frag.Relocs) != 2 {
		t.Fatalf("len(Relocs) = %d, want 2 (BYTE1 then BYTE2 split)", len(frag.Relocs))
	}
	if frag.Relocs[0].Kind != fixup.RelocByte1 || frag.Relocs[1].Kind != fixup.RelocByte2 {
		t.Errorf("Relocs kinds = [%v, %v], want [RelocByte1, RelocByte2]", frag.Relocs[0].Kind, frag.Relocs[1].Kind)
	}
}
