package fixup

import (
	"testing"

	"github.com/jiiink/z80asm/pkg/expr"
)

func TestNewFragmentBaseAndHere(t *testing.T) {
	f := NewFragment(0x8000)
	if f.Base() != 0x8000 {
		t.Errorf("Base() = %#x, want 0x8000", f.Base())
	}
	if f.Here() != 0x8000 {
		t.Errorf("Here() = %#x, want 0x8000 before any bytes", f.Here())
	}
}

func TestMoreAppendsAndReturnsOffset(t *testing.T) {
	f := NewFragment(0)
	off1 := f.More(3)
	if off1 != 0 {
		t.Errorf("first More(3) offset = %d, want 0", off1)
	}
	off2 := f.More(2)
	if off2 != 3 {
		t.Errorf("second More(2) offset = %d, want 3", off2)
	}
	if len(f.Bytes) != 5 {
		t.Errorf("len(Bytes) = %d, want 5", len(f.Bytes))
	}
	if f.Here() != 5 {
		t.Errorf("Here() = %d, want 5", f.Here())
	}
}

func TestPutByte(t *testing.T) {
	f := NewFragment(0)
	f.More(2)
	f.PutByte(0, 0xAA)
	f.PutByte(1, 0xBB)
	if f.Bytes[0] != 0xAA || f.Bytes[1] != 0xBB {
		t.Errorf("Bytes = %#v, want [0xAA, 0xBB]", f.Bytes)
	}
}

func TestFixNewExpRecordsReloc(t *testing.T) {
	f := NewFragment(0)
	off := f.More(2)
	e := expr.ConstNode(1)
	f.FixNewExp(off, 2, e, true, Reloc16, -1)
	if len(f.Relocs) != 1 {
		t.Fatalf("len(Relocs) = %d, want 1", len(f.Relocs))
	}
	r := f.Relocs[0]
	if r.Offset != off || r.Size != 2 || !r.PCRel || r.Kind != Reloc16 || r.Addend != -1 {
		t.Errorf("Relocs[0] = %+v, unexpected field values", r)
	}
	if r.Expr != e {
		t.Errorf("Relocs[0].Expr does not point at the recorded node")
	}
}

func TestHereTracksBaseAcrossAppends(t *testing.T) {
	f := NewFragment(100)
	f.More(4)
	if f.Here() != 104 {
		t.Errorf("Here() = %d, want 104", f.Here())
	}
}
