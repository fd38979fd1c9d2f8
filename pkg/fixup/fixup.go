// Package fixup is this module's minimal stand-in for the front-end's
// fragment/relocation arena (§3, §6): frag_more and fix_new_exp. It exists
// only so the backend in pkg/emit and pkg/encode can be exercised and
// tested standalone; it is not a linker and never applies a relocation,
// only records it.
package fixup

import "github.com/jiiink/z80asm/pkg/expr"

// RelocKind names the relocation types the backend can request.
type RelocKind int

const (
	Reloc8 RelocKind = iota
	Reloc16
	Reloc24
	Reloc32
	Reloc8PCRel
	RelocDisp8
	RelocByte0
	RelocByte1
	RelocByte2
	RelocByte3
	RelocWord0
	RelocWord1
	RelocWord16BE
)

// Reloc is one recorded relocation: "patch Size bytes at Offset in Frag once
// Expr resolves", optionally PC-relative.
type Reloc struct {
	Offset int
	Size   int
	Expr   *expr.Node
	PCRel  bool
	Addend int64
	Kind   RelocKind
}

// Fragment is a variable-length output buffer belonging to the current
// (single, implicit) section.
type Fragment struct {
	Bytes  []byte
	Relocs []Reloc
	base   int // absolute start address of this fragment, for PC-relative math
}

// NewFragment creates an empty fragment starting at the given address.
func NewFragment(base int) *Fragment {
	return &Fragment{base: base}
}

// More appends n uninitialized bytes and returns their starting offset
// within Frag.Bytes, mirroring frag_more(n).
func (f *Fragment) More(n int) int {
	off := len(f.Bytes)
	f.Bytes = append(f.Bytes, make([]byte, n)...)
	return off
}

// PutByte writes a single resolved byte at offset.
func (f *Fragment) PutByte(offset int, v byte) { f.Bytes[offset] = v }

// FixNewExp records a relocation, mirroring fix_new_exp(frag, offset, size,
// expr, pcrel, reloc_type).
func (f *Fragment) FixNewExp(offset, size int, e *expr.Node, pcrel bool, kind RelocKind, addend int64) {
	f.Relocs = append(f.Relocs, Reloc{Offset: offset, Size: size, Expr: e, PCRel: pcrel, Kind: kind, Addend: addend})
}

// Here returns the absolute address one past the last byte currently in the
// fragment — the next free address, used for label values and for the
// start-of-line "$" value.
func (f *Fragment) Here() int { return f.base + len(f.Bytes) }

// Base returns the fragment's starting absolute address.
func (f *Fragment) Base() int { return f.base }
