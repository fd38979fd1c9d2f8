// Package regs holds the static register and condition-code tables: name
// lookup, encoded field values, and the flag bits that mark which registers
// are stackable, valid 16-bit ALU operands, or index-register halves.
package regs

import (
	"sort"
	"strings"

	"github.com/jiiink/z80asm/pkg/dialect"
)

// Reg is a register value: low bits are the canonical Z80 field, optionally
// OR'd with flag bits.
type Reg uint16

// Flag bits, OR'd into the low 6-bit field.
const (
	Stackable Reg = 0x80 // pushable/poppable (AF, BC, DE, HL, IX, IY)
	Arith     Reg = 0x40 // valid RHS for 16-bit ADD/ADC/SBC
	IXFlag    Reg = 0x20 // IX-prefix selector
	IYFlag    Reg = 0x10 // IY-prefix selector
	IndexMask     = IXFlag | IYFlag
)

// FieldMask extracts the bare register field (low 6 bits), stripping flags.
const FieldMask Reg = 0x3F

// 8-bit register field values (B..A low 3 bits used directly in opcodes).
const (
	B Reg = iota
	C
	D
	E
	H
	L
	HLInd // (HL), field value 6 — only meaningful as an 8-bit operand slot
	A
)

// Special registers, outside the 3-bit 8-bit-register field.
const (
	F  Reg = 14 // phantom "flags-only" register, IN F,(C)
	I  Reg = 9
	R  Reg = 10
	MB Reg = 11
)

// 16-bit register pairs and index registers.
const (
	BC Reg = 0x100 | iota
	DE
	HL
	SP
	AF
	IX
	IY
)

// Undocumented index-register halves.
const (
	IXH Reg = 0x200 + iota
	IXL
	IYH
	IYL
)

var reg8Names = map[string]Reg{
	"B": B, "C": C, "D": D, "E": E, "H": H, "L": L, "A": A,
}

var regPairNames = map[string]Reg{
	"BC": BC | Arith | Stackable,
	"DE": DE | Arith | Stackable,
	"HL": HL | Arith | Stackable,
	"SP": SP | Arith,
	"AF": AF | Stackable,
	"IX": IX | Arith | Stackable | IXFlag,
	"IY": IY | Arith | Stackable | IYFlag,
}

var specialNames = map[string]Reg{
	"I": I, "R": R, "MB": MB, "F": F,
}

var idxHalfNames = map[string]Reg{
	"IXH": IXH | IXFlag, "IXL": IXL | IXFlag,
	"IYH": IYH | IYFlag, "IYL": IYL | IYFlag,
}

// IsReg8 reports whether r is one of the seven plain 8-bit field registers
// (B..A), excluding (HL) and the index halves.
func IsReg8(r Reg) bool {
	f := r & FieldMask
	return r&^FieldMask == 0 && f <= A
}

// Is8BitField reports whether field is in range [0,7] — i.e. it is a legal
// 3-bit register-field encoding including (HL)=6.
func Is8BitField(field uint8) bool { return field <= 7 }

// IsIndexHalf reports whether r is one of IXH/IXL/IYH/IYL.
func IsIndexHalf(r Reg) bool {
	switch r &^ IndexMask {
	case IXH, IXL, IYH, IYL:
		return true
	}
	return false
}

// Field8 returns the 3-bit opcode field for an 8-bit register, substituting
// the H/L position for an index half (the caller is responsible for also
// emitting the DD/FD prefix the half implies).
func Field8(r Reg) uint8 {
	switch r &^ IndexMask {
	case IXH, IYH:
		return uint8(H)
	case IXL, IYL:
		return uint8(L)
	}
	return uint8(r & FieldMask)
}

// Lookup resolves a register name (any case) to its Reg value and reports
// whether the name is a register at all. Dialect gating of IXH/IXL/IYH/IYL
// is the caller's responsibility (see LookupGated).
func Lookup(name string) (Reg, bool) {
	u := strings.ToUpper(name)
	if r, ok := reg8Names[u]; ok {
		return r, true
	}
	if r, ok := regPairNames[u]; ok {
		return r, true
	}
	if r, ok := specialNames[u]; ok {
		return r, true
	}
	if r, ok := idxHalfNames[u]; ok {
		return r, true
	}
	return 0, false
}

// LookupGated resolves a register name the way the front-end symbol table
// does after a dialect change: IXH/IXL/IYH/IYL only resolve as registers
// when the index-half class is permitted, or the CPU is eZ80/R800/Z80N.
func LookupGated(name string, d *dialect.State) (Reg, bool) {
	r, ok := Lookup(name)
	if !ok {
		return 0, false
	}
	if IsIndexHalf(r) {
		switch d.CPU() {
		case dialect.EZ80, dialect.R800, dialect.Z80N:
			return r, true
		}
		if d.InsOK&dialect.ClassIdxHalves != 0 {
			return r, true
		}
		return 0, false
	}
	return r, true
}

// AllCasings returns every case-variant spelling of name (all 2^k
// capitalizations up to its length), mirroring the front-end symbol-table
// population the original performs on every dialect change so that a
// mention of a register name anywhere in an expression parses as op=register
// regardless of case.
func AllCasings(name string) []string {
	n := len(name)
	if n == 0 || n > 20 {
		return []string{name}
	}
	out := make([]string, 0, 1<<uint(n))
	buf := []byte(name)
	var rec func(i int)
	rec = func(i int) {
		if i == n {
			out = append(out, string(buf))
			return
		}
		lo := strings.ToLower(string(buf[i]))[0]
		up := strings.ToUpper(string(buf[i]))[0]
		buf[i] = lo
		rec(i + 1)
		if lo != up {
			buf[i] = up
			rec(i + 1)
		}
	}
	rec(0)
	return out
}

// Cond is a condition-code value, pre-shifted left by 3 so it can be OR'd
// directly into a conditional-jump/call/return opcode base.
type Cond uint8

const (
	NZ Cond = 0 << 3
	Z  Cond = 1 << 3
	NC Cond = 2 << 3
	CY Cond = 3 << 3
	PO Cond = 4 << 3
	PE Cond = 5 << 3
	P  Cond = 6 << 3
	M  Cond = 7 << 3
)

var condNames = map[string]Cond{
	"NZ": NZ, "Z": Z, "NC": NC, "C": CY,
	"PO": PO, "PE": PE, "P": P, "M": M,
	// Synonyms
	"AGE": P, "ALT": M, "DI": PO, "EI": PE, "LGE": P, "LLT": M,
}

var sortedCondNames []string

func init() {
	sortedCondNames = make([]string, 0, len(condNames))
	for n := range condNames {
		sortedCondNames = append(sortedCondNames, n)
	}
	sort.Strings(sortedCondNames)
}

// LookupCond is a case-insensitive binary search for a condition code name,
// used only by the JP cc / JR cc / RET cc / CALL cc encoders.
func LookupCond(name string) (Cond, bool) {
	u := strings.ToUpper(strings.TrimSpace(name))
	i := sort.SearchStrings(sortedCondNames, u)
	if i < len(sortedCondNames) && sortedCondNames[i] == u {
		return condNames[u], true
	}
	return 0, false
}

// IsJRCond reports whether cond is one of the four conditions JR/DJNZ-style
// relative branches accept (NZ, Z, NC, C); PO/PE/P/M are invalid there.
func IsJRCond(cond Cond) bool {
	return cond <= CY
}
