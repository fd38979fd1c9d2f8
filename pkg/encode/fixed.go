package encode

// FixedOpcodes maps every zero-operand, fixed-encoding mnemonic to its byte
// sequence: emit_insn's whole job is "emit these literal bytes, then check
// for trailing junk", so one table covers the entire family instead of one
// function per mnemonic (Design Note: data-driven dispatch over named
// per-instruction funcs).
var FixedOpcodes = map[string][]byte{
	"NOP":  {0x00},
	"RLCA": {0x07},
	"RRCA": {0x0F},
	"RLA":  {0x17},
	"RRA":  {0x1F},
	"DAA":  {0x27},
	"CPL":  {0x2F},
	"SCF":  {0x37},
	"CCF":  {0x3F},
	"HALT": {0x76},
	"EXX":  {0xD9},
	"DI":   {0xF3},
	"EI":   {0xFB},

	"NEG": {0xED, 0x44},
	"RRD": {0xED, 0x67},
	"RLD": {0xED, 0x6F},

	"LDI":  {0xED, 0xA0},
	"CPI":  {0xED, 0xA1},
	"INI":  {0xED, 0xA2},
	"OUTI": {0xED, 0xA3},
	"LDD":  {0xED, 0xA8},
	"CPD":  {0xED, 0xA9},
	"IND":  {0xED, 0xAA},
	"OUTD": {0xED, 0xAB},
	"LDIR": {0xED, 0xB0},
	"CPIR": {0xED, 0xB1},
	"INIR": {0xED, 0xB2},
	"OTIR": {0xED, 0xB3},
	"LDDR": {0xED, 0xB8},
	"CPDR": {0xED, 0xB9},
	"INDR": {0xED, 0xBA},
	"OTDR": {0xED, 0xBB},

	// GBZ80-only. GBZ80 has no block-copy group: pkg/dispatch routes LDI/LDD
	// to EmitLddldi for that CPU and rejects LDIR/LDDR.
	"STOP": {0x10, 0x00},

	// Z80N fixed-opcode extras.
	"LDIX":   {0xED, 0xA4},
	"LDWS":   {0xED, 0xA5},
	"LDDX":   {0xED, 0xAC},
	"LDIRX":  {0xED, 0xB4},
	"LDDRX":  {0xED, 0xBC},
	"LDPIRX": {0xED, 0xB7},
	"OUTINB": {0xED, 0x90},

	// R800 adds a hardware multiply with no operands? No — MULUB/MULUW take
	// operands (see pkg/encode/misc.go); R800 has no operand-less extras
	// beyond the shared Z80 table above.
}

// EmitFixed emits the literal byte sequence for a zero-operand mnemonic and
// checks for a trailing operand, which is always an error.
func (c *Ctx) EmitFixed(bytes []byte) func(tail string) error {
	return func(tail string) error {
		if trimSpace(tail) != "" {
			c.Diag.Error("bad expression syntax")
			return errIllegal
		}
		c.emitBytes(bytes...)
		return nil
	}
}
