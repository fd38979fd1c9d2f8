package dispatch

import (
	"sort"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/encode"
)

// notGBZ80 is INS_NOT_GBZ80: every CPU but GBZ80. instab[] gates a clutch of
// block/compare/exchange mnemonics on it since GBZ80 genuinely lacks the
// opcodes (its ED map is a different, much smaller instruction set).
const notGBZ80 = dialect.ClassZ80 | dialect.ClassR800 | dialect.ClassZ180 | dialect.ClassEZ80 | dialect.ClassZ80N

// fixed adapts a literal byte sequence from encode.FixedOpcodes into a
// Handler.
func fixed(name string) Handler {
	bytes, ok := encode.FixedOpcodes[name]
	if !ok {
		panic("dispatch: no fixed encoding for " + name)
	}
	return func(ctx *encode.Ctx, tail string) error { return ctx.EmitFixed(bytes)(tail) }
}

// table is md_assemble's mnemonic switch, reworked into a sorted slice so
// AssembleLine can binary-search it the same way the original does over its
// generated opcode table.
var table = buildTable()

func buildTable() []entry {
	es := []entry{
		{name: "ADC", handler: func(c *encode.Ctx, t string) error { return c.EmitAdc(t) }},
		{name: "ADD", handler: func(c *encode.Ctx, t string) error { return c.EmitAdd(t) }},
		{name: "AND", handler: func(c *encode.Ctx, t string) error { return c.EmitAnd(t) }},
		{name: "BIT", handler: func(c *encode.Ctx, t string) error { return c.EmitBit(t) }},
		{name: "CALL", handler: func(c *encode.Ctx, t string) error { return c.EmitCall(t) }},
		{name: "CCF", handler: fixed("CCF")},
		{name: "CP", handler: func(c *encode.Ctx, t string) error { return c.EmitCp(t) }},
		{name: "CPD", handler: fixed("CPD"), requiredClass: notGBZ80},
		{name: "CPDR", handler: fixed("CPDR"), requiredClass: notGBZ80},
		{name: "CPI", handler: fixed("CPI"), requiredClass: notGBZ80},
		{name: "CPIR", handler: fixed("CPIR"), requiredClass: notGBZ80},
		{name: "CPL", handler: fixed("CPL")},
		{name: "DAA", handler: fixed("DAA")},
		{name: "DEC", handler: func(c *encode.Ctx, t string) error { return c.EmitDec(t) }},
		{name: "DI", handler: fixed("DI")},
		{name: "DJNZ", handler: func(c *encode.Ctx, t string) error { return c.EmitDjnz(t) }},
		{name: "EI", handler: fixed("EI")},
		{name: "EX", handler: func(c *encode.Ctx, t string) error { return c.EmitEx(t) }},
		{name: "EXX", handler: fixed("EXX"), requiredClass: notGBZ80},
		{name: "HALT", handler: fixed("HALT")},
		{name: "IM", handler: func(c *encode.Ctx, t string) error { return c.EmitIm(t) }},
		{name: "IN", handler: func(c *encode.Ctx, t string) error { return c.EmitIn(t) }},
		{name: "IN0", handler: func(c *encode.Ctx, t string) error { return c.EmitIn0(t) }},
		{name: "INC", handler: func(c *encode.Ctx, t string) error { return c.EmitInc(t) }},
		{name: "IND", handler: fixed("IND"), requiredClass: notGBZ80},
		{name: "INDR", handler: fixed("INDR"), requiredClass: notGBZ80},
		{name: "INI", handler: fixed("INI"), requiredClass: notGBZ80},
		{name: "INIR", handler: fixed("INIR"), requiredClass: notGBZ80},
		{name: "JP", handler: func(c *encode.Ctx, t string) error { return c.EmitJp(t) }},
		{name: "JR", handler: func(c *encode.Ctx, t string) error { return c.EmitJr(t) }},
		{name: "LD", handler: func(c *encode.Ctx, t string) error { return c.EmitLd(t) },
			gbz80: func(c *encode.Ctx, t string) error { return c.EmitLd(t) }},
		{name: "LDD", handler: fixed("LDD"),
			gbz80: func(c *encode.Ctx, t string) error { return c.EmitLddldi(0x32)(t) }},
		{name: "LDDR", handler: fixed("LDDR"), requiredClass: notGBZ80},
		{name: "LDDRX", handler: fixed("LDDRX"), requiredClass: dialect.ClassZ80N},
		{name: "LDDX", handler: fixed("LDDX"), requiredClass: dialect.ClassZ80N},
		{name: "LDH", handler: func(c *encode.Ctx, t string) error { return c.EmitLdh(t) }},
		{name: "LDHL", handler: func(c *encode.Ctx, t string) error { return c.EmitLdhl(t) }},
		{name: "LDI", handler: fixed("LDI"),
			gbz80: func(c *encode.Ctx, t string) error { return c.EmitLddldi(0x22)(t) }},
		{name: "LDIR", handler: fixed("LDIR"), requiredClass: notGBZ80},
		{name: "LDIRX", handler: fixed("LDIRX"), requiredClass: dialect.ClassZ80N},
		{name: "LDIX", handler: fixed("LDIX"), requiredClass: dialect.ClassZ80N},
		{name: "LDPIRX", handler: fixed("LDPIRX"), requiredClass: dialect.ClassZ80N},
		{name: "LDWS", handler: fixed("LDWS"), requiredClass: dialect.ClassZ80N},
		{name: "LEA", handler: func(c *encode.Ctx, t string) error { return c.EmitLea(t) }},
		{name: "MLT", handler: func(c *encode.Ctx, t string) error { return c.EmitMlt(t) }},
		{name: "MUL", handler: func(c *encode.Ctx, t string) error { return c.EmitMul(t) }},
		{name: "MULUB", handler: func(c *encode.Ctx, t string) error { return c.EmitMulub(t) }},
		{name: "MULUW", handler: func(c *encode.Ctx, t string) error { return c.EmitMuluw(t) }},
		{name: "NEG", handler: fixed("NEG"), requiredClass: notGBZ80},
		{name: "NEXTREG", handler: func(c *encode.Ctx, t string) error { return c.EmitNextreg(t) }},
		{name: "NOP", handler: fixed("NOP")},
		{name: "OR", handler: func(c *encode.Ctx, t string) error { return c.EmitOr(t) }},
		{name: "OTDR", handler: fixed("OTDR"), requiredClass: notGBZ80},
		{name: "OTIR", handler: fixed("OTIR"), requiredClass: notGBZ80},
		{name: "OUT", handler: func(c *encode.Ctx, t string) error { return c.EmitOut(t) }},
		{name: "OUT0", handler: func(c *encode.Ctx, t string) error { return c.EmitOut0(t) }},
		{name: "OUTD", handler: fixed("OUTD"), requiredClass: notGBZ80},
		{name: "OUTI", handler: fixed("OUTI"), requiredClass: notGBZ80},
		{name: "OUTINB", handler: fixed("OUTINB"), requiredClass: dialect.ClassZ80N},
		{name: "PEA", handler: func(c *encode.Ctx, t string) error { return c.EmitPea(t) }},
		{name: "POP", handler: func(c *encode.Ctx, t string) error { return c.EmitPop(t) }},
		{name: "PUSH", handler: func(c *encode.Ctx, t string) error { return c.EmitPush(t) }},
		{name: "RES", handler: func(c *encode.Ctx, t string) error { return c.EmitRes(t) }},
		{name: "RET", handler: func(c *encode.Ctx, t string) error { return c.EmitRetcc(t) }},
		{name: "RETI", handler: func(c *encode.Ctx, t string) error { return c.EmitReti(0x4D)(t) }},
		{name: "RETN", handler: func(c *encode.Ctx, t string) error { return c.EmitReti(0x45)(t) }},
		{name: "RL", handler: func(c *encode.Ctx, t string) error { return c.EmitRl(t) }},
		{name: "RLA", handler: fixed("RLA")},
		{name: "RLC", handler: func(c *encode.Ctx, t string) error { return c.EmitRlc(t) }},
		{name: "RLCA", handler: fixed("RLCA")},
		{name: "RLD", handler: fixed("RLD"), requiredClass: notGBZ80},
		{name: "RR", handler: func(c *encode.Ctx, t string) error { return c.EmitRr(t) }},
		{name: "RRA", handler: fixed("RRA")},
		{name: "RRC", handler: func(c *encode.Ctx, t string) error { return c.EmitRrc(t) }},
		{name: "RRCA", handler: fixed("RRCA")},
		{name: "RRD", handler: fixed("RRD"), requiredClass: notGBZ80},
		{name: "RST", handler: func(c *encode.Ctx, t string) error { return c.EmitRst(t) }},
		{name: "SBC", handler: func(c *encode.Ctx, t string) error { return c.EmitSbc(t) }},
		{name: "SCF", handler: fixed("SCF")},
		{name: "SET", handler: func(c *encode.Ctx, t string) error { return c.EmitSet(t) }},
		{name: "SLA", handler: func(c *encode.Ctx, t string) error { return c.EmitSla(t) }},
		{name: "SLI", handler: func(c *encode.Ctx, t string) error { return c.EmitSll(t) }},
		{name: "SLL", handler: func(c *encode.Ctx, t string) error { return c.EmitSll(t) }},
		{name: "SRA", handler: func(c *encode.Ctx, t string) error { return c.EmitSra(t) }},
		{name: "SRL", handler: func(c *encode.Ctx, t string) error { return c.EmitSrl(t) }},
		{name: "STOP", handler: fixed("STOP")},
		{name: "SUB", handler: func(c *encode.Ctx, t string) error { return c.EmitSub(t) }},
		{name: "SWAP", handler: func(c *encode.Ctx, t string) error { return c.EmitSwap(t) }},
		{name: "TEST", handler: func(c *encode.Ctx, t string) error { return c.EmitTst(t) }},
		{name: "TST", handler: func(c *encode.Ctx, t string) error { return c.EmitTst(t) }},
		{name: "XOR", handler: func(c *encode.Ctx, t string) error { return c.EmitXor(t) }},
	}

	// ADD/SUB/SLL/SRL with two register operands is the Z80N barrel-shift
	// form (EmitBshft); since it shares ADD/SUB's mnemonic name with the
	// regular ALU instruction, the dispatch-level entries above route to
	// the ALU form and EmitAdd/EmitSub themselves never see a bare r,r
	// pair (that shape is illegal for plain ADD A,../SUB anyway), so the
	// barrel-shift spelling is reachable only through its own mnemonic
	// table entries added here rather than by overloading ADD/SUB.
	es = append(es,
		entry{name: "BSLA", handler: func(c *encode.Ctx, t string) error { return c.EmitBshft("ADD", t) }},
		entry{name: "BSRA", handler: func(c *encode.Ctx, t string) error { return c.EmitBshft("SUB", t) }},
		entry{name: "BSRL", handler: func(c *encode.Ctx, t string) error { return c.EmitBshft("SRL", t) }},
		entry{name: "BSRF", handler: func(c *encode.Ctx, t string) error { return c.EmitBshft("SLL", t) }},
	)

	sort.Slice(es, func(i, j int) bool { return es[i].name < es[j].name })
	return es
}
