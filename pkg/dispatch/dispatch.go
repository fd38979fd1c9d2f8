// Package dispatch implements §4.7/C7: the mnemonic table (md_assemble's
// binary-searched big switch, here a sorted slice of entries) and the
// top-level per-line entry point that resets per-instruction dialect state,
// applies an eZ80 suffix if present, and routes to the right pkg/encode
// routine.
package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/diag"
	"github.com/jiiink/z80asm/pkg/emit"
	"github.com/jiiink/z80asm/pkg/encode"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/fixup"
)

// Handler is one mnemonic's encoder: given the operand tail (everything
// after the mnemonic and any eZ80 suffix, not yet split into operands), it
// emits bytes/fixups through ctx and reports a diagnostic on failure.
type Handler func(ctx *encode.Ctx, tail string) error

type entry struct {
	name          string
	handler       Handler
	gbz80         Handler       // non-nil overrides handler when the active CPU is GBZ80
	requiredClass dialect.Class // zero means no table-level gating; else ins_ok must overlap
}

// Assembler is the per-compilation-unit state threaded through every line:
// the active dialect, the shared expression parser, the output fragment,
// and the diagnostic sink (Design Note "global mutable state -> explicit
// config" — no package-level singletons, one value per assembly).
type Assembler struct {
	Dialect *dialect.State
	Ctx     *encode.Ctx
}

// NewAssembler builds an Assembler wired to a fresh fragment and symbol
// resolver, with the default -march=z80+xyhl+infc dialect.
func NewAssembler(sym expr.SymbolResolver, fragBase int) *Assembler {
	d := dialect.New()
	sink := &diag.Sink{}
	frag := fixup.NewFragment(fragBase)
	return &Assembler{
		Dialect: d,
		Ctx: &encode.Ctx{
			D:      d,
			Parser: &expr.Parser{D: d},
			Emit:   &emit.Emitter{Frag: frag, Diag: sink, Sym: sym},
			Diag:   sink,
		},
	}
}

// AssembleLine implements md_assemble: reset per-instruction state, parse
// an optional eZ80 `.SUFFIX`, binary-search the mnemonic table, and invoke
// the handler. line is the instruction portion of a source line with any
// label/comment already stripped by pkg/linehook.
func (a *Assembler) AssembleLine(lineNo int, line string) error {
	a.Ctx.Diag.StartLine(lineNo)
	a.Dialect.ResetInstMode()

	mnemonic, suffix, tail := splitMnemonic(line)
	if mnemonic == "" {
		return nil
	}

	if suffix != "" {
		s, ok := dialect.ParseSuffix(strings.ToUpper(suffix))
		if !ok || a.Dialect.CPU() != dialect.EZ80 {
			a.Ctx.Diag.Error("invalid eZ80 instruction suffix %q", suffix)
			return fmt.Errorf("invalid eZ80 instruction suffix %q", suffix)
		}
		prefix, err := a.Dialect.ApplySuffix(s)
		if err != nil {
			a.Ctx.Diag.Error("%s", err.Error())
			return err
		}
		off := a.Ctx.Emit.Frag.More(1)
		a.Ctx.Emit.Frag.PutByte(off, prefix)
	}

	e, ok := lookup(mnemonic)
	if !ok || (e.requiredClass != 0 && a.Dialect.InsOK&e.requiredClass == 0) {
		// md_assemble emits the zero byte its frag_more(1) reserves before
		// reporting the error, whether the mnemonic was never found or was
		// found but rejected by the table's required class.
		off := a.Ctx.Emit.Frag.More(1)
		a.Ctx.Emit.Frag.PutByte(off, 0)
		a.Ctx.Diag.Error("Unknown instruction %q", mnemonic)
		return fmt.Errorf("unknown instruction %q", mnemonic)
	}

	h := e.handler
	if a.Dialect.CPU() == dialect.GBZ80 && e.gbz80 != nil {
		h = e.gbz80
	}
	if err := h(a.Ctx, tail); err != nil {
		return err
	}
	return nil
}

// splitMnemonic separates "mnemonic[.SUFFIX] operands..." into its three
// parts. Suffix detection only fires on a literal '.' immediately after the
// mnemonic letters, never inside a dotted local-label operand.
func splitMnemonic(line string) (mnemonic, suffix, tail string) {
	line = strings.TrimLeft(line, " \t")
	i := 0
	for i < len(line) && isMnemonicChar(line[i]) {
		i++
	}
	mnemonic = strings.ToUpper(line[:i])
	rest := line[i:]
	if strings.HasPrefix(rest, ".") {
		j := 1
		for j < len(rest) && isMnemonicChar(rest[j]) {
			j++
		}
		suffix = strings.ToUpper(rest[1:j])
		rest = rest[j:]
	}
	return mnemonic, suffix, strings.TrimLeft(rest, " \t")
}

func isMnemonicChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func lookup(name string) (entry, bool) {
	i := sort.Search(len(table), func(i int) bool { return table[i].name >= name })
	if i < len(table) && table[i].name == name {
		return table[i], true
	}
	return entry{}, false
}
