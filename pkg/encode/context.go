// Package encode implements §4.6: one routine per mnemonic family,
// validating the operand combination for the active dialect and emitting
// opcode bytes (with displacement/immediate bytes and fixups) through
// pkg/emit. Every encoder is a pure function over (ctx, operand tail), per Design Note "Mnemonic table -> data-driven dispatch".
package encode

import (
	"strings"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/diag"
	"github.com/jiiink/z80asm/pkg/emit"
	"github.com/jiiink/z80asm/pkg/expr"
	"github.com/jiiink/z80asm/pkg/regs"
)

// Ctx bundles everything an encoder needs, replacing the original's process
// globals with one value threaded explicitly through every call.
type Ctx struct {
	D      *dialect.State
	Parser *expr.Parser
	Emit   *emit.Emitter
	Diag   *diag.Sink
}

// splitOperands splits an instruction's operand tail on top-level commas,
// honoring nested parens and quoted characters, trimming each piece.
func splitOperands(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '\'', '"':
			q := s[i]
			i++
			for i < len(s) && s[i] != q {
				if s[i] == '\\' {
					i++
				}
				i++
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// operands splits s into exactly n operand strings, reporting a syntax
// error if the count doesn't match.
func (c *Ctx) operands(s string, n int) ([]string, bool) {
	s = strings.TrimSpace(s)
	var parts []string
	if s == "" {
		parts = nil
	} else {
		parts = splitOperands(s)
	}
	if len(parts) != n {
		c.Diag.Error("bad expression syntax")
		return nil, false
	}
	return parts, true
}

// parseOperand parses one already-isolated operand substring.
func (c *Ctx) parseOperand(s string) *expr.Operand {
	op, _ := c.Parser.ParseExp(s)
	return op
}

// condOperand recognizes a bare condition-code mnemonic at the front of an
// operand position, used by the conditional jump/call/return encoders which
// accept a condition only in their first operand slot (§4.6).
func (c *Ctx) condOperand(s string) (regs.Cond, bool) {
	s = strings.TrimSpace(s)
	cc, ok := regs.LookupCond(s)
	return cc, ok
}

func (c *Ctx) illegalOperand() error {
	c.Diag.Error("illegal operand")
	return errIllegal
}

var errIllegal = illegalErr{}

type illegalErr struct{}

func (illegalErr) Error() string { return "illegal operand" }

// emitBytes appends literal, already-resolved bytes (prefix + opcode, or a
// fixed encoding with no operand-dependent fields) to the fragment.
func (c *Ctx) emitBytes(bs ...byte) {
	off := c.Emit.Frag.More(len(bs))
	for i, b := range bs {
		c.Emit.Frag.PutByte(off+i, b)
	}
}

// checkClass reports a dialect diagnostic for class and returns false if it
// was a hard error (so the caller should stop encoding this instruction).
func (c *Ctx) checkClass(class dialect.Class) bool {
	sev, msg := c.D.CheckMach(class)
	switch sev {
	case dialect.Warning:
		c.Diag.Warn("%s", msg)
	case dialect.Error:
		c.Diag.Error("%s", msg)
		return false
	}
	return true
}

// requireCPU reports a hard "illegal operand" error and returns false unless
// the active CPU is one of cpus — used for instructions that exist on
// exactly one or two CPUs outright (SWAP, MLT, LEA, NEXTREG, ...) rather
// than ones merely gated behind an optional extension class.
func (c *Ctx) requireCPU(cpus ...dialect.CPU) bool {
	active := c.D.CPU()
	for _, cpu := range cpus {
		if active == cpu {
			return true
		}
	}
	c.Diag.Error("illegal operand")
	return false
}

// indexPrefix returns the DD/FD prefix byte for an index register.
func indexPrefix(reg regs.Reg) byte {
	if reg&regs.IXFlag != 0 {
		return 0xDD
	}
	return 0xFD
}
