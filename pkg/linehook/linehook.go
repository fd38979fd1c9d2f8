// Package linehook implements §4.8/C8: everything that runs on a raw source
// line before the generic mnemonic assembler (pkg/dispatch) ever sees it —
// comment stripping, label recognition, sdcc syntax quirks, EQU/DEFL/set
// assignment, and the pseudo-ops (.area, .assume, dialect switches, data
// directives) that never reach the mnemonic table at all.
package linehook

import (
	"fmt"
	"strings"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/dispatch"
	"github.com/jiiink/z80asm/pkg/expr"
)

// Hook is the per-assembly driver: the dialect state, symbol table, and
// wrapped mnemonic Assembler all live here, matching the single-threaded,
// one-value-per-assembly shape the rest of this module uses (Design Note
// "Global mutable state -> explicit config").
type Hook struct {
	Dialect *dialect.State
	Symbols *SymbolTable
	Asm     *dispatch.Assembler

	lineStart int64 // location counter at the start of the current line
}

// New builds a Hook with a fresh fragment starting at fragBase and the
// default -march=z80+xyhl+infc dialect.
func New(fragBase int) *Hook {
	h := &Hook{Symbols: NewSymbolTable()}
	h.Asm = dispatch.NewAssembler(h, fragBase)
	h.Dialect = h.Asm.Dialect
	return h
}

// Resolve implements expr.SymbolResolver: "$" is the location counter at the
// start of the current line, everything else comes from the symbol table.
func (h *Hook) Resolve(name string) (int64, bool) {
	if name == "$" {
		return h.lineStart, true
	}
	return h.Symbols.Lookup(name)
}

// ProcessLine runs the full C8 -> C7 -> C6 pipeline over one source line:
// strip the comment, pull off a label if present, recognize an assignment
// or pseudo-op, and otherwise hand the remaining mnemonic text to the
// dispatch Assembler.
func (h *Hook) ProcessLine(lineNo int, raw string) error {
	h.Asm.Ctx.Diag.StartLine(lineNo)
	h.lineStart = int64(h.Asm.Ctx.Emit.Frag.Here())

	line := stripComment(raw)
	if h.Dialect.SDCCCompat {
		line = sdccRewrite(line)
	}

	// EQU/DEFL/=/== assignment lines are mutually exclusive with a
	// label+instruction line, so they're checked first, against the whole
	// line rather than against whatever splitLabel would otherwise consume.
	if name, kind, exprText, ok := splitAssignment(line); ok {
		return h.assign(name, kind, exprText)
	}

	label, rest, hasLabel := splitLabel(line, h.Dialect.ColonlessLabels)
	if hasLabel {
		if !h.Symbols.Define(label, int64(h.Asm.Ctx.Emit.Frag.Here())) {
			h.Asm.Ctx.Diag.Error("symbol %q redefined", label)
			return fmt.Errorf("symbol %q redefined", label)
		}
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}

	if handled, err := h.tryDirective(rest); handled {
		return err
	}

	return h.Asm.AssembleLine(lineNo, rest)
}

// stripComment removes a trailing `; comment`, honoring single/double quoted
// literals so a `;` inside a string isn't mistaken for one.
func stripComment(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ';':
			return s[:i]
		case '\'', '"':
			q := s[i]
			i++
			for i < len(s) && s[i] != q {
				if s[i] == '\\' {
					i++
				}
				i++
			}
		}
	}
	return s
}

// sdccRewrite implements the sdcc-compat text quirks: `#(expr)` becomes
// `0+(expr)`, and a bare `#` (sdcc's immediate-operand marker, redundant in
// this grammar) becomes a space.
func sdccRewrite(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' || c == '"' {
			b.WriteByte(c)
			q := c
			i++
			for i < len(s) && s[i] != q {
				b.WriteByte(s[i])
				if s[i] == '\\' && i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
				i++
			}
			if i < len(s) {
				b.WriteByte(s[i])
			}
			continue
		}
		if c == '#' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
				j++
			}
			if j < len(s) && s[j] == '(' {
				b.WriteString("0+")
				continue
			}
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// parseExprOperand parses s as a plain, non-register, non-indirect
// expression for use in a directive's operand position (EQU value, db/dw
// value, .assume value, ...).
func (h *Hook) parseExprOperand(s string) (*expr.Node, error) {
	op, _ := h.Asm.Ctx.Parser.ParseExp(s)
	if op == nil || op.Kind == expr.Illegal || op.Kind == expr.Absent {
		return nil, fmt.Errorf("bad expression syntax")
	}
	if op.Kind != expr.Immediate {
		return nil, fmt.Errorf("illegal operand")
	}
	return op.Expr, nil
}

// splitArgs splits a directive's operand list on top-level commas, honoring
// parens and quoted strings (so `db "a,b", 1` splits into two operands, not
// three).
func splitArgs(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
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
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(out) > 0 {
		out = append(out, tail)
	}
	return out
}
