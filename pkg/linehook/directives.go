package linehook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jiiink/z80asm/pkg/expr"
)

// splitAssignment recognizes "name EQU expr", "name DEFL expr", "name =
// expr", "name == expr" at the front of a (comment-stripped) line. kind is
// "EQU", "DEFL", "=", or "==".
func splitAssignment(line string) (name, kind, exprText string, ok bool) {
	if line == "" || !isLabelStart(line[0]) {
		return "", "", "", false
	}
	i := 0
	for i < len(line) && isLabelPart(line[i]) {
		i++
	}
	name = line[:i]
	j := i
	for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
		j++
	}
	if j == i {
		return "", "", "", false // no separating space: not "name KEYWORD ..."
	}

	switch {
	case strings.HasPrefix(line[j:], "=="):
		return name, "==", strings.TrimSpace(line[j+2:]), true
	case strings.HasPrefix(line[j:], "="):
		return name, "=", strings.TrimSpace(line[j+1:]), true
	}

	k := j
	for k < len(line) && isLabelPart(line[k]) {
		k++
	}
	word := strings.ToUpper(line[j:k])
	if word == "EQU" || word == "DEFL" {
		return name, word, strings.TrimSpace(line[k:]), true
	}
	return "", "", "", false
}

// assign implements the EQU ("define once") and DEFL/=/== ("redefinable")
// forms of symbol assignment.
func (h *Hook) assign(name, kind, exprText string) error {
	ex, err := h.parseExprOperand(exprText)
	if err != nil {
		h.Asm.Ctx.Diag.Error("%s", err.Error())
		return err
	}
	v, ok := expr.Eval(ex, h)
	if !ok {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad expression syntax")
	}
	if kind == "EQU" {
		if !h.Symbols.Define(name, v) {
			h.Asm.Ctx.Diag.Error("symbol %q redefined", name)
			return fmt.Errorf("symbol %q redefined", name)
		}
		return nil
	}
	h.Symbols.Set(name, v)
	return nil
}

// cpuDirectives maps a dialect-switch pseudo-op to the -march spelling
// SetMarch expects. .hd64 is HD64180's second-source name for the Z180 and
// has no features of its own, so it aliases straight to "z180"; .z80_1/
// .z80_2 are sdcc's now-obsolete Z80 generation selectors and both alias to
// plain "z80" (neither ever named a distinct instruction set).
var cpuDirectives = map[string]string{
	".z80":   "z80",
	".r800":  "r800",
	".gbz80": "gbz80",
	".z180":  "z180",
	".ez80":  "ez80",
	".z80n":  "z80n",
	".hd64":  "z180",
	".z80_1": "z80",
	".z80_2": "z80",
}

// dataDirectives maps a data-emission pseudo-op to its field width in bytes.
var dataDirectives = map[string]int{
	"db": 1, "defb": 1, "defm": 1,
	"dw": 2, "defw": 2,
	"d24": 3, "def24": 3,
	"d32": 4, "def32": 4,
}

// tryDirective recognizes and executes a pseudo-op; handled is false when
// tail is an ordinary mnemonic line that pkg/dispatch should process instead.
func (h *Hook) tryDirective(tail string) (handled bool, err error) {
	word, rest := splitFirstWord(tail)
	lower := strings.ToLower(word)

	if march, ok := cpuDirectives[lower]; ok {
		if err := h.Dialect.SetMarch(march); err != nil {
			h.Asm.Ctx.Diag.Error("%s", err.Error())
			return true, err
		}
		return true, nil
	}

	switch lower {
	case ".area":
		// sdcc section directive: strip any "(ATTRS)" suffix and otherwise
		// ignore it, since this module has only one implicit section (§6).
		return true, nil

	case ".module", ".optsdcc":
		h.Dialect.SDCCCompat = true
		return true, nil

	case ".assume":
		return true, h.assume(rest)

	case ".set", "set":
		return true, h.setDirective(rest)

	case "ds", "defs":
		return true, h.emitDefs(rest)

	default:
		if width, ok := dataDirectives[lower]; ok {
			return true, h.emitData(rest, width, lower == "defm")
		}
	}
	return false, nil
}

// assume implements `.assume ADL=n`.
func (h *Hook) assume(tail string) error {
	tail = strings.TrimSpace(tail)
	upper := strings.ToUpper(tail)
	if !strings.HasPrefix(upper, "ADL=") {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad .assume directive %q", tail)
	}
	n, err := strconv.Atoi(strings.TrimSpace(tail[len("ADL="):]))
	if err != nil || (n != 0 && n != 1) {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad .assume ADL value %q", tail)
	}
	h.Dialect.CPUMode = n
	h.Dialect.ResetInstMode()
	return nil
}

// setDirective implements `.set name,expr` / `set name,expr` (GNU-as style
// redefinable assignment, distinct from the `name = expr` form which
// splitAssignment already handles).
func (h *Hook) setDirective(tail string) error {
	args := splitArgs(tail)
	if len(args) != 2 {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad .set directive %q", tail)
	}
	name := strings.TrimSpace(args[0])
	if name == "" {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad .set directive: missing symbol name")
	}
	ex, err := h.parseExprOperand(args[1])
	if err != nil {
		h.Asm.Ctx.Diag.Error("%s", err.Error())
		return err
	}
	v, ok := expr.Eval(ex, h)
	if !ok {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad expression syntax")
	}
	h.Symbols.Set(name, v)
	return nil
}

// emitDefs implements `ds n` / `defs n[,fill]`.
func (h *Hook) emitDefs(tail string) error {
	args := splitArgs(tail)
	if len(args) < 1 || len(args) > 2 {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad ds/defs operand count")
	}
	nEx, err := h.parseExprOperand(args[0])
	if err != nil {
		h.Asm.Ctx.Diag.Error("%s", err.Error())
		return err
	}
	n, ok := expr.Eval(nEx, h)
	if !ok || n < 0 {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("bad ds/defs length")
	}
	var fill byte
	if len(args) == 2 {
		fEx, err := h.parseExprOperand(args[1])
		if err != nil {
			h.Asm.Ctx.Diag.Error("%s", err.Error())
			return err
		}
		if v, ok := expr.Eval(fEx, h); ok {
			fill = byte(v)
		}
	}
	off := h.Asm.Ctx.Emit.Frag.More(int(n))
	for i := 0; i < int(n); i++ {
		h.Asm.Ctx.Emit.Frag.PutByte(off+i, fill)
	}
	return nil
}

// emitData implements db/defb/defm/dw/d24/d32/defw/def24/def32: one or more
// comma-separated values, each either an expression or (for byte-width
// directives) a quoted string expanding to one byte per character.
func (h *Hook) emitData(tail string, width int, isDefm bool) error {
	args := splitArgs(tail)
	if len(args) == 0 {
		h.Asm.Ctx.Diag.Error("bad expression syntax")
		return fmt.Errorf("missing data directive operand")
	}
	for _, a := range args {
		a = strings.TrimSpace(a)
		if width == 1 && strings.HasPrefix(a, "\"") {
			bytes, restQ, err := parseStringLiteral(a)
			if err != nil {
				h.Asm.Ctx.Diag.Error("%s", err.Error())
				return err
			}
			if strings.TrimSpace(restQ) != "" {
				h.Asm.Ctx.Diag.Error("bad expression syntax")
				return fmt.Errorf("junk after string literal")
			}
			for _, b := range bytes {
				if err := h.Asm.Ctx.Emit.EmitDataVal(expr.ConstNode(int64(b)), 1); err != nil {
					return err
				}
			}
			continue
		}
		ex, err := h.parseExprOperand(a)
		if err != nil {
			h.Asm.Ctx.Diag.Error("%s", err.Error())
			return err
		}
		if err := h.Asm.Ctx.Emit.EmitDataVal(ex, width); err != nil {
			return err
		}
	}
	_ = isDefm // defm shares db's byte width; no high-bit-terminator quirk is specified
	return nil
}

// splitFirstWord splits s into its leading run of label/directive
// characters (including a leading '.') and the remainder.
func splitFirstWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && isLabelPart(s[i]) {
		i++
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}
