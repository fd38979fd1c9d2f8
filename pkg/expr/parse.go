package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/regs"
)

// Parser holds the scratch state for one operand-expression parse. A single
// instance is reused per line by the caller (pkg/dispatch), matching the
// original's shared buf/key moved onto the stack (Design Note "Shared
// buffer").
type Parser struct {
	D *dialect.State
}

// parseExpNotIndexed parses everything up to (but not past) the terminator
// set, resolving register sub-expressions and detecting outer-level
// indirection. It returns the classified Operand and the unconsumed rest of
// the string.
func (p *Parser) parseExpNotIndexed(s string) (*Operand, string) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return &Operand{Kind: Absent, Err: "missing operand"}, s
	}

	// sdcc byte/word select: <expr> / >expr>
	if p.D.SDCCCompat && (s[0] == '<' || s[0] == '>') {
		shiftHigh := s[0] == '>'
		rest := s[1:]
		inner, tail := p.parseExpNotIndexed(rest)
		if inner.Kind == Illegal || inner.Kind == Absent {
			return inner, tail
		}
		amount := int64(0)
		if shiftHigh {
			if p.D.LongData() {
				amount = 16
			} else {
				amount = 8
			}
		}
		wrapped := wrapShift(inner, amount)
		return wrapped, tail
	}

	// Detect whole-expression indirection: the expression starts with '('
	// and its matching close paren is the last significant character before
	// the next top-level comma (or end of string).
	if s[0] == '(' {
		closeIdx := matchParen(s)
		if closeIdx > 0 {
			inner := s[1:closeIdx]
			tail := strings.TrimLeft(s[closeIdx+1:], " \t")
			if tail == "" || tail[0] == ',' {
				// GBZ80 (HL+) / (HL-)
				if p.D.CPU() == dialect.GBZ80 {
					trimmed := strings.TrimSpace(inner)
					if strings.EqualFold(trimmed, "HL+") {
						return &Operand{Kind: HLPostIncDec, HLDelta: +1, Paren: true}, tail
					}
					if strings.EqualFold(trimmed, "HL-") {
						return &Operand{Kind: HLPostIncDec, HLDelta: -1, Paren: true}, tail
					}
				}
				node, rest2, err := p.parseArith(inner)
				if err != nil {
					return &Operand{Kind: Illegal, Err: err.Error()}, tail
				}
				rest2 = strings.TrimSpace(rest2)
				if rest2 != "" {
					return &Operand{Kind: Illegal, Err: "bad expression syntax"}, tail
				}
				return p.classifyParenthesized(node), tail
			}
		}
	}

	// sdcc: n(reg) -> (reg+n)
	if p.D.SDCCCompat {
		if op, tail, ok := p.tryParseSDCCOffsetForm(s); ok {
			return op, tail
		}
	}

	node, rest, err := p.parseArith(s)
	if err != nil {
		return &Operand{Kind: Illegal, Err: err.Error()}, rest
	}
	return p.classifyBare(node), rest
}

// ParseExp is parse_exp: parses one operand, then (per §4.3) rewrites any
// top-level add/subtract of an index register into canonical Indexed form,
// whether or not the whole thing was parenthesized.
func (p *Parser) ParseExp(s string) (*Operand, string) {
	op, rest := p.parseExpNotIndexed(s)
	return p.unifyIndexed(op), rest
}

// unifyIndexed implements the §4.3 rewrite: IX/IY ± displacement, in any
// combination the generic evaluator already folded, becomes Kind==Indexed
// with IndexReg set and Displacement holding the (possibly zero) offset.
func (p *Parser) unifyIndexed(op *Operand) *Operand {
	if op == nil {
		return op
	}
	switch op.Kind {
	case Register, IndirectRegister:
		if r := regs.Reg(op.Reg) &^ (regs.Arith | regs.Stackable | regs.IndexMask); r == regs.IX || r == regs.IY {
			// Bare (IX) / (IY) with no offset canonicalizes to Indexed
			// with a zero displacement, but only when parenthesized
			// (IndirectRegister); a bare, unparenthesized IX/IY stays a
			// plain 16-bit register operand.
			if op.Kind == IndirectRegister {
				return &Operand{Kind: Indexed, IndexReg: op.Reg, Displacement: ConstNode(0), Paren: true}
			}
		}
		return op
	case Immediate, MemoryAddress:
		if op.Expr == nil {
			return op
		}
		if idx, disp, ok := splitIndexArith(op.Expr); ok {
			return &Operand{Kind: Indexed, IndexReg: idx, Displacement: disp, Paren: op.Paren}
		}
		return op
	}
	return op
}

// splitIndexArith looks for an add/sub node whose direct children are (an
// index register) and (anything else), folding sign per the original's
// unify_indexed: subtraction becomes addition of a negated sub-expression,
// and a bare register leaf with no arithmetic at all does NOT match here
// (that case is handled earlier, by classify*).
func splitIndexArith(n *Node) (idxReg uint16, displacement *Node, ok bool) {
	if n == nil || (n.Op != "+" && n.Op != "-") || len(n.Children) != 2 {
		return 0, nil, false
	}
	l, r := n.Children[0], n.Children[1]
	if l.Op == "reg" && isIndexRegLeaf(l) {
		disp := r
		if n.Op == "-" {
			disp = UnaryNode("neg", r)
		}
		return uint16(l.Const), foldOffset(disp), true
	}
	if n.Op == "+" && r.Op == "reg" && isIndexRegLeaf(r) {
		return uint16(r.Const), foldOffset(l), true
	}
	return 0, nil, false
}

func isIndexRegLeaf(n *Node) bool {
	r := regs.Reg(n.Const) &^ (regs.Arith | regs.Stackable | regs.IndexMask)
	return r == regs.IX || r == regs.IY
}

// foldOffset folds a literal, possibly-negated constant displacement into a
// single const node so that `(IX-(-5))` and `(IX+5)` both end up as the
// same canonical displacement; non-constant displacement expressions
// (forward symbol references) pass through unchanged for the fixup to
// resolve later.
func foldOffset(n *Node) *Node {
	if v, ok := Eval(n, nil); ok {
		return ConstNode(v)
	}
	return n
}

func wrapShift(op *Operand, amount int64) *Operand {
	if op.Expr == nil {
		return op
	}
	shifted := BinaryNode(">>", op.Expr, ConstNode(amount))
	return &Operand{Kind: op.Kind, Expr: shifted, Paren: op.Paren}
}

// classifyParenthesized builds the Operand for an expression that was
// wrapped in an outer pair of parens (i.e. this is an indirect reference).
func (p *Parser) classifyParenthesized(n *Node) *Operand {
	if n.Op == "reg" {
		return &Operand{Kind: IndirectRegister, Reg: uint16(n.Const), Paren: true}
	}
	if n.ContainsRegister() {
		// (IX+d)-shaped arithmetic: defer to unifyIndexed via MemoryAddress
		// carrying the raw tree; unifyIndexed will recognize it.
		return &Operand{Kind: MemoryAddress, Expr: n, Paren: true}
	}
	return &Operand{Kind: MemoryAddress, Expr: n, Paren: true}
}

// classifyBare builds the Operand for an expression with no outer parens.
func (p *Parser) classifyBare(n *Node) *Operand {
	if n.Op == "reg" {
		return &Operand{Kind: Register, Reg: uint16(n.Const)}
	}
	if n.ContainsRegister() {
		return &Operand{Kind: Illegal, Expr: n, Err: "illegal operand"}
	}
	return &Operand{Kind: Immediate, Expr: n}
}

// matchParen returns the index of the ')' matching the '(' at s[0], honoring
// nested parens and single/double-quoted characters, or -1 if unmatched.
func matchParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
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
		}
	}
	return -1
}

// tryParseSDCCOffsetForm recognizes sdcc's `n(reg)` spelling of `(reg+n)`.
func (p *Parser) tryParseSDCCOffsetForm(s string) (*Operand, string, bool) {
	i := 0
	for i < len(s) && (isDigit(s[i]) || s[i] == '-' || (i == 0 && s[i] == '+')) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '(' {
		return nil, "", false
	}
	numPart := s[:i]
	n, err := strconv.ParseInt(numPart, 0, 64)
	if err != nil {
		return nil, "", false
	}
	closeIdx := matchParen(s[i:])
	if closeIdx < 0 {
		return nil, "", false
	}
	closeIdx += i
	inner := s[i+1 : closeIdx]
	tail := strings.TrimLeft(s[closeIdx+1:], " \t")
	node, rest2, err := p.parseArith(inner)
	if err != nil || strings.TrimSpace(rest2) != "" {
		return nil, "", false
	}
	if node.Op != "reg" {
		return nil, "", false
	}
	combined := BinaryNode("+", node, ConstNode(n))
	return &Operand{Kind: MemoryAddress, Expr: combined, Paren: true}, tail, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ---- small Pratt-ish arithmetic parser over the remaining grammar ----

type tokKind int

const (
	tEOF tokKind = iota
	tNum
	tIdent
	tOp
	tLParen
	tRParen
	tComma
)

type token struct {
	kind tokKind
	text string
	num  int64
}

func (p *Parser) tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tComma})
			i++
		case c == '\'':
			// character literal 'X' — already converted to decimal by the
			// line hook in normal operation, but handle it here too for
			// direct callers.
			j := i + 1
			if j < len(s) && s[j] == '\\' {
				j++
			}
			if j >= len(s) {
				return nil, fmt.Errorf("bad expression syntax")
			}
			val := int64(s[j])
			j++
			if j >= len(s) || s[j] != '\'' {
				return nil, fmt.Errorf("bad expression syntax")
			}
			toks = append(toks, token{kind: tNum, num: val})
			i = j + 1
		case c == '$' && (i+1 >= len(s) || !isHexDigit(s[i+1])):
			// bare '$' = current location counter; represented as symbol "$"
			toks = append(toks, token{kind: tIdent, text: "$"})
			i++
		case c == '$':
			j := i + 1
			for j < len(s) && isHexDigit(s[j]) {
				j++
			}
			v, err := strconv.ParseInt(s[i+1:j], 16, 64)
			if err != nil {
				return nil, fmt.Errorf("bad expression syntax")
			}
			toks = append(toks, token{kind: tNum, num: v})
			i = j
		case isDigit(c):
			j := i
			for j < len(s) && (isHexDigit(s[j]) || s[j] == 'x' || s[j] == 'X') {
				j++
			}
			numStr := s[i:j]
			hSuffix := false
			if j < len(s) && (s[j] == 'h' || s[j] == 'H') {
				hSuffix = true
				j++
			}
			var v int64
			var err error
			if hSuffix {
				v, err = strconv.ParseInt(numStr, 16, 64)
			} else if strings.HasPrefix(numStr, "0x") || strings.HasPrefix(numStr, "0X") {
				v, err = strconv.ParseInt(numStr[2:], 16, 64)
			} else {
				v, err = strconv.ParseInt(numStr, 10, 64)
			}
			if err != nil {
				return nil, fmt.Errorf("bad expression syntax")
			}
			toks = append(toks, token{kind: tNum, num: v})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tIdent, text: s[i:j]})
			i = j
		case strings.HasPrefix(s[i:], "<<"):
			toks = append(toks, token{kind: tOp, text: "<<"})
			i += 2
		case strings.HasPrefix(s[i:], ">>"):
			toks = append(toks, token{kind: tOp, text: ">>"})
			i += 2
		case strings.ContainsRune("+-*/%&|^~", rune(c)):
			toks = append(toks, token{kind: tOp, text: string(c)})
			i++
		default:
			return nil, fmt.Errorf("bad expression syntax")
		}
	}
	toks = append(toks, token{kind: tEOF})
	return toks, nil
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '.'
}
func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

type arithParser struct {
	p      *Parser
	toks   []token
	pos    int
}

func (p *Parser) parseArith(s string) (*Node, string, error) {
	toks, err := p.tokenize(s)
	if err != nil {
		return nil, "", err
	}
	ap := &arithParser{p: p, toks: toks}
	n, err := ap.parseBinary(0)
	if err != nil {
		return nil, "", err
	}
	// Reconstruct the unconsumed tail from the remaining token stream isn't
	// exact, but this parser is only ever handed a complete single-operand
	// substring (the caller already isolated up to the next top-level
	// comma/paren), so the tail is empty on success.
	rest := ""
	if ap.cur().kind != tEOF {
		rest = s // signal leftover to caller via non-empty, trimmed later
	}
	return n, rest, nil
}

func (ap *arithParser) cur() token { return ap.toks[ap.pos] }
func (ap *arithParser) advance() token {
	t := ap.toks[ap.pos]
	if ap.pos < len(ap.toks)-1 {
		ap.pos++
	}
	return t
}

var precedence = map[string]int{
	"|": 1, "^": 1,
	"&": 2,
	"<<": 3, ">>": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

func (ap *arithParser) parseBinary(minPrec int) (*Node, error) {
	left, err := ap.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := ap.cur()
		if t.kind != tOp {
			break
		}
		prec, ok := precedence[t.text]
		if !ok || prec < minPrec {
			break
		}
		op := t.text
		ap.advance()
		right, err := ap.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = BinaryNode(op, left, right)
	}
	return left, nil
}

func (ap *arithParser) parseUnary() (*Node, error) {
	t := ap.cur()
	if t.kind == tOp && t.text == "-" {
		ap.advance()
		x, err := ap.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryNode("neg", x), nil
	}
	if t.kind == tOp && t.text == "~" {
		ap.advance()
		x, err := ap.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryNode("~", x), nil
	}
	if t.kind == tOp && t.text == "+" {
		ap.advance()
		return ap.parseUnary()
	}
	return ap.parsePrimary()
}

func (ap *arithParser) parsePrimary() (*Node, error) {
	t := ap.cur()
	switch t.kind {
	case tNum:
		ap.advance()
		return ConstNode(t.num), nil
	case tIdent:
		ap.advance()
		if r, ok := regs.LookupGated(t.text, ap.p.D); ok {
			return &Node{Op: "reg", Const: int64(r)}, nil
		}
		if cc, ok := regs.LookupCond(t.text); ok && len(t.text) <= 2 {
			// Condition-code mnemonics are only meaningful at the operand
			// position itself (handled by the caller before arithmetic
			// parsing begins); here they degrade to a plain symbol so an
			// expression like `NZ+1` (never legal) still parses instead of
			// aborting the whole line.
			_ = cc
		}
		return SymbolNode(t.text), nil
	case tLParen:
		ap.advance()
		n, err := ap.parseBinary(0)
		if err != nil {
			return nil, err
		}
		if ap.cur().kind != tRParen {
			return nil, fmt.Errorf("bad expression syntax")
		}
		ap.advance()
		return n, nil
	}
	return nil, fmt.Errorf("bad expression syntax")
}
