// Package expr wraps a small expression evaluator (standing in for the
// generic front-end's) and builds the canonical Operand representation used
// throughout the encoders: registers, indirection, and Z80 indexed
// addressing `(IX+d)`/`(IY+d)` are recognized here so that every encoder in
// pkg/encode consumes the same normalized shape.
package expr

import "fmt"

// Kind tags which alternative of the Operand sum type is populated. This
// collapses the original op/md/add_number/add_symbol quadruple into a single
// tagged union (see Design Note "Expression tree with register leaves ->
// sum type").
type Kind int

const (
	Absent Kind = iota
	Illegal
	Register
	IndirectRegister
	Indexed
	Immediate
	MemoryAddress
	Condition
	HLPostIncDec
)

// Node is a small arithmetic-expression tree: constants, symbol references,
// and unary/binary operators. It is this module's stand-in for the
// front-end's real expression evaluator (out of scope per spec.md §1/§6).
type Node struct {
	Op       string // "", "const", "sym", "reg", or an operator token
	Const    int64
	Symbol   string
	Children []*Node
}

func ConstNode(v int64) *Node  { return &Node{Op: "const", Const: v} }
func SymbolNode(s string) *Node { return &Node{Op: "sym", Symbol: s} }
func UnaryNode(op string, x *Node) *Node { return &Node{Op: op, Children: []*Node{x}} }
func BinaryNode(op string, l, r *Node) *Node { return &Node{Op: op, Children: []*Node{l, r}} }

// IsConst reports whether the node folds to a compile-time constant without
// consulting any symbol table.
func (n *Node) IsConst() bool {
	if n == nil {
		return false
	}
	switch n.Op {
	case "const":
		return true
	case "sym":
		return false
	default:
		for _, c := range n.Children {
			if !c.IsConst() {
				return false
			}
		}
		return true
	}
}

// ContainsRegister reports whether any leaf of the tree is a register
// reference — such a tree is invalid as an immediate (§4.4).
func (n *Node) ContainsRegister() bool {
	if n == nil {
		return false
	}
	if n.Op == "reg" {
		return true
	}
	for _, c := range n.Children {
		if c.ContainsRegister() {
			return true
		}
	}
	return false
}

// SymbolResolver resolves a symbol name to its current value; Defined is
// false for forward references (the value is then only usable behind a
// fixup, never folded).
type SymbolResolver interface {
	Resolve(name string) (value int64, defined bool)
}

// Eval folds a constant expression to an int64. It returns ok=false if any
// symbol is undefined or unresolved.
func Eval(n *Node, sym SymbolResolver) (int64, bool) {
	if n == nil {
		return 0, false
	}
	switch n.Op {
	case "const":
		return n.Const, true
	case "sym":
		if sym == nil {
			return 0, false
		}
		return sym.Resolve(n.Symbol)
	case "neg":
		v, ok := Eval(n.Children[0], sym)
		return -v, ok
	case "~":
		v, ok := Eval(n.Children[0], sym)
		return ^v, ok
	}
	if len(n.Children) != 2 {
		return 0, false
	}
	l, ok1 := Eval(n.Children[0], sym)
	r, ok2 := Eval(n.Children[1], sym)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch n.Op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case "<<":
		return l << uint(r), true
	case ">>":
		return l >> uint(r), true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	}
	return 0, false
}

// Operand is the classified, canonical operand shape every encoder in
// pkg/encode is written against.
type Operand struct {
	Kind Kind

	// Register / IndirectRegister
	Reg uint16 // regs.Reg value

	// Indexed: (IX+d) / (IY+d). IndexReg is regs.IX or regs.IY.
	IndexReg     uint16
	Displacement *Node

	// Immediate / MemoryAddress
	Expr *Node

	// Condition
	Cond uint8

	// HLPostIncDec: +1 for (HL+), -1 for (HL-)
	HLDelta int

	// Paren records whether the source was parenthesized at the outermost
	// level (the original's `md` bit); Kind already encodes the semantic
	// difference for Register/IndirectRegister, but callers that need to
	// distinguish "(nn)" memory references from bare immediates consult it
	// via Kind == MemoryAddress rather than this flag directly.
	Paren bool

	Err string // set when Kind == Illegal or Absent
}

func (o *Operand) String() string {
	if o == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Operand{Kind:%d}", o.Kind)
}
