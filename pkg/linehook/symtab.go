package linehook

// SymbolTable is this module's stand-in for the front-end's symbol table
// (§1/§6 treat symbol resolution as out of scope; this is just enough to
// drive EQU/DEFL/label assignment and JR/JP target resolution in the toy
// driver). A name can be Defined once by a label or EQU and never again
// (label redefinition is an error the caller checks), or Set repeatedly via
// DEFL/.set, which always overwrites.
type SymbolTable struct {
	values  map[string]int64
	defined map[string]bool
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{values: map[string]int64{}, defined: map[string]bool{}}
}

// Define records name = value, the EQU/label form. Returns false if name was
// already defined (a redefinition, which the caller reports as an error).
func (t *SymbolTable) Define(name string, value int64) bool {
	if t.defined[name] {
		return false
	}
	t.values[name] = value
	t.defined[name] = true
	return true
}

// Set records name = value unconditionally, the DEFL/.set form.
func (t *SymbolTable) Set(name string, value int64) {
	t.values[name] = value
	t.defined[name] = true
}

// Lookup reports name's value and whether it has been defined.
func (t *SymbolTable) Lookup(name string) (int64, bool) {
	v, ok := t.defined[name]
	return t.values[name], ok && v
}
