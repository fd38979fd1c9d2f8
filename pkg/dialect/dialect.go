// Package dialect tracks which Z80-family CPU and optional instruction
// classes are active for the current assembly, and answers whether a given
// instruction class is legal, undocumented-but-accepted, or an error.
package dialect

import (
	"fmt"
	"strings"
)

// Class is a bitmask identifying either a CPU (low 8 bits, one-hot) or an
// optional instruction feature (remaining bits). Mnemonic table entries and
// individual encoders gate on a Class the same way the original ins_ok/
// ins_err fields do; CPU selection itself is exposed separately as an enum
// via State.CPU for readability, but the mask algebra below is what
// check_mach/wrong_mach actually operate on.
type Class uint32

// CPU classes, one-hot so exactly one can be tested/set at a time.
const (
	ClassZ80 Class = 1 << iota
	ClassR800
	ClassGBZ80
	ClassZ180
	ClassEZ80
	ClassZ80N

	cpuClassCount = 6
)

// cpuClassMask covers every CPU bit; used to strip/extract the CPU from a
// combined ins_ok/ins_err mask.
const cpuClassMask Class = (1 << cpuClassCount) - 1

// Optional feature classes (the high bits of the original ins_ok/ins_err).
const (
	ClassIdxHalves Class = 1 << (8 + iota) // IXH/IXL/IYH/IYL undocumented halves
	ClassInFC                              // IN F,(C)
	ClassOutC0                             // OUT (C),0
	ClassSli                               // SLI/SLL undocumented shift
	ClassOpIIStore                         // undocumented (II+d),r rotate-with-store
	ClassUndocumented                      // generic undocumented bucket (CPU-default gated instructions)
	ClassUnportable                        // generic unportable bucket
)

// CPU names the active processor.
type CPU uint8

const (
	Z80 CPU = iota
	R800
	GBZ80
	Z180
	EZ80
	Z80N
)

func (c CPU) String() string {
	switch c {
	case Z80:
		return "z80"
	case R800:
		return "r800"
	case GBZ80:
		return "gbz80"
	case Z180:
		return "z180"
	case EZ80:
		return "ez80"
	case Z80N:
		return "z80n"
	default:
		return "?"
	}
}

func (c CPU) classBit() Class {
	switch c {
	case Z80:
		return ClassZ80
	case R800:
		return ClassR800
	case GBZ80:
		return ClassGBZ80
	case Z180:
		return ClassZ180
	case EZ80:
		return ClassEZ80
	case Z80N:
		return ClassZ80N
	}
	return 0
}

// InstMode mirrors the per-instruction shadow of CPUMode: four orthogonal
// bits reset at the start of every Assemble call.
type InstMode uint8

const (
	InstModeDataLong InstMode = 1 << iota
	InstModeInsnLong
	InstModeForced
	// InstModeSuffixIL etc. are derived from the requested suffix rather
	// than stored as separate bits; InstModeForced records only that a
	// suffix changed the mode for this one instruction.
	instModeReserved
)

// Severity classifies a diagnostic produced by check_mach/wrong_mach.
type Severity int

const (
	Silent Severity = iota
	Warning
	Error
)

// State is the process-wide (here: per-Assembler) dialect configuration.
// Bundled into one struct and threaded explicitly, per the "global mutable
// state -> explicit config" design note: no package-level singletons.
type State struct {
	InsOK  Class // classes accepted silently
	InsErr Class // classes that are a hard error when used

	CPUMode  int // 0 = Z80 (16-bit), 1 = eZ80 ADL (24-bit)
	InstMode InstMode

	SDCCCompat       bool
	ColonlessLabels  bool
	LocalLabelPrefix string

	FloatFormatSingle string // half, single, double, zeda32, math48
	FloatFormatDouble string
}

// New returns the default dialect: -march=z80+xyhl+infc.
func New() *State {
	s := &State{
		FloatFormatSingle: "single",
		FloatFormatDouble: "double",
	}
	// default matches the documented CLI default exactly
	if err := s.SetMarch("z80+xyhl+infc"); err != nil {
		panic(err) // the default spelling must always be valid
	}
	return s
}

// CPU returns the single active CPU, derived from InsOK's CPU bit.
func (s *State) CPU() CPU {
	switch {
	case s.InsOK&ClassZ80 != 0:
		return Z80
	case s.InsOK&ClassR800 != 0:
		return R800
	case s.InsOK&ClassGBZ80 != 0:
		return GBZ80
	case s.InsOK&ClassZ180 != 0:
		return Z180
	case s.InsOK&ClassEZ80 != 0:
		return EZ80
	case s.InsOK&ClassZ80N != 0:
		return Z80N
	}
	return Z80
}

var extByName = map[string]Class{
	"xyhl":  ClassIdxHalves,
	"infc":  ClassInFC,
	"outc0": ClassOutC0,
	"sli":   ClassSli,
	"xdcb":  ClassOpIIStore,
	// "full" is handled specially below: it ORs every feature in at once.
}

var cpuByName = map[string]CPU{
	"z80":   Z80,
	"r800":  R800,
	"gbz80": GBZ80,
	"z180":  Z180,
	"ez80":  EZ80,
	"z80n":  Z80N,
}

// featureUniverse is every feature class, used by the "full" pseudo-extension.
var featureUniverse = ClassIdxHalves | ClassInFC | ClassOutC0 | ClassSli | ClassOpIIStore

// SetMarch implements `-march=cpu[{+|-}ext...]`. Unknown CPU or extension
// names fail fatally (returned as an error here rather than terminating the
// process, since this module is a library). The CPU name replaces the
// previous CPU and optional-extension classes; the {+|-}ext tokens then apply
// on top of that CPU's bare instruction set.
func (s *State) SetMarch(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("invalid CPU/EXTENSION: empty -march value")
	}

	// Split "cpu" from the sequence of {+|-}ext tokens.
	cpuName := spec
	rest := ""
	for i, r := range spec {
		if r == '+' || r == '-' {
			cpuName = spec[:i]
			rest = spec[i:]
			break
		}
	}

	cpu, ok := cpuByName[strings.ToLower(cpuName)]
	if !ok {
		return fmt.Errorf("invalid CPU/EXTENSION: unknown CPU %q", cpuName)
	}

	s.InsOK = (s.InsOK &^ (cpuClassMask | featureUniverse)) | cpu.classBit()
	s.InsErr &^= cpuClassMask | featureUniverse

	for len(rest) > 0 {
		sign := rest[0]
		rest = rest[1:]
		end := strings.IndexAny(rest, "+-")
		var tok string
		if end < 0 {
			tok = rest
			rest = ""
		} else {
			tok = rest[:end]
			rest = rest[end:]
		}
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			return fmt.Errorf("invalid CPU/EXTENSION: empty extension token")
		}

		if tok == "adl" {
			if sign == '-' {
				s.CPUMode = 0
			} else {
				s.CPUMode = 1
			}
			continue
		}

		var bits Class
		if tok == "full" {
			bits = featureUniverse
		} else {
			b, ok := extByName[tok]
			if !ok {
				return fmt.Errorf("invalid CPU/EXTENSION: unknown extension %q", tok)
			}
			bits = b
		}

		if sign == '+' {
			s.InsOK |= bits
			s.InsErr &^= bits
		} else {
			s.InsOK &^= bits
			s.InsErr |= bits
		}
	}
	return nil
}

// instByName maps --with-inst/--without-inst switch names to feature classes.
var instByName = map[string]Class{
	"idx-reg-halves": ClassIdxHalves,
	"sli":            ClassSli,
	"op-ii-ld":       ClassOpIIStore,
	"in-f-c":         ClassInFC,
	"out-c-0":        ClassOutC0,
}

// WithInst implements `--with-inst=list`. A no-op on GBZ80, as the class
// toggle switches never apply to that CPU.
func (s *State) WithInst(list string) error {
	if s.CPU() == GBZ80 {
		return nil
	}
	for _, name := range splitList(list) {
		bit, ok := instByName[name]
		if !ok {
			return fmt.Errorf("Invalid INST in command line: %q", name)
		}
		s.InsOK |= bit
		s.InsErr &^= bit
	}
	return nil
}

// WithoutInst implements `--without-inst=list`.
func (s *State) WithoutInst(list string) error {
	if s.CPU() == GBZ80 {
		return nil
	}
	for _, name := range splitList(list) {
		bit, ok := instByName[name]
		if !ok {
			return fmt.Errorf("Invalid INST in command line: %q", name)
		}
		s.InsOK &^= bit
		s.InsErr |= bit
	}
	return nil
}

func splitList(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetUndocumented implements -Wud (warn, the default) / -Fud (forbid).
func (s *State) SetUndocumented(forbid bool) {
	if forbid {
		s.InsOK &^= ClassUndocumented
		s.InsErr |= ClassUndocumented
	} else {
		s.InsErr &^= ClassUndocumented
	}
}

// SetUnportable implements -Wup (warn, the default) / -Fup (forbid).
func (s *State) SetUnportable(forbid bool) {
	if forbid {
		s.InsOK &^= ClassUnportable
		s.InsErr |= ClassUnportable
	} else {
		s.InsErr &^= ClassUnportable
	}
}

// CheckMach implements check_mach(class): silent if accepted, a warning if
// neither accepted nor rejected, an error if rejected.
func (s *State) CheckMach(class Class) (Severity, string) {
	if s.InsOK&class == class {
		return Silent, ""
	}
	if s.InsErr&class != 0 {
		return Error, "illegal operand"
	}
	return Warning, "undocumented instruction"
}

// WrongMach is check_mach invoked when the opcode form itself (not just an
// optional extension) is dialect-gated; it uses the same decision table and
// the same "illegal operand" message as CheckMach.
func (s *State) WrongMach(class Class) (Severity, string) {
	sev, msg := s.CheckMach(class)
	if sev == Error {
		return Error, "illegal operand"
	}
	return sev, msg
}

// ResetInstMode reinitializes the per-instruction mode shadow from CPUMode,
// as md_assemble does at the start of every line.
func (s *State) ResetInstMode() {
	s.InstMode = 0
	if s.CPUMode == 1 {
		s.InstMode = InstModeDataLong | InstModeInsnLong
	}
}

// LongData reports whether the current instruction uses 24-bit data width.
func (s *State) LongData() bool { return s.InstMode&InstModeDataLong != 0 }

// LongInsn reports whether the current instruction uses 24-bit address width.
func (s *State) LongInsn() bool { return s.InstMode&InstModeInsnLong != 0 }
