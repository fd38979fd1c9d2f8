package dialect

import "fmt"

// Suffix is an eZ80 mnemonic suffix (`.IL`, `.SIS`, ...) selecting a
// per-instruction address/data length override.
type Suffix string

const (
	SuffixIL  Suffix = "IL"
	SuffixIS  Suffix = "IS"
	SuffixL   Suffix = "L"
	SuffixLIL Suffix = "LIL"
	SuffixLIS Suffix = "LIS"
	SuffixS   Suffix = "S"
	SuffixSIL Suffix = "SIL"
	SuffixSIS Suffix = "SIS"
)

var validSuffixes = map[Suffix]bool{
	SuffixIL: true, SuffixIS: true, SuffixL: true, SuffixLIL: true,
	SuffixLIS: true, SuffixS: true, SuffixSIL: true, SuffixSIS: true,
}

// ParseSuffix validates a suffix token (without the leading '.').
func ParseSuffix(tok string) (Suffix, bool) {
	s := Suffix(tok)
	return s, validSuffixes[s]
}

// overridePrefix is the one-byte ADL/Z80 mode-override opcode for each
// concrete (address-long, immediate-long) combination. Values match the
// eZ80's documented eZ80/ADL mode-change prefixes.
var overridePrefix = map[[2]bool]byte{
	{false, false}: 0x40, // SIS: short address, short immediate
	{true, false}:  0x49, // LIS: long address, short immediate
	{false, true}:  0x52, // SIL: short address, long immediate
	{true, true}:   0x5B, // LIL: long address, long immediate
}

// ApplySuffix resolves a suffix against the current CPUMode, updates
// InstMode and returns the single mode-override prefix byte to emit before
// the instruction's own opcode bytes, per md_assemble step 4. Axes left
// unspecified by a partial suffix (.L, .S, .IL, .IS) keep the processor's
// current cpu_mode for that axis.
func (s *State) ApplySuffix(suffix Suffix) (byte, error) {
	if !validSuffixes[suffix] {
		return 0, fmt.Errorf("invalid eZ80 instruction suffix %q", suffix)
	}

	curLong := s.CPUMode == 1
	addrLong, immLong := curLong, curLong

	switch suffix {
	case SuffixL:
		addrLong, immLong = true, true
	case SuffixS:
		addrLong, immLong = false, false
	case SuffixIL:
		immLong = true
	case SuffixIS:
		immLong = false
	case SuffixLIL:
		addrLong, immLong = true, true
	case SuffixLIS:
		addrLong, immLong = true, false
	case SuffixSIL:
		addrLong, immLong = false, true
	case SuffixSIS:
		addrLong, immLong = false, false
	}

	s.InstMode = InstModeForced
	if addrLong {
		s.InstMode |= InstModeInsnLong
	}
	if immLong {
		s.InstMode |= InstModeDataLong
	}

	return overridePrefix[[2]bool{addrLong, immLong}], nil
}
