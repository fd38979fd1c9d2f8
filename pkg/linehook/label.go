package linehook

// isLabelStart/isLabelPart mirror pkg/expr's identifier character set (kept
// independent rather than exported from pkg/expr, since a label's charset
// and an expression identifier's charset are allowed to diverge — sdcc's
// numeric-local-label digits being the one place they actually do).
func isLabelStart(b byte) bool {
	return b == '_' || b == '.' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isLabelPart(b byte) bool {
	return isLabelStart(b) || (b >= '0' && b <= '9')
}

// splitLabel recognizes a label at the front of raw, an UNTRIMMED source
// line: column position matters for the colonless-label form, so the caller
// must pass the line before any leading-whitespace stripping.
//
// Forms recognized:
//   - "name:" or "name::" (sdcc's declaration-qualifier double colon)
//   - a leading sdcc numeric local label, "00105$:"
//   - a bare "name" at column 0 followed by whitespace, when colonless
//     labels are enabled (§4.8)
func splitLabel(raw string, colonless bool) (name string, rest string, ok bool) {
	if raw == "" || raw[0] == ' ' || raw[0] == '\t' {
		return "", raw, false
	}

	i := 0
	if raw[0] >= '0' && raw[0] <= '9' {
		// sdcc numeric local label: digits then '$'
		for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(raw) || raw[i] != '$' {
			return "", raw, false
		}
		i++
	} else if isLabelStart(raw[0]) {
		for i < len(raw) && isLabelPart(raw[i]) {
			i++
		}
	} else {
		return "", raw, false
	}

	name = raw[:i]
	if i < len(raw) && raw[i] == ':' {
		j := i + 1
		if j < len(raw) && raw[j] == ':' {
			j++ // sdcc "::" declaration qualifier, semantically identical here
		}
		return name, raw[j:], true
	}

	if colonless && i < len(raw) && (raw[i] == ' ' || raw[i] == '\t') {
		return name, raw[i:], true
	}
	if colonless && i == len(raw) {
		return name, "", true
	}
	return "", raw, false
}
