package normalize

import "strings"

// CleanText strips NUL bytes and replaces C0 control characters other than
// CR, LF, TAB with a single space, leaving higher codepoints intact (spec §4.B).
// Returns the cleaned text and whether a NUL byte was found (spec §9(a): a
// trigger for preserving original bytes independent of truncation).
func CleanText(s string) (cleaned string, hadNUL bool) {
	if s == "" {
		return s, false
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 0:
			hadNUL = true
			// drop entirely
		case r == '\r' || r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20:
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), hadNUL
}
