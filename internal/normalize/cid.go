package normalize

import "strings"

// MatchContentID compares a cid: reference against a stored Content-ID,
// tolerating the fact that Graph attachment Content-IDs are stored with
// angle brackets stripped while IMAP ones are stored as-received (spec §9(c)).
func MatchContentID(cidRef, stored string) bool {
	a := strings.Trim(strings.TrimSpace(cidRef), "<>")
	b := strings.Trim(strings.TrimSpace(stored), "<>")
	return a != "" && strings.EqualFold(a, b)
}
