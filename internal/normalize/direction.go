package normalize

import "strings"

// DetectDirection implements spec §4.B: outgoing iff from equals the account
// email (case-insensitive), OR the folder is a recognized "sent" folder AND
// not also a "drafts" folder.
func DetectDirection(from, folder, accountEmail string) (outgoing bool) {
	if strings.EqualFold(extractAddr(from), extractAddr(accountEmail)) {
		return true
	}
	if IsSentFolder(folder) && !IsDraftsFolder(folder) {
		return true
	}
	return false
}

// extractAddr pulls a bare email address out of a "Name <addr>" or bare addr string.
func extractAddr(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '<'); i >= 0 {
		if j := strings.IndexByte(s[i:], '>'); j >= 0 {
			return strings.TrimSpace(s[i+1 : i+j])
		}
	}
	return s
}
