package normalize

import (
	"regexp"
	"strings"

	"github.com/mail-archiver/mail-archiver/internal/models"
)

// CappedField is the result of running a text field through the size-capping
// discipline in spec §4.B: a searchable (possibly truncated) value, and the
// original bytes when either truncation happened or the cleaned text had a
// stripped NUL byte (spec §9(a)).
type CappedField struct {
	Searchable   string
	OriginalRaw  []byte
	WasTruncated bool
}

// capPlainField word-boundary-truncates plain text fields (subject/from/to/cc/bcc/body)
// to maxBytes, appending the truncation marker, and preserves original bytes per spec §9(a).
func capPlainField(raw string, maxBytes int, marker string) CappedField {
	cleaned, hadNUL := CleanText(raw)

	if len(cleaned) <= maxBytes {
		var original []byte
		if hadNUL {
			original = []byte(raw)
		}
		return CappedField{Searchable: cleaned, OriginalRaw: original, WasTruncated: false}
	}

	truncated := truncateAtWordBoundary(cleaned, maxBytes) + marker
	return CappedField{Searchable: truncated, OriginalRaw: []byte(raw), WasTruncated: true}
}

func truncateAtWordBoundary(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := s[:maxBytes]
	if idx := strings.LastIndexAny(cut, " \t\n\r"); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}

var imgTagRegex = regexp.MustCompile(`(?is)<img\b[^>]*>`)

// capHTMLBody truncates an HTML body at a safe tag boundary, never splitting
// an <img src="cid:..."> reference (pulling the cut point back to before a
// straddling <img> tag when possible), appends a visible truncation notice,
// and closes </body></html>. Spec §4.B / §8 boundary case.
func capHTMLBody(raw string) CappedField {
	cleaned, hadNUL := CleanText(raw)

	if len(cleaned) <= models.MaxHTMLBytes {
		var original []byte
		if hadNUL {
			original = []byte(raw)
		}
		return CappedField{Searchable: cleaned, OriginalRaw: original, WasTruncated: false}
	}

	cut := models.MaxHTMLBytes

	// Pull the cut point back before any <img ...> tag whose span straddles it.
	for _, loc := range imgTagRegex.FindAllStringIndex(cleaned[:min(len(cleaned), cut+4096)], -1) {
		start, end := loc[0], loc[1]
		if start < cut && cut < end {
			cut = start
			break
		}
	}
	if cut > len(cleaned) {
		cut = len(cleaned)
	}

	body := cleaned[:cut]
	body = closeSafeTagBoundary(body)
	body += TruncationMarkerHTML()
	body += "</body></html>"

	return CappedField{Searchable: body, OriginalRaw: []byte(raw), WasTruncated: true}
}

// closeSafeTagBoundary avoids leaving a truncated partial tag like "<div cla"
// dangling: if the cut point lands inside an unterminated "<...", back up to
// before that "<".
func closeSafeTagBoundary(s string) string {
	lastOpen := strings.LastIndexByte(s, '<')
	lastClose := strings.LastIndexByte(s, '>')
	if lastOpen > lastClose {
		return s[:lastOpen]
	}
	return s
}

func TruncationMarkerHTML() string { return models.TruncationMarkerHTML }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// FinalSafetyPass recomputes total bytes across the six searchable fields and
// further shrinks the body if the sum would still exceed ~900KiB (spec §4.B).
func FinalSafetyPass(e *models.ArchivedEmail) {
	total := e.SearchableTotalBytes()
	if total <= models.MaxSearchableTotalBytes {
		return
	}
	overBy := total - models.MaxSearchableTotalBytes
	newLen := len(e.Body) - overBy
	if newLen < 0 {
		newLen = 0
	}
	if newLen < len(e.Body) {
		if e.OriginalPlainBytes == nil {
			e.OriginalPlainBytes = []byte(e.Body)
		}
		e.Body = truncateAtWordBoundary(e.Body, newLen) + models.TruncationMarker
	}
}
