package normalize

import (
	"bufio"
	"regexp"
	"strings"
	"time"
)

// trailingZoneComment strips a trailing "(ZONE)" comment, e.g. "... +0000 (UTC)".
var trailingZoneComment = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// dateLayouts is a fixed list of RFC-2822-shaped formats tried before a permissive fallback.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses a free-form date header value, stripping a trailing zone
// comment and trying a fixed list of RFC-2822-shaped layouts before a
// permissive fallback. Returns ok=false if nothing parses.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = trailingZoneComment.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Permissive fallback: mail.ParseDate-equivalent via net/mail is tried by
	// callers that have a full header set; here we only have a bare string,
	// so attempt a last loose parse tolerating extra whitespace collapse.
	collapsed := strings.Join(strings.Fields(s), " ")
	if collapsed != s {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, collapsed); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ExtractSentDate implements spec §4.B date extraction: prefer Date, else
// scan Received headers oldest-to-newest for a parseable timestamp, else
// Resent-Date, else the MinValue sentinel.
func ExtractSentDate(dateHeader string, receivedHeaders []string, resentDateHeader string) (time.Time, bool) {
	if t, ok := ParseDate(dateHeader); ok {
		return t, true
	}

	// Received headers are typically ordered newest-first as prepended by
	// each hop; scan from the end (oldest) forward.
	for i := len(receivedHeaders) - 1; i >= 0; i-- {
		if t, ok := parseReceivedTimestamp(receivedHeaders[i]); ok {
			return t, true
		}
	}

	if t, ok := ParseDate(resentDateHeader); ok {
		return t, true
	}

	return time.Time{}, false
}

// parseReceivedTimestamp extracts the timestamp after the trailing ';' in a
// Received header, e.g. "from a by b; Mon, 2 Jan 2006 15:04:05 +0000".
func parseReceivedTimestamp(received string) (time.Time, bool) {
	idx := strings.LastIndex(received, ";")
	if idx < 0 {
		return ParseDate(received)
	}
	return ParseDate(received[idx+1:])
}

// SplitHeaderLines splits a raw multi-line header blob (as produced by
// folding multiple "Received:" headers together) back into individual values.
func SplitHeaderLines(blob string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(blob))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var cur strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			cur.WriteString(" ")
			cur.WriteString(strings.TrimSpace(line))
			continue
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
