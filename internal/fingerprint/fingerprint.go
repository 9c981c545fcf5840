// Package fingerprint derives the stable Message Fingerprint used for dedup (spec §3).
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Of returns the Message Fingerprint for a message. If messageID is a usable
// Message-ID header value (bracketed or not), it's used verbatim, normalized
// to its unbracketed form for storage. Otherwise a deterministic hash of
// from|to|subject|sentDate is emitted.
func Of(messageID, from, to, subject string, sentDate time.Time) string {
	if id := Normalize(messageID); id != "" {
		return id
	}
	return generated(from, to, subject, sentDate)
}

// Normalize strips the surrounding angle brackets from a Message-ID header
// value, if present, and trims whitespace. Returns "" if nothing usable remains.
func Normalize(messageID string) string {
	id := strings.TrimSpace(messageID)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	id = strings.TrimSpace(id)
	return id
}

// Bracketed returns the bracketed form of a Message-ID, e.g. "a@x" -> "<a@x>".
func Bracketed(messageID string) string {
	id := Normalize(messageID)
	if id == "" {
		return ""
	}
	return "<" + id + ">"
}

// Variants returns both the bracketed and unbracketed forms of a Message-ID,
// for lookups against providers that store one form or the other (spec §4.D retention delete).
func Variants(messageID string) []string {
	id := Normalize(messageID)
	if id == "" {
		return nil
	}
	return []string{id, "<" + id + ">"}
}

func generated(from, to, subject string, sentDate time.Time) string {
	payload := fmt.Sprintf("%s|%s|%s|%d", from, to, subject, sentDate.UnixNano())
	sum := sha256.Sum256([]byte(payload))
	encoded := base64.URLEncoding.EncodeToString(sum[:])
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return fmt.Sprintf("generated-%s@mail-archiver.local", encoded)
}

// SecondaryMatch reports whether two messages should be treated as the same
// message via the secondary dedup predicate: same from/to/subject and sent
// dates within ±2 seconds (spec §3 — catches providers that re-mint Message-IDs).
func SecondaryMatch(fromA, toA, subjectA string, sentA time.Time, fromB, toB, subjectB string, sentB time.Time) bool {
	if fromA != fromB || toA != toB || subjectA != subjectB {
		return false
	}
	delta := sentA.Sub(sentB)
	if delta < 0 {
		delta = -delta
	}
	return delta <= 2*time.Second
}
