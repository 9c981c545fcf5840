// Package search implements the Search Service (spec §4.H): a small query
// language (free terms, quoted phrases, field-scoped terms/phrases) compiled
// into parameterized SQL — a tsquery/GIN hit for bare words, case-insensitive
// POSITION-style predicates for phrases and field scoping, with a fallback
// that matches bare words by ILIKE instead of tsquery if the optimized query
// fails for any reason.
package search

import "strings"

// TermKind distinguishes the four token shapes the query language recognizes.
type TermKind int

const (
	KindWord TermKind = iota
	KindPhrase
	KindFieldWord
	KindFieldPhrase
)

// AllowedFields are the scopable fields for field:term / field:"phrase" tokens.
var AllowedFields = map[string]string{
	"subject": "subject",
	"body":    "body",
	"from":    `"from"`,
	"to":      `"to"`,
}

// Term is one parsed token of the query language.
type Term struct {
	Kind  TermKind
	Field string // column name, only for KindFieldWord/KindFieldPhrase
	Value string
}

// Parse tokenizes a query string into Terms. Multiple tokens combine as AND
// (spec §4.H). Unknown "field:" prefixes that aren't in AllowedFields are
// treated as bare words (the whole "field:term" string, literally).
func Parse(input string) []Term {
	var terms []Term
	runes := []rune(strings.TrimSpace(input))
	i := 0
	n := len(runes)

	for i < n {
		for i < n && runes[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}

		if runes[i] == '"' {
			j := i + 1
			for j < n && runes[j] != '"' {
				j++
			}
			phrase := string(runes[i+1 : min(j, n)])
			if phrase != "" {
				terms = append(terms, Term{Kind: KindPhrase, Value: phrase})
			}
			i = j + 1
			continue
		}

		j := i
		for j < n && runes[j] != ' ' {
			j++
		}
		token := string(runes[i:j])
		i = j

		if colon := strings.IndexByte(token, ':'); colon > 0 {
			fieldName := strings.ToLower(token[:colon])
			rest := token[colon+1:]
			if col, ok := AllowedFields[fieldName]; ok {
				if strings.HasPrefix(rest, `"`) {
					// field:"phrase with spaces" — re-scan for the closing quote
					// across the remaining token stream.
					phraseRunes := []rune(rest[1:])
					k := i
					closed := strings.HasSuffix(rest, `"`) && len(rest) > 1
					for !closed && k < n {
						for k < n && runes[k] != ' ' {
							phraseRunes = append(phraseRunes, runes[k])
							k++
						}
						if len(phraseRunes) > 0 && phraseRunes[len(phraseRunes)-1] == '"' {
							closed = true
							break
						}
						if k < n {
							phraseRunes = append(phraseRunes, ' ')
							k++
						}
					}
					i = k
					phrase := strings.TrimSuffix(string(phraseRunes), `"`)
					if phrase != "" {
						terms = append(terms, Term{Kind: KindFieldPhrase, Field: col, Value: phrase})
					}
					continue
				}
				if rest != "" {
					terms = append(terms, Term{Kind: KindFieldWord, Field: col, Value: rest})
				}
				continue
			}
		}

		terms = append(terms, Term{Kind: KindWord, Value: token})
	}

	return terms
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
