package search

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Filters are the optional AND-ed predicates layered on top of the parsed
// query terms (spec §4.H): date range, account scoping, direction, folder.
type Filters struct {
	From          *time.Time
	To            *time.Time // inclusive to the last second of the specified day
	AccountID     string
	AllowedAccountIDs []string // enforced server-side; empty (non-nil) means no results
	Direction     string
	Folder        string

	OrderBy  string // one of orderByWhitelist
	OrderDir string // "asc" | "desc"

	Skip int
	Take int
}

var orderByWhitelist = map[string]string{
	"sent_date":     "sent_date",
	"received_date": "received_date",
	"subject":       "subject",
	"from":          `"from"`,
	"folder_name":   "folder_name",
}

var tsqueryOperatorChars = regexp.MustCompile(`[&|!():*]`)

// sanitizeForTsquery removes tsquery operator characters so bare words can be
// joined with " & " and handed to to_tsquery safely (spec §4.H).
func sanitizeForTsquery(word string) string {
	return strings.TrimSpace(tsqueryOperatorChars.ReplaceAllString(word, ""))
}

// Built is a parameterized query ready to execute: one for the page of rows,
// one (sharing the same WHERE clause) for the total count.
type Built struct {
	RowsSQL  string
	CountSQL string
	Args     []any
}

// BuildOptimized compiles terms+filters into the primary path: a single
// to_tsquery/to_tsvector clause for bare words (hits the GIN index), plus
// POSITION(LOWER(...)) clauses for phrases and field-scoped terms.
func BuildOptimized(terms []Term, f Filters) (Built, error) {
	return build(terms, f, false)
}

// BuildFallback compiles the same terms+filters into a semantically
// equivalent query in which bare words are matched with ILIKE '%word%' over
// the six text fields instead of the tsquery clause; phrase and field-scoped
// terms keep their POSITION(LOWER(...)) predicates. Used when the optimized
// path errors for any reason (spec §4.H "Fallback").
func BuildFallback(terms []Term, f Filters) (Built, error) {
	return build(terms, f, true)
}

func build(terms []Term, f Filters, fallback bool) (Built, error) {
	if f.AllowedAccountIDs != nil && len(f.AllowedAccountIDs) == 0 {
		// Caller passed an empty allowed set: short-circuit to empty result (spec §4.H).
		return Built{
			RowsSQL:  `SELECT * FROM archived_emails WHERE 1=0`,
			CountSQL: `SELECT COUNT(*) FROM archived_emails WHERE 1=0`,
		}, nil
	}

	var where []string
	var args []any

	bareWords := make([]string, 0, len(terms))
	for _, t := range terms {
		switch t.Kind {
		case KindWord:
			if w := sanitizeForTsquery(t.Value); w != "" {
				bareWords = append(bareWords, w)
			}
		case KindPhrase:
			clause, clauseArgs := phraseClause(t.Value, fallback)
			where = append(where, clause)
			args = append(args, clauseArgs...)
		case KindFieldWord:
			clause, clauseArgs := fieldClause(t.Field, t.Value)
			where = append(where, clause)
			args = append(args, clauseArgs...)
		case KindFieldPhrase:
			clause, clauseArgs := fieldClause(t.Field, t.Value)
			where = append(where, clause)
			args = append(args, clauseArgs...)
		}
	}

	if len(bareWords) > 0 {
		if fallback {
			for _, w := range bareWords {
				where = append(where, fieldsILIKEWordClause())
				pat := "%" + w + "%"
				args = append(args, pat, pat, pat, pat, pat, pat)
			}
		} else {
			tsq := strings.Join(bareWords, " & ")
			where = append(where, `to_tsvector('simple', coalesce(subject,'') || ' ' || coalesce(body,'') || ' ' || coalesce("from",'') || ' ' || coalesce("to",'') || ' ' || coalesce(cc,'') || ' ' || coalesce(bcc,'')) @@ to_tsquery('simple', ?)`)
			args = append(args, tsq)
		}
	}

	if f.AccountID != "" {
		where = append(where, "mail_account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.AllowedAccountIDs != nil {
		placeholders := make([]string, len(f.AllowedAccountIDs))
		for i, id := range f.AllowedAccountIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("mail_account_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if f.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, f.Direction)
	}
	if f.Folder != "" {
		where = append(where, "folder_name = ?")
		args = append(args, f.Folder)
	}
	if f.From != nil {
		where = append(where, "sent_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		// inclusive to the last second of the specified day.
		endOfDay := time.Date(f.To.Year(), f.To.Month(), f.To.Day(), 23, 59, 59, 0, f.To.Location())
		where = append(where, "sent_date <= ?")
		args = append(args, endOfDay)
	}

	whereSQL := "1=1"
	if len(where) > 0 {
		whereSQL = strings.Join(where, " AND ")
	}

	orderCol, ok := orderByWhitelist[strings.ToLower(f.OrderBy)]
	if !ok {
		orderCol = "sent_date"
	}
	orderDir := "DESC"
	if strings.EqualFold(f.OrderDir, "asc") {
		orderDir = "ASC"
	}

	take := f.Take
	if take <= 0 || take > 1000 {
		take = 1000
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}

	rowsSQL := fmt.Sprintf(
		`SELECT * FROM archived_emails WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		whereSQL, orderCol, orderDir, take, skip,
	)
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM archived_emails WHERE %s`, whereSQL)

	return Built{RowsSQL: rowsSQL, CountSQL: countSQL, Args: args}, nil
}

func phraseClause(phrase string, fallback bool) (string, []any) {
	return fieldsILIKEClause(), []any{
		likeParam(phrase), likeParam(phrase), likeParam(phrase),
		likeParam(phrase), likeParam(phrase), likeParam(phrase),
	}
}

func fieldsILIKEWordClause() string {
	return `(subject ILIKE ? OR body ILIKE ? OR "from" ILIKE ? OR "to" ILIKE ? OR cc ILIKE ? OR bcc ILIKE ?)`
}

func fieldsILIKEClause() string {
	return `(POSITION(LOWER(?) IN LOWER(COALESCE(subject,''))) > 0 OR
		POSITION(LOWER(?) IN LOWER(COALESCE(body,''))) > 0 OR
		POSITION(LOWER(?) IN LOWER(COALESCE("from",''))) > 0 OR
		POSITION(LOWER(?) IN LOWER(COALESCE("to",''))) > 0 OR
		POSITION(LOWER(?) IN LOWER(COALESCE(cc,''))) > 0 OR
		POSITION(LOWER(?) IN LOWER(COALESCE(bcc,''))) > 0)`
}

func fieldClause(column, value string) (string, []any) {
	return fmt.Sprintf(`POSITION(LOWER(?) IN LOWER(COALESCE(%s,''))) > 0`, column), []any{likeParam(value)}
}

func likeParam(s string) string { return s }
