package search

import (
	"context"
	"fmt"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

type Service struct {
	gateway *store.Gateway
}

func NewService(gateway *store.Gateway) *Service {
	return &Service{gateway: gateway}
}

type Result struct {
	Rows  []models.ArchivedEmail
	Total int64
}

// Search parses input into terms, builds the optimized (tsquery + ILIKE
// predicates) SQL, executes it, and falls back to a semantically equivalent
// query that matches bare words by ILIKE instead of tsquery if the optimized
// path errors for any reason (spec §4.H).
func (s *Service) Search(ctx context.Context, input string, filters Filters) (*Result, error) {
	terms := Parse(input)

	built, err := BuildOptimized(terms, filters)
	if err != nil {
		return nil, fmt.Errorf("search: build optimized: %w", err)
	}

	result, err := s.execute(ctx, built)
	if err == nil {
		return result, nil
	}

	fallbackBuilt, ferr := BuildFallback(terms, filters)
	if ferr != nil {
		return nil, fmt.Errorf("search: build fallback: %w", ferr)
	}
	return s.execute(ctx, fallbackBuilt)
}

// emailRow mirrors the archived_emails columns selected by the query
// builder; scanned via sqlx.StructScan rather than gorm's Raw/Scan so the
// hand-written tsquery/ILIKE SQL stays on the driver the pack reaches for
// when it needs positional-arg queries GORM's builder can't express.
type emailRow struct {
	ID                 string    `db:"id"`
	MailAccountID      string    `db:"mail_account_id"`
	MessageFingerprint string    `db:"message_id"`
	Subject            string    `db:"subject"`
	From               string    `db:"from"`
	To                 string    `db:"to"`
	Cc                 string    `db:"cc"`
	Bcc                string    `db:"bcc"`
	SentDate           time.Time `db:"sent_date"`
	ReceivedDate       time.Time `db:"received_date"`
	Direction          string    `db:"direction"`
	HasAttachments     bool      `db:"has_attachments"`
	FolderName         string    `db:"folder_name"`
	IsLocked           bool      `db:"is_locked"`
	Body               string    `db:"body"`
	HTMLBody           string    `db:"html_body"`
	OriginalPlainBytes []byte    `db:"original_plain_bytes"`
	OriginalHTMLBytes  []byte    `db:"original_html_bytes"`
	RawHeaders         string    `db:"raw_headers"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r emailRow) toArchivedEmail() models.ArchivedEmail {
	return models.ArchivedEmail{
		ID:                 r.ID,
		MailAccountID:      r.MailAccountID,
		MessageFingerprint: r.MessageFingerprint,
		Subject:            r.Subject,
		From:               r.From,
		To:                 r.To,
		Cc:                 r.Cc,
		Bcc:                r.Bcc,
		SentDate:           r.SentDate,
		ReceivedDate:       r.ReceivedDate,
		Direction:          models.Direction(r.Direction),
		HasAttachments:     r.HasAttachments,
		FolderName:         r.FolderName,
		IsLocked:           r.IsLocked,
		Body:               r.Body,
		HTMLBody:           r.HTMLBody,
		OriginalPlainBytes: r.OriginalPlainBytes,
		OriginalHTMLBytes:  r.OriginalHTMLBytes,
		RawHeaders:         r.RawHeaders,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (s *Service) execute(ctx context.Context, built Built) (*Result, error) {
	db := s.gateway.SQLX()

	rowsSQL := db.Rebind(built.RowsSQL)
	rows, err := db.QueryxContext(ctx, rowsSQL, built.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ArchivedEmail
	for rows.Next() {
		var row emailRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		out = append(out, row.toArchivedEmail())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countSQL := db.Rebind(built.CountSQL)
	var total int64
	if err := db.GetContext(ctx, &total, countSQL, built.Args...); err != nil {
		return nil, err
	}

	return &Result{Rows: out, Total: total}, nil
}
