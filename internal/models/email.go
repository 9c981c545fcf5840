package models

import "time"

// Direction distinguishes a message the account received from one it sent.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Per-field search-index size caps (spec §4.B). A GIN tsvector index has a
// practical ~1 MiB per-row ceiling; these caps keep every row comfortably under it.
const (
	MaxSubjectBytes = 50 * 1024
	MaxFromBytes    = 10 * 1024
	MaxToBytes      = 50 * 1024
	MaxCcBytes      = 50 * 1024
	MaxBccBytes     = 50 * 1024
	MaxPlainBytes   = 500 * 1024
	MaxHTMLBytes    = 1024 * 1024
	MaxRawHeaders   = 100 * 1024

	// MaxSearchableTotalBytes is the final safety-net budget across the six
	// searchable text fields (subject/body/from/to/cc/bcc).
	MaxSearchableTotalBytes = 900 * 1024

	TruncationMarker     = "\n\n[... content truncated ...]"
	TruncationMarkerHTML = `<div style="color:#888;font-style:italic;border-top:1px dashed #ccc;margin-top:1em;padding-top:0.5em;">[content truncated]</div>`
)

// ArchivedEmail is one archived message bound to exactly one MailAccount.
type ArchivedEmail struct {
	ID                string `gorm:"primaryKey" json:"id"`
	MailAccountID     string `gorm:"index:idx_account_sent;uniqueIndex:idx_account_fingerprint" json:"mail_account_id"`
	MessageFingerprint string `gorm:"column:message_id;uniqueIndex:idx_account_fingerprint" json:"message_fingerprint"`

	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Cc      string `json:"cc"`
	Bcc     string `json:"bcc"`

	SentDate     time.Time `gorm:"index:idx_account_sent" json:"sent_date"`
	ReceivedDate time.Time `json:"received_date"`

	Direction       Direction `json:"direction"`
	HasAttachments  bool      `json:"has_attachments"`
	FolderName      string    `gorm:"index" json:"folder_name"`
	IsLocked        bool      `json:"is_locked"`

	Body     string `gorm:"column:body" json:"body"`
	HTMLBody string `json:"html_body"`

	// OriginalPlainBytes/OriginalHTMLBytes are populated whenever the
	// corresponding field was truncated OR contained a stripped NUL byte
	// (spec §9 open question (a); both triggers, no legacy duplicate columns per (b)).
	OriginalPlainBytes []byte `json:"-"`
	OriginalHTMLBytes  []byte `json:"-"`

	RawHeaders string `json:"raw_headers,omitempty"`

	Attachments []EmailAttachment `gorm:"constraint:OnDelete:CASCADE" json:"attachments,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ArchivedEmail) TableName() string { return "archived_emails" }

// SearchableTotalBytes sums the six text fields the full-text index covers.
func (e *ArchivedEmail) SearchableTotalBytes() int {
	return len(e.Subject) + len(e.Body) + len(e.From) + len(e.To) + len(e.Cc) + len(e.Bcc)
}

// EmailAttachment is bytes attached to exactly one ArchivedEmail.
type EmailAttachment struct {
	ID              string `gorm:"primaryKey" json:"id"`
	ArchivedEmailID string `gorm:"index" json:"archived_email_id"`

	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`

	// ContentID is present iff this is an inline part (cid: reference target).
	// Graph attachment ContentIDs are stored bracket-stripped; IMAP ones as-received (spec §9(c)).
	ContentID string `json:"content_id,omitempty"`

	Content []byte `json:"-"`
	Size    int64  `json:"size"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (EmailAttachment) TableName() string { return "email_attachments" }

// IsInline reports whether this attachment carries a Content-ID.
func (a *EmailAttachment) IsInline() bool {
	return a.ContentID != ""
}
