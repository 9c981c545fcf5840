package normalize

import (
	"bytes"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/mail-archiver/mail-archiver/internal/fingerprint"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// Draft is a normalized message plus its attachments, ready for the Archive
// Writer (spec §4.B output). It deliberately has no AccountID/ID yet — those
// are assigned by the caller once the fingerprint-based dedup lookup has run.
type Draft struct {
	Fingerprint string

	Subject string
	From    string
	To      string
	Cc      string
	Bcc     string

	SentDate     time.Time
	ReceivedDate time.Time
	Direction    models.Direction

	FolderName string
	RawHeaders string

	Body     string
	HTMLBody string

	OriginalPlainBytes []byte
	OriginalHTMLBytes  []byte

	Attachments []provider.Attachment
}

// FromMIME parses a raw MIME message (the IMAP path) and produces a Draft per
// spec §4.B: text cleaning, date extraction, raw-header capture, body
// selection, attachment collection, direction, and the full capping discipline.
func FromMIME(raw []byte, folder, accountEmail string, receivedAt time.Time) (*Draft, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, provider.Wrap(provider.KindPermanentPerMessage, err)
	}

	header := mr.Header

	subject, _ := header.Subject()
	from := joinAddresses(header, "From")
	to := joinAddresses(header, "To")
	cc := joinAddresses(header, "Cc")
	bcc := joinAddresses(header, "Bcc")
	messageID, _ := header.MessageID()

	dateHeader := header.Get("Date")
	resentDate := header.Get("Resent-Date")
	received := SplitHeaderLines(strings.Join(header.Values("Received"), "\n"))

	sentDate, ok := ExtractSentDate(dateHeader, received, resentDate)
	if !ok {
		sentDate = time.Time{} // MinValue sentinel
	}

	atts, plainBody, htmlBody := walkMIMEAttachments(mr)
	if plainBody == "" && htmlBody != "" {
		plainBody = stripTags(htmlBody)
	}

	d := &Draft{
		Fingerprint:  fingerprint.Of(messageID, from, to, subject, sentDate),
		Subject:      subject,
		From:         from,
		To:           to,
		Cc:           cc,
		Bcc:          bcc,
		SentDate:     sentDate,
		ReceivedDate: receivedAt,
		FolderName:   folder,
		RawHeaders:   captureRawHeaders(raw),
		Body:         plainBody,
		HTMLBody:     htmlBody,
		Attachments:  atts,
	}
	d.Direction = directionOf(from, folder, accountEmail)
	return d, nil
}

// FromFields builds a Draft directly from an already-structured provider
// message (the Graph path, where fields/attachments arrive as JSON rather
// than a MIME byte stream).
func FromFields(msg *provider.Message, accountEmail string) *Draft {
	plainBody := msg.PlainBody
	if plainBody == "" && msg.HTMLBody != "" {
		plainBody = stripTags(msg.HTMLBody)
	}

	sentDate := msg.Date
	d := &Draft{
		Fingerprint:  fingerprint.Of(msg.MessageIDHeader, msg.From, msg.To, msg.Subject, sentDate),
		Subject:      msg.Subject,
		From:         msg.From,
		To:           msg.To,
		Cc:           msg.Cc,
		Bcc:          msg.Bcc,
		SentDate:     sentDate,
		ReceivedDate: msg.ReceivedDate,
		FolderName:   msg.Folder,
		Body:         plainBody,
		HTMLBody:     msg.HTMLBody,
		Attachments:  msg.Attachments,
	}
	d.Direction = directionOf(msg.From, msg.Folder, accountEmail)
	return d
}

func directionOf(from, folder, accountEmail string) models.Direction {
	if DetectDirection(from, folder, accountEmail) {
		return models.DirectionOutgoing
	}
	return models.DirectionIncoming
}

// ToArchivedEmail applies the full §4.B capping discipline and returns a
// ready-to-persist ArchivedEmail (without ID/AccountID, set by the Archive Writer)
// plus draft EmailAttachment rows.
func (d *Draft) ToArchivedEmail() (*models.ArchivedEmail, []models.EmailAttachment) {
	subjectCap := capPlainField(d.Subject, models.MaxSubjectBytes, models.TruncationMarker)
	fromCap := capPlainField(d.From, models.MaxFromBytes, models.TruncationMarker)
	toCap := capPlainField(d.To, models.MaxToBytes, models.TruncationMarker)
	ccCap := capPlainField(d.Cc, models.MaxCcBytes, models.TruncationMarker)
	bccCap := capPlainField(d.Bcc, models.MaxBccBytes, models.TruncationMarker)
	bodyCap := capPlainField(d.Body, models.MaxPlainBytes, models.TruncationMarker)
	htmlCap := capHTMLBody(d.HTMLBody)

	rawHeaders := d.RawHeaders
	if len(rawHeaders) > models.MaxRawHeaders {
		rawHeaders = rawHeaders[:models.MaxRawHeaders] + "\n[... headers truncated ...]"
	}

	e := &models.ArchivedEmail{
		MessageFingerprint: d.Fingerprint,
		Subject:            subjectCap.Searchable,
		From:               fromCap.Searchable,
		To:                 toCap.Searchable,
		Cc:                 ccCap.Searchable,
		Bcc:                bccCap.Searchable,
		SentDate:           d.SentDate,
		ReceivedDate:       d.ReceivedDate,
		Direction:          d.Direction,
		FolderName:         d.FolderName,
		Body:               bodyCap.Searchable,
		HTMLBody:           htmlCap.Searchable,
		RawHeaders:         rawHeaders,
	}

	if bodyCap.WasTruncated || bodyCap.OriginalRaw != nil {
		e.OriginalPlainBytes = bodyCap.OriginalRaw
	}
	if htmlCap.WasTruncated || htmlCap.OriginalRaw != nil {
		e.OriginalHTMLBytes = htmlCap.OriginalRaw
	}

	FinalSafetyPass(e)

	atts := make([]models.EmailAttachment, 0, len(d.Attachments))
	hasAttachments := false
	for _, a := range d.Attachments {
		atts = append(atts, models.EmailAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
			Content:     a.Content,
			Size:        int64(len(a.Content)),
		})
		hasAttachments = true
	}
	e.HasAttachments = hasAttachments

	return e, atts
}

func joinAddresses(header mail.Header, field string) string {
	addrs, err := header.AddressList(field)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.Address)
	}
	return strings.Join(parts, ", ")
}

// captureRawHeaders joins every header "Name: Value" verbatim up to the first
// blank line (end of headers), matching spec §4.B's raw-header capture.
func captureRawHeaders(raw []byte) string {
	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	sep := "\r\n\r\n"
	if idx < 0 {
		idx = bytes.Index(raw, []byte("\n\n"))
		sep = "\n\n"
	}
	if idx < 0 {
		return string(raw)
	}
	_ = sep
	return string(raw[:idx])
}

// stripTags is a minimal HTML-to-text fallback used when a message carries
// only an HTML body (spec §4.B body selection: "else derive text from html body").
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
