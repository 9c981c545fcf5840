package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

// RestorePayload is the restore job's Payload shape: which archived emails to
// re-append, and to which folder on the live mailbox (spec §4.G restore job).
type RestorePayload struct {
	EmailIDs []string `json:"email_ids"`
	Folder   string   `json:"folder"`
}

type restoreProgressSink struct {
	report  func(models.JobProgress)
	p       models.JobProgress
}

func (s *restoreProgressSink) OnProgress(processed, new, failed int, folder, subject string) {
	s.p.Processed = processed
	s.p.New = new
	s.p.Failed = failed
	s.p.CurrentFolder = folder
	s.p.CurrentSubject = subject
	s.report(s.p)
}

func (s *restoreProgressSink) OnDeleted(n int) {}

// NewRestoreHandler loads the selected archived emails and their attachments,
// converts them into provider.RestoreMessage, and hands them to the
// account's adapter for a shared-connection batch restore.
func NewRestoreHandler(gateway *store.Gateway, factory *provider.Factory) Handler {
	return func(ctx context.Context, job *models.Job, cancel provider.CancelToken, report func(models.JobProgress)) (string, error) {
		if job.AccountID == nil {
			return "", fmt.Errorf("restore job: missing account id")
		}

		var payload RestorePayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return "", fmt.Errorf("restore job: decode payload: %w", err)
		}
		if len(payload.EmailIDs) == 0 {
			return "", fmt.Errorf("restore job: no emails selected")
		}
		folder := payload.Folder
		if folder == "" {
			folder = "INBOX"
		}

		account, err := gateway.FindAccount(ctx, *job.AccountID)
		if err != nil {
			return "", fmt.Errorf("restore job: load account: %w", err)
		}

		emails, err := gateway.GetEmailsByIDs(ctx, payload.EmailIDs)
		if err != nil {
			return "", fmt.Errorf("restore job: load emails: %w", err)
		}

		adapter, err := factory.Build(account)
		if err != nil {
			return "", fmt.Errorf("restore job: build adapter: %w", err)
		}
		defer adapter.Close()

		msgs := make([]provider.RestoreMessage, 0, len(emails))
		for _, e := range emails {
			msgs = append(msgs, toRestoreMessage(e))
		}

		sink := &restoreProgressSink{report: report}
		if err := adapter.RestoreMany(ctx, msgs, folder, cancel, sink); err != nil {
			return "", err
		}
		return "", nil
	}
}

func toRestoreMessage(e models.ArchivedEmail) provider.RestoreMessage {
	msg := provider.RestoreMessage{
		MessageIDHeader:   e.MessageFingerprint,
		Subject:           e.Subject,
		From:              e.From,
		To:                e.To,
		Cc:                e.Cc,
		Bcc:               e.Bcc,
		SentDate:          e.SentDate,
		ReceivedDate:      e.ReceivedDate,
		PlainBody:         e.Body,
		HTMLBody:          e.HTMLBody,
		OriginalPlainBody: e.OriginalPlainBytes,
		OriginalHTMLBody:  e.OriginalHTMLBytes,
	}
	for _, a := range e.Attachments {
		msg.Attachments = append(msg.Attachments, provider.RestoreAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
			Content:     a.Content,
		})
	}
	return msg
}
