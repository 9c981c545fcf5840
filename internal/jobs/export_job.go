package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mail-archiver/mail-archiver/internal/export"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

// ExportPayload is the export job's Payload shape (spec §4.G: "per-account ->
// .eml-in-zip or .mbox-in-zip, and a selected-ids variant").
type ExportPayload struct {
	EmailIDs []string      `json:"email_ids,omitempty"` // empty means "whole account"
	Format   export.Format `json:"format"`
}

const exportPageSize = 500

// NewExportHandler loads the requested emails (paged, whole-account, or an
// explicit id set) and streams them into a zip artifact under artifactDir.
func NewExportHandler(gateway *store.Gateway, artifactDir string) Handler {
	return func(ctx context.Context, job *models.Job, cancel provider.CancelToken, report func(models.JobProgress)) (string, error) {
		var payload ExportPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return "", fmt.Errorf("export job: decode payload: %w", err)
		}
		format := payload.Format
		if format == "" {
			format = export.FormatEML
		}

		emails, err := loadExportEmails(ctx, gateway, job.AccountID, payload.EmailIDs, cancel, report)
		if err != nil {
			return "", err
		}

		stream, err := export.Build(emails, format, "mail-export-"+uuid.NewString())
		if err != nil {
			return "", err
		}

		if err := os.MkdirAll(artifactDir, 0o755); err != nil {
			return "", fmt.Errorf("export job: prepare artifact dir: %w", err)
		}
		path := filepath.Join(artifactDir, stream.Filename)
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("export job: create artifact: %w", err)
		}
		defer f.Close()

		if err := stream.Write(f); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("export job: write artifact: %w", err)
		}

		report(models.JobProgress{Processed: len(emails), New: len(emails)})
		return path, nil
	}
}

func loadExportEmails(ctx context.Context, gateway *store.Gateway, accountID *string, ids []string, cancel provider.CancelToken, report func(models.JobProgress)) ([]models.ArchivedEmail, error) {
	if len(ids) > 0 {
		return gateway.GetEmailsByIDs(ctx, ids)
	}
	if accountID == nil {
		return nil, fmt.Errorf("export job: neither account id nor email ids given")
	}

	var all []models.ArchivedEmail
	offset := 0
	for {
		if cancel.Cancelled() {
			return nil, provider.ErrCancelled
		}
		page, err := gateway.ListEmailsByAccount(ctx, *accountID, exportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("export job: list emails: %w", err)
		}
		all = append(all, page...)
		report(models.JobProgress{Processed: len(all)})
		if len(page) < exportPageSize {
			break
		}
		offset += exportPageSize
	}
	return all, nil
}
