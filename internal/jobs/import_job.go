package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mail-archiver/mail-archiver/internal/archive"
	"github.com/mail-archiver/mail-archiver/internal/importer"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

// ImportPayload is the import job's Payload shape: the uploaded mbox file on
// disk and the folder archived messages are filed under (spec §4.I).
type ImportPayload struct {
	FilePath string `json:"file_path"`
	Folder   string `json:"folder"`
}

// NewImportHandler streams an uploaded mbox file through the Importer,
// cleaning up the uploaded file once the job reaches a terminal state.
func NewImportHandler(gateway *store.Gateway, writer *archive.Writer) Handler {
	return func(ctx context.Context, job *models.Job, cancel provider.CancelToken, report func(models.JobProgress)) (string, error) {
		if job.AccountID == nil {
			return "", fmt.Errorf("import job: missing account id")
		}

		var payload ImportPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return "", fmt.Errorf("import job: decode payload: %w", err)
		}
		if payload.FilePath == "" {
			return "", fmt.Errorf("import job: missing file path")
		}
		defer os.Remove(payload.FilePath)
		folder := payload.Folder
		if folder == "" {
			folder = "Import"
		}

		account, err := gateway.FindAccount(ctx, *job.AccountID)
		if err != nil {
			return "", fmt.Errorf("import job: load account: %w", err)
		}

		f, err := os.Open(payload.FilePath)
		if err != nil {
			return "", fmt.Errorf("import job: open upload: %w", err)
		}
		defer f.Close()

		if _, err := importer.Stream(ctx, f, account.ID, account.Email, folder, writer, cancel, report); err != nil {
			return "", err
		}
		return "", nil
	}
}
