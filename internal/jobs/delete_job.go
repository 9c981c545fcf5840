package jobs

import (
	"context"
	"fmt"

	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

const deleteBatchSize = 1000

// NewAccountDeleteHandler implements the account-delete phases (spec §4.G):
// cancel any running sync for the account -> clear is_locked on all its
// emails -> count emails/attachments -> for each batch of up to 1000 email
// ids, delete that batch's attachments and then its emails -> delete the
// account row. Attachment deletion is not finished for the whole account
// before email deletion starts; the two alternate batch by batch. syncQueue
// is used to cancel a concurrently running sync job.
func NewAccountDeleteHandler(gateway *store.Gateway, syncQueue *Queue) Handler {
	return func(ctx context.Context, job *models.Job, cancel provider.CancelToken, report func(models.JobProgress)) (string, error) {
		if job.AccountID == nil {
			return "", fmt.Errorf("account delete job: missing account id")
		}
		accountID := *job.AccountID

		if err := cancelRunningSync(ctx, syncQueue, accountID); err != nil {
			return "", fmt.Errorf("account delete job: cancel running sync: %w", err)
		}

		if err := gateway.SetLockedByAccount(ctx, accountID, false); err != nil {
			return "", fmt.Errorf("account delete job: clear locks: %w", err)
		}

		emailCount, err := gateway.CountEmailsByAccount(ctx, accountID)
		if err != nil {
			return "", fmt.Errorf("account delete job: count emails: %w", err)
		}
		attachmentCount, err := gateway.CountAttachmentsByAccount(ctx, accountID)
		if err != nil {
			return "", fmt.Errorf("account delete job: count attachments: %w", err)
		}

		progress := models.JobProgress{Processed: 0, New: int(emailCount + attachmentCount)}
		report(progress)

		for {
			if cancel.Cancelled() {
				return "", provider.ErrCancelled
			}
			ids, err := gateway.AllIDsByAccount(ctx, accountID, deleteBatchSize)
			if err != nil {
				return "", fmt.Errorf("account delete job: list email ids: %w", err)
			}
			if len(ids) == 0 {
				break
			}
			n, err := gateway.BatchDeleteAttachmentsByEmailIDs(ctx, ids)
			if err != nil {
				return "", fmt.Errorf("account delete job: delete attachments: %w", err)
			}
			progress.Processed += int(n)
			report(progress)

			n, err = gateway.BatchDeleteEmailsByIDs(ctx, ids)
			if err != nil {
				return "", fmt.Errorf("account delete job: delete emails: %w", err)
			}
			progress.Processed += int(n)
			report(progress)

			if len(ids) < deleteBatchSize {
				break
			}
		}

		if err := gateway.DeleteAccount(ctx, accountID); err != nil {
			return "", fmt.Errorf("account delete job: delete account row: %w", err)
		}
		return "", nil
	}
}

// cancelRunningSync asks the sync queue to cancel the given account's
// currently running (or queued) sync job, if any.
func cancelRunningSync(ctx context.Context, syncQueue *Queue, accountID string) error {
	active, err := syncQueue.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, job := range active {
		if job.AccountID != nil && *job.AccountID == accountID && !job.Status.IsTerminal() {
			if err := syncQueue.Cancel(ctx, job.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
