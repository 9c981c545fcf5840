package jobs

import (
	"context"
	"fmt"

	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
	"github.com/mail-archiver/mail-archiver/internal/sync"
)

// NewSyncHandler wires account lookup, adapter construction, and the Sync
// Engine into a sync-queue Handler (spec §4.G sync job).
func NewSyncHandler(gateway *store.Gateway, factory *provider.Factory, engine *sync.Engine) Handler {
	return func(ctx context.Context, job *models.Job, cancel provider.CancelToken, report func(models.JobProgress)) (string, error) {
		if job.AccountID == nil {
			return "", fmt.Errorf("sync job: missing account id")
		}

		account, err := gateway.FindAccount(ctx, *job.AccountID)
		if err != nil {
			return "", fmt.Errorf("sync job: load account: %w", err)
		}
		if !account.Enabled {
			return "", nil
		}

		adapter, err := factory.Build(account)
		if err != nil {
			return "", fmt.Errorf("sync job: build adapter: %w", err)
		}
		defer adapter.Close()

		if _, err := engine.Run(ctx, account, adapter, cancel, report); err != nil {
			return "", err
		}
		return "", nil
	}
}
