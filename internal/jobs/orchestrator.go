package jobs

import (
	"context"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/archive"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
	"github.com/mail-archiver/mail-archiver/internal/sync"
)

// Orchestrator owns the five typed queues named in spec §4.G and starts
// their workers/sweepers together.
type Orchestrator struct {
	Sync          *Queue
	Restore       *Queue
	Export        *Queue
	Import        *Queue
	AccountDelete *Queue
}

// NewOrchestrator wires every queue's handler to its concrete dependencies.
// artifactDir is where export builds its zip files; the account-delete queue
// is given the sync queue directly so it can cancel an in-flight sync.
func NewOrchestrator(gateway *store.Gateway, writer *archive.Writer, engine *sync.Engine, factory *provider.Factory, artifactDir string) *Orchestrator {
	syncQueue := NewQueue(gateway, models.JobKindSync, NewSyncHandler(gateway, factory, engine))
	restoreQueue := NewQueue(gateway, models.JobKindRestore, NewRestoreHandler(gateway, factory))
	exportQueue := NewQueue(gateway, models.JobKindExport, NewExportHandler(gateway, artifactDir))
	importQueue := NewQueue(gateway, models.JobKindImport, NewImportHandler(gateway, writer))
	deleteQueue := NewQueue(gateway, models.JobKindAccountDelete, NewAccountDeleteHandler(gateway, syncQueue))

	return &Orchestrator{
		Sync:          syncQueue,
		Restore:       restoreQueue,
		Export:        exportQueue,
		Import:        importQueue,
		AccountDelete: deleteQueue,
	}
}

// Start launches every queue's worker and 24h sweeper (spec §4.G), running
// until ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context, sweepInterval time.Duration) {
	for _, q := range o.all() {
		q.StartWorker(ctx)
		q.StartSweeper(ctx, sweepInterval)
	}
}

func (o *Orchestrator) all() []*Queue {
	return []*Queue{o.Sync, o.Restore, o.Export, o.Import, o.AccountDelete}
}
