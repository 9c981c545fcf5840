// Package jobs is the Job Orchestrator (spec §4.G): five typed queues (sync,
// restore, export, import, account-delete), one long-running worker per
// queue pulling in FIFO order, cooperative cancellation, and a 24h sweep of
// terminal jobs older than 7 days.
//
// Follows a TaskService poll-and-claim loop (StartWorker/processOne/
// reapStuckProcessing), split from one shared queue with a type switch into
// five independently typed queues per the typed-queue requirement.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mail-archiver/mail-archiver/internal/logging"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

// Handler runs the work for one job. It must check cancel at every folder,
// batch, and per-message boundary (spec §5) and report progress via report.
type Handler func(ctx context.Context, job *models.Job, cancel provider.CancelToken, report func(models.JobProgress)) (artifactPath string, err error)

const jobRetention = 7 * 24 * time.Hour

// Queue is one of the five typed queues.
type Queue struct {
	gateway *store.Gateway
	kind    models.JobKind
	handler Handler

	pollInterval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	log *logging.Logger
}

func NewQueue(gateway *store.Gateway, kind models.JobKind, handler Handler) *Queue {
	return &Queue{
		gateway:      gateway,
		kind:         kind,
		handler:      handler,
		pollInterval: 100 * time.Millisecond,
		cancels:      make(map[string]context.CancelFunc),
		log:          logging.New(fmt.Sprintf("job:%s", kind)),
	}
}

// Submit enqueues a new job and returns its id (spec §4.G Submit).
func (q *Queue) Submit(ctx context.Context, accountID *string, payload string) (string, error) {
	job := &models.Job{
		ID:        uuid.NewString(),
		Kind:      q.kind,
		AccountID: accountID,
		Status:    models.JobStatusQueued,
		Payload:   payload,
	}
	if err := q.gateway.DB().WithContext(ctx).Create(job).Error; err != nil {
		return "", fmt.Errorf("jobs: submit: %w", err)
	}
	return job.ID, nil
}

// Cancel flips a Queued job straight to Cancelled, or raises the cancel token
// for a Running job (spec §4.G Cancel). Other states are no-ops.
func (q *Queue) Cancel(ctx context.Context, jobID string) error {
	var job models.Job
	if err := q.gateway.DB().WithContext(ctx).Where("id = ? AND kind = ?", jobID, q.kind).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.ErrNotFound
		}
		return err
	}

	switch job.Status {
	case models.JobStatusQueued:
		now := time.Now()
		return q.gateway.DB().WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusQueued).
			Updates(map[string]any{"status": models.JobStatusCancelled, "completed_at": &now}).Error
	case models.JobStatusRunning:
		q.mu.Lock()
		cancel, ok := q.cancels[jobID]
		q.mu.Unlock()
		if ok {
			cancel()
		}
		return nil
	default:
		return nil
	}
}

func (q *Queue) Get(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := q.gateway.DB().WithContext(ctx).Where("id = ? AND kind = ?", jobID, q.kind).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	return &job, err
}

// ListActive returns non-terminal jobs plus any job created within the last
// 24h, whatever its status (spec §4.G ListActive(≤24h)).
func (q *Queue) ListActive(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	cutoff := time.Now().Add(-24 * time.Hour)
	err := q.gateway.DB().WithContext(ctx).
		Where("kind = ? AND (status IN ? OR created_at >= ?)",
			q.kind,
			[]models.JobStatus{models.JobStatusQueued, models.JobStatusRunning},
			cutoff,
		).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

func (q *Queue) ListAll(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := q.gateway.DB().WithContext(ctx).Where("kind = ?", q.kind).Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// StartWorker runs the single long-lived worker for this queue until ctx is
// cancelled (process shutdown). Idle polling sleeps 100ms (spec §4.G).
func (q *Queue) StartWorker(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			ran, err := q.processNext(ctx)
			if err != nil {
				q.log.Error("worker error: %v", err)
			}
			if !ran {
				time.Sleep(q.pollInterval)
			}
		}
	}()
}

// StartSweeper runs the 24h terminal-job GC (spec §4.G Sweep).
func (q *Queue) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := q.sweep(ctx); err != nil {
					q.log.Error("sweep error: %v", err)
				}
			}
		}
	}()
}

func (q *Queue) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-jobRetention)
	var stale []models.Job
	err := q.gateway.DB().WithContext(ctx).
		Where("kind = ? AND status IN ? AND completed_at < ?",
			q.kind,
			[]models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled, models.JobStatusDownloaded},
			cutoff,
		).Find(&stale).Error
	if err != nil {
		return err
	}
	for _, job := range stale {
		if job.ArtifactPath != nil {
			if err := os.Remove(*job.ArtifactPath); err != nil && !os.IsNotExist(err) {
				q.log.Warn("failed removing artifact %s: %v", *job.ArtifactPath, err)
			}
		}
		if err := q.gateway.DB().WithContext(ctx).Delete(&models.Job{}, "id = ?", job.ID).Error; err != nil {
			q.log.Warn("failed deleting stale job %s: %v", job.ID, err)
		}
	}
	return nil
}

// processNext claims the oldest Queued job for this kind and runs it to
// completion (or observed cancellation) before returning, mirroring the
// teacher's claim-then-run TaskService.processOne.
func (q *Queue) processNext(parent context.Context) (ran bool, err error) {
	var job models.Job
	res := q.gateway.DB().WithContext(parent).
		Where("kind = ? AND status = ?", q.kind, models.JobStatusQueued).
		Order("created_at ASC").
		Limit(1).
		Find(&job)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	now := time.Now()
	claim := q.gateway.DB().WithContext(parent).Model(&models.Job{}).
		Where("id = ? AND status = ?", job.ID, models.JobStatusQueued).
		Updates(map[string]any{"status": models.JobStatusRunning, "started_at": &now})
	if claim.Error != nil {
		return false, claim.Error
	}
	if claim.RowsAffected == 0 {
		// Lost the claim race (shouldn't happen with one worker per queue, but stay safe).
		return false, nil
	}

	jobCtx, cancel := context.WithCancel(parent)
	q.mu.Lock()
	q.cancels[job.ID] = cancel
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
		cancel()
	}()

	cancelToken := provider.CancelFunc(func() bool { return jobCtx.Err() != nil })

	report := func(p models.JobProgress) {
		_ = q.gateway.DB().WithContext(context.Background()).Model(&models.Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{"progress": models.JobProgressColumn(p), "phase": p.CurrentFolder}).Error
	}

	artifactPath, runErr := q.handler(jobCtx, &job, cancelToken, report)

	completedAt := time.Now()
	if errors.Is(runErr, provider.ErrCancelled) || (jobCtx.Err() != nil && runErr != nil) {
		return true, q.finish(parent, job.ID, models.JobStatusCancelled, "", completedAt)
	}
	if runErr != nil {
		return true, q.finish(parent, job.ID, models.JobStatusFailed, runErr.Error(), completedAt)
	}

	updates := map[string]any{
		"status":       models.JobStatusCompleted,
		"completed_at": &completedAt,
	}
	if artifactPath != "" {
		updates["artifact_path"] = &artifactPath
	}
	return true, q.gateway.DB().WithContext(parent).Model(&models.Job{}).Where("id = ?", job.ID).Updates(updates).Error
}

func (q *Queue) finish(ctx context.Context, jobID string, status models.JobStatus, errMsg string, at time.Time) error {
	updates := map[string]any{"status": status, "completed_at": &at}
	if errMsg != "" {
		updates["error_message"] = &errMsg
	}
	return q.gateway.DB().WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Updates(updates).Error
}
