// Package sync is the Sync Engine (spec §4.F): drives one adapter through
// ListFolders -> per-folder SyncFolder -> Normalize -> Archive, tracks the
// account watermark, and triggers retention once every folder has been
// walked. Provider-agnostic: it only knows about provider.Adapter.
//
// Follows a monitorInbox/fetchEmails-style loop, generalized from a single
// hardcoded INBOX to an arbitrary folder list and from one provider (IMAP)
// to the shared provider.Adapter contract.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/archive"
	"github.com/mail-archiver/mail-archiver/internal/logging"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/normalize"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

// Engine runs one account's sync through its adapter.
type Engine struct {
	gateway *store.Gateway
	writer  *archive.Writer
	log     *logging.Logger
}

func NewEngine(gateway *store.Gateway, writer *archive.Writer) *Engine {
	return &Engine{gateway: gateway, writer: writer, log: logging.New("sync")}
}

// Result summarizes one Run call's outcome (spec §7 JobProgress surface).
type Result struct {
	Processed int
	New       int
	Failed    int
	Deleted   int
}

// clockSkewBuffer covers drift between this host's clock and the mail
// server's when computing the incremental-sync watermark (spec §4.D: since =
// max(epoch, watermark - 12h)), so messages delivered right around the last
// sync aren't silently missed.
const clockSkewBuffer = 12 * time.Hour

// skewAdjustedWatermark backs watermark off by clockSkewBuffer, clamped so it
// never precedes the epoch sentinel.
func skewAdjustedWatermark(watermark time.Time) time.Time {
	adjusted := watermark.Add(-clockSkewBuffer)
	if adjusted.Before(models.EpochWatermark) {
		return models.EpochWatermark
	}
	return adjusted
}

// excludedFolder reports whether folder is in the account's excluded list.
func excludedFolder(account *models.MailAccount, folder string) bool {
	if account.ExcludedFolders == "" {
		return false
	}
	for _, f := range strings.Split(account.ExcludedFolders, ",") {
		if strings.EqualFold(strings.TrimSpace(f), folder) {
			return true
		}
	}
	return false
}

// Run performs one full sync pass for account via adapter: folder
// enumeration, per-folder incremental fetch, normalize+archive each message,
// watermark advance (only if zero failures, spec §4.F), then retention.
func (e *Engine) Run(ctx context.Context, account *models.MailAccount, ad provider.Adapter, cancel provider.CancelToken, report func(models.JobProgress)) (*Result, error) {
	result := &Result{}
	progress := models.JobProgress{}

	e.log.Info("starting sync for account %s", account.ID)

	folders, err := ad.ListFolders(ctx)
	if err != nil {
		e.log.Error("account %s: list folders: %v", account.ID, err)
		return result, fmt.Errorf("sync: list folders: %w", err)
	}

	syncStart := time.Now().UTC()
	since := time.Time{}
	if !account.NeedsFullResync() {
		since = skewAdjustedWatermark(account.LastSync)
	}

	for _, folder := range folders {
		if cancel.Cancelled() {
			return result, provider.ErrCancelled
		}
		if excludedFolder(account, folder.Name) {
			continue
		}

		progress.CurrentFolder = folder.Name
		report(progress)

		sinkErr := ad.SyncFolder(ctx, folder, since, cancel, func(ctx context.Context, msg *provider.Message) error {
			var draft *normalize.Draft
			if len(msg.RawMIME) > 0 {
				d, err := normalize.FromMIME(msg.RawMIME, folder.Name, account.Email, msg.ReceivedDate)
				if err != nil {
					e.log.Warn("account %s folder %s: normalize failed: %v", account.ID, folder.Name, err)
					result.Failed++
					progress.Failed = result.Failed
					report(progress)
					return nil
				}
				draft = d
			} else {
				draft = normalize.FromFields(msg, account.Email)
			}

			outcome, archived, err := e.writer.Archive(ctx, account.ID, draft)
			result.Processed++
			progress.Processed = result.Processed
			if archived != nil {
				progress.CurrentSubject = archived.Subject
			}
			if err != nil || outcome == archive.Failed {
				e.log.Warn("account %s folder %s: archive failed for %q: %v", account.ID, folder.Name, msg.Subject, err)
				result.Failed++
				progress.Failed = result.Failed
				report(progress)
				return nil
			}
			if outcome == archive.Inserted {
				result.New++
				progress.New = result.New
			}
			report(progress)
			return nil
		})
		if sinkErr != nil {
			if sinkErr == provider.ErrCancelled {
				return result, provider.ErrCancelled
			}
			e.log.Warn("account %s folder %s: sync folder failed: %v", account.ID, folder.Name, sinkErr)
			result.Failed++
		}
	}

	if result.Failed == 0 {
		if err := e.gateway.UpdateWatermark(ctx, account.ID, syncStart); err != nil {
			e.log.Error("account %s: update watermark: %v", account.ID, err)
			return result, fmt.Errorf("sync: update watermark: %w", err)
		}
	}

	deleted, err := e.runRetention(ctx, account, ad, cancel, &progress, report)
	if err != nil && err != provider.ErrCancelled {
		// Retention failures don't fail the sync job; the emails are already archived.
		e.log.Warn("account %s: retention pass failed: %v", account.ID, err)
		deleted = 0
	}
	result.Deleted = deleted

	e.log.Info("account %s: sync done, processed=%d new=%d failed=%d deleted=%d", account.ID, result.Processed, result.New, result.Failed, result.Deleted)

	return result, nil
}

// runRetention deletes remote copies older than DeleteAfterDays (once
// archived) and purges local copies older than LocalRetentionDays (spec §4.F
// "triggered after all folders have synced").
func (e *Engine) runRetention(ctx context.Context, account *models.MailAccount, ad provider.Adapter, cancel provider.CancelToken, progress *models.JobProgress, report func(models.JobProgress)) (int, error) {
	deleted := 0

	if account.DeleteAfterDays != nil {
		cutoff := time.Now().AddDate(0, 0, -*account.DeleteAfterDays)
		isArchived := func(variants []string) bool {
			exists, _ := e.gateway.ExistsByFingerprint(ctx, account.ID, variants)
			return exists
		}
		sink := remoteDeleteSink{progress: progress, report: report, counter: &deleted}
		if err := ad.DeleteOldEmails(ctx, cutoff, isArchived, sink); err != nil {
			return deleted, err
		}
	}

	if account.LocalRetentionDays != nil {
		cutoff := time.Now().AddDate(0, 0, -*account.LocalRetentionDays)
		for {
			if cancel.Cancelled() {
				return deleted, provider.ErrCancelled
			}
			ids, err := e.gateway.IDsOlderThan(ctx, account.ID, cutoff, 1000)
			if err != nil || len(ids) == 0 {
				break
			}
			if _, err := e.gateway.BatchDeleteAttachmentsByEmailIDs(ctx, ids); err != nil {
				break
			}
			n, err := e.gateway.BatchDeleteEmailsByIDs(ctx, ids)
			if err != nil {
				break
			}
			deleted += int(n)
			progress.Deleted = deleted
			report(*progress)
			if len(ids) < 1000 {
				break
			}
		}
	}

	return deleted, nil
}

type remoteDeleteSink struct {
	progress *models.JobProgress
	report   func(models.JobProgress)
	counter  *int
}

func (s remoteDeleteSink) OnProgress(processed, new, failed int, folder, subject string) {}

func (s remoteDeleteSink) OnDeleted(n int) {
	*s.counter += n
	s.progress.Deleted = *s.counter
	s.report(*s.progress)
}
