package imapadapter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mail-archiver/mail-archiver/internal/mimebuild"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// RestoreOne reconstructs a single message as a MIME literal and APPENDs it,
// with the \Seen flag set (spec §4.D restore), to folder, falling back to
// INBOX if folder no longer exists on the server.
func (a *Adapter) RestoreOne(ctx context.Context, msg provider.RestoreMessage, folder string) error {
	c, err := a.client(ctx)
	if err != nil {
		return err
	}
	raw, err := mimebuild.Build(msg)
	if err != nil {
		return provider.Wrap(provider.KindPermanentPerMessage, fmt.Errorf("restore: build mime: %w", err))
	}
	target := a.resolveRestoreFolder(c, folder)
	if err := c.Append(target, []string{imap.SeenFlag}, msg.ReceivedDate, bytes.NewReader(raw)); err != nil {
		return provider.Wrap(provider.KindTransient, fmt.Errorf("imap append %s: %w", target, err))
	}
	return nil
}

// resolveRestoreFolder falls back to INBOX when folder isn't selectable,
// checked via a read-only EXAMINE so the check opens the folder without
// write access; the EXAMINE does replace whichever mailbox the connection
// had selected before (spec §4.D restore note).
func (a *Adapter) resolveRestoreFolder(c *client.Client, folder string) string {
	if folder == "" {
		return "INBOX"
	}
	if _, err := c.Select(folder, true); err != nil {
		a.log.Warn("restore folder %q not found, falling back to INBOX: %v", folder, err)
		return "INBOX"
	}
	return folder
}

// restoreMaxAttempts and restoreBackoffStep implement spec §5's retry policy:
// up to 3 attempts with linearly increasing backoff and a connection
// re-establishment between attempts.
const restoreMaxAttempts = 3

var restoreBackoffStep = time.Second

// RestoreMany shares one connection across the whole batch and reports
// progress per message (spec §4.D / §5 "suspension points" apply per-message
// here too).
func (a *Adapter) RestoreMany(ctx context.Context, msgs []provider.RestoreMessage, folder string, cancel provider.CancelToken, sink provider.ProgressSink) error {
	restored, failed := 0, 0

	for _, msg := range msgs {
		if cancel.Cancelled() {
			return provider.ErrCancelled
		}

		var err error
		for attempt := 1; attempt <= restoreMaxAttempts; attempt++ {
			err = a.RestoreOne(ctx, msg, folder)
			if err == nil || provider.KindOf(err) != provider.KindTransient || attempt == restoreMaxAttempts {
				break
			}
			wait := time.Duration(attempt) * restoreBackoffStep
			a.log.Warn("restore append failed (attempt %d/%d), reconnecting after %s: %v", attempt, restoreMaxAttempts, wait, err)
			a.mu.Lock()
			if a.c != nil {
				a.c.Logout()
				a.c = nil
			}
			a.mu.Unlock()
			time.Sleep(wait)
		}

		if err != nil {
			failed++
		} else {
			restored++
		}
		sink.OnProgress(restored+failed, restored, failed, folder, msg.Subject)
	}
	return nil
}
