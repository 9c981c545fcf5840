package imapadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap"

	"github.com/mail-archiver/mail-archiver/internal/fingerprint"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// DeleteOldEmails walks every selectable folder, searches for messages sent
// before cutoff, and permanently deletes only those whose fingerprint is
// already archived (spec §4.D retention: "never delete a message that isn't
// safely archived first").
func (a *Adapter) DeleteOldEmails(ctx context.Context, cutoff time.Time, isArchived func([]string) bool, sink provider.ProgressSink) error {
	folders, err := a.ListFolders(ctx)
	if err != nil {
		return err
	}

	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	for _, folder := range folders {
		if _, err := c.Select(folder.Name, false); err != nil {
			continue
		}

		criteria := imap.NewSearchCriteria()
		criteria.SentBefore = cutoff
		uids, err := c.UidSearch(criteria)
		if err != nil {
			a.log.Warn("retention search %s failed, skipping folder: %v", folder.Name, err)
			continue
		}
		if len(uids) == 0 {
			continue
		}

		deleted := 0
		for i := 0; i < len(uids); i += fetchChunkSize {
			end := i + fetchChunkSize
			if end > len(uids) {
				end = len(uids)
			}
			toDelete, derr := a.filterArchivedUIDs(c, folder.Name, uids[i:end], isArchived)
			if derr != nil {
				continue
			}
			if len(toDelete) == 0 {
				continue
			}
			seqSet := new(imap.SeqSet)
			seqSet.AddNum(toDelete...)
			item := imap.FormatFlagsOp(imap.AddFlags, true)
			flags := []any{imap.DeletedFlag}
			if err := c.UidStore(seqSet, item, flags, nil); err != nil {
				continue
			}
			deleted += len(toDelete)
		}
		if deleted > 0 {
			if err := c.Expunge(nil); err != nil {
				return provider.Wrap(provider.KindProviderMisbehavior, fmt.Errorf("imap expunge %s: %w", folder.Name, err))
			}
			sink.OnDeleted(deleted)
		}
	}
	return nil
}

// filterArchivedUIDs fetches the envelope/message-id for each candidate UID
// and keeps only those whose fingerprint variants are already archived.
func (a *Adapter) filterArchivedUIDs(c interface {
	UidFetch(*imap.SeqSet, []imap.FetchItem, chan *imap.Message) error
}, folder string, uids []uint32, isArchived func([]string) bool) ([]uint32, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.UidFetch(seqSet, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}, messages)
	}()

	var keep []uint32
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		from, to := "", ""
		if len(msg.Envelope.From) > 0 {
			from = msg.Envelope.From[0].Address()
		}
		if len(msg.Envelope.To) > 0 {
			to = msg.Envelope.To[0].Address()
		}
		fp := fingerprint.Of(msg.Envelope.MessageId, from, to, msg.Envelope.Subject, msg.Envelope.Date)
		if isArchived(fingerprint.Variants(fp)) {
			keep = append(keep, msg.Uid)
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return keep, nil
}
