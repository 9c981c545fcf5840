package graphadapter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/fingerprint"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// DeleteOldEmails deletes one message at a time (Graph has no batch delete
// for mail items): list candidates older than cutoff across every folder,
// keep only those whose fingerprint is already archived, then DELETE each by
// id (spec §4.E retention: "no batch delete, per-id with archive gating").
func (a *Adapter) DeleteOldEmails(ctx context.Context, cutoff time.Time, isArchived func([]string) bool, sink provider.ProgressSink) error {
	folders, err := a.ListFolders(ctx)
	if err != nil {
		return err
	}

	encodedUser := url.PathEscape(a.account.Email)
	cutoffStr := cutoff.UTC().Format(time.RFC3339)

	deleted := 0
	for _, folder := range folders {
		path := fmt.Sprintf("/users/%s/mailFolders/%s/messages?$filter=%s&$top=50",
			encodedUser, folder.FullPath, url.QueryEscape(fmt.Sprintf("receivedDateTime lt %s", cutoffStr)))

		first := true
		for path != "" {
			var page graphMessagePage
			var err error
			if first {
				err = a.get(ctx, path, &page)
				first = false
			} else {
				err = a.getRaw(ctx, path, &page)
			}
			if err != nil {
				break
			}

			for _, m := range page.Value {
				fp := fingerprint.Of(m.InternetMessageID, formatRecipient(m.From), joinRecipients(m.ToRecipients), m.Subject, parseGraphTime(m.SentDateTime))
				if !isArchived(fingerprint.Variants(fp)) {
					continue
				}
				if err := a.delete(ctx, fmt.Sprintf("/users/%s/messages/%s", encodedUser, m.ID)); err == nil {
					deleted++
				}
			}
			path = page.NextLink
		}
	}

	if deleted > 0 {
		sink.OnDeleted(deleted)
	}
	return nil
}

func parseGraphTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
