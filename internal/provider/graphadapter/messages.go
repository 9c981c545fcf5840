package graphadapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/provider"
)

type graphMessage struct {
	ID                   string           `json:"id"`
	InternetMessageID    string           `json:"internetMessageId"`
	Subject              string           `json:"subject"`
	Body                 graphBody        `json:"body"`
	From                 graphRecipient   `json:"from"`
	ToRecipients         []graphRecipient `json:"toRecipients"`
	CcRecipients         []graphRecipient `json:"ccRecipients"`
	BccRecipients        []graphRecipient `json:"bccRecipients"`
	HasAttachments       bool             `json:"hasAttachments"`
	ReceivedDateTime     string           `json:"receivedDateTime"`
	SentDateTime         string           `json:"sentDateTime"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphMessagePage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type graphAttachment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	IsInline     bool   `json:"isInline"`
	ContentID    string `json:"contentId"`
	ContentBytes string `json:"contentBytes"`
}

type graphAttachmentPage struct {
	Value []graphAttachment `json:"value"`
}

// graphMessageSelectFields narrows the default field projection to just what
// toProviderMessage needs, for the rung-3 retry below (spec §4.E: some
// tenants reject $filter when combined with the full default projection).
const graphMessageSelectFields = "id,internetMessageId,subject,from,toRecipients,ccRecipients,bccRecipients,hasAttachments,receivedDateTime,sentDateTime,lastModifiedDateTime,body"

// SyncFolder lists messages in folder modified since the watermark, following
// the filter de-escalation ladder in spec §4.E:
//  1. $filter=lastModifiedDateTime ge <since>
//  2. on a trusted-looking empty result, a $top=1 diagnostic probe to tell
//     "folder genuinely has nothing new" from "the filter was too restrictive"
//  3. same filter with a narrower $select
//  4. no filter at all, paging the whole folder
//
// Every rung re-applies the lastModifiedDateTime >= since check client-side
// (rung 5): some Graph tenants silently ignore $filter and return everything,
// so the client never trusts the server's filtering alone.
func (a *Adapter) SyncFolder(ctx context.Context, folder provider.Folder, since time.Time, cancel provider.CancelToken, sink provider.MessageSink) error {
	encodedUser := url.PathEscape(a.account.Email)
	basePath := fmt.Sprintf("/users/%s/mailFolders/%s/messages", encodedUser, folder.FullPath)

	if since.IsZero() {
		path := fmt.Sprintf("%s?$top=50&$orderby=lastModifiedDateTime asc", basePath)
		if _, err := a.walkAndFilter(ctx, path, folder, since, cancel, sink); err != nil {
			if errors.Is(err, provider.ErrCancelled) {
				return err
			}
			return provider.Wrap(provider.KindProviderMisbehavior, fmt.Errorf("graph sync folder %s: %w", folder.Name, err))
		}
		return nil
	}

	sinceStr := since.UTC().Format(time.RFC3339)
	encodedFilter := url.QueryEscape(fmt.Sprintf("lastModifiedDateTime ge %s", sinceStr))

	// Rung 1: primary filter.
	primaryPath := fmt.Sprintf("%s?$filter=%s&$orderby=lastModifiedDateTime asc&$top=50", basePath, encodedFilter)
	n, err := a.walkAndFilter(ctx, primaryPath, folder, since, cancel, sink)
	if errors.Is(err, provider.ErrCancelled) {
		return err
	}
	if err == nil {
		if n > 0 {
			return nil
		}
		// Rung 2: diagnostic probe before trusting a zero-result filter.
		empty, perr := a.probeFolderEmpty(ctx, basePath)
		if perr == nil && empty {
			return nil
		}
		a.log.Warn("graph folder %s: filtered search returned zero results but the folder is non-empty, degrading", folder.Name)
	} else {
		a.log.Warn("graph folder %s: lastModifiedDateTime filter rejected, degrading: %v", folder.Name, err)
	}

	// Rung 3: same filter, narrower $select.
	selectPath := fmt.Sprintf("%s?$filter=%s&$select=%s&$orderby=lastModifiedDateTime asc&$top=50", basePath, encodedFilter, url.QueryEscape(graphMessageSelectFields))
	if _, err := a.walkAndFilter(ctx, selectPath, folder, since, cancel, sink); err == nil {
		return nil
	} else if errors.Is(err, provider.ErrCancelled) {
		return err
	} else {
		a.log.Warn("graph folder %s: narrower $select retry also failed, degrading to unfiltered paging: %v", folder.Name, err)
	}

	// Rung 4: no filter, page everything; rung 5's client-side check (inside
	// walkAndFilter) still enforces the watermark.
	noFilterPath := fmt.Sprintf("%s?$top=50&$orderby=lastModifiedDateTime asc", basePath)
	if _, err := a.walkAndFilter(ctx, noFilterPath, folder, since, cancel, sink); err != nil {
		if errors.Is(err, provider.ErrCancelled) {
			return err
		}
		return provider.Wrap(provider.KindProviderMisbehavior, fmt.Errorf("graph sync folder %s exhausted filter ladder: %w", folder.Name, err))
	}
	return nil
}

// probeFolderEmpty issues an unfiltered $top=1 request to tell a genuinely
// empty folder apart from a filter clause the server silently mishandled.
func (a *Adapter) probeFolderEmpty(ctx context.Context, basePath string) (bool, error) {
	var page graphMessagePage
	if err := a.get(ctx, basePath+"?$top=1", &page); err != nil {
		return false, err
	}
	return len(page.Value) == 0, nil
}

// walkAndFilter pages through path, re-checking each message's
// lastModifiedDateTime against since before sinking it (spec §4.E rung 5),
// and returns the count of messages actually sunk.
func (a *Adapter) walkAndFilter(ctx context.Context, path string, folder provider.Folder, since time.Time, cancel provider.CancelToken, sink provider.MessageSink) (int, error) {
	sunk := 0
	first := true
	for path != "" {
		if cancel.Cancelled() {
			return sunk, provider.ErrCancelled
		}
		var page graphMessagePage
		var err error
		if first {
			err = a.get(ctx, path, &page)
			first = false
		} else {
			err = a.getRaw(ctx, path, &page)
		}
		if err != nil {
			return sunk, err
		}
		for _, m := range page.Value {
			if cancel.Cancelled() {
				return sunk, provider.ErrCancelled
			}
			if !since.IsZero() {
				if lm, perr := time.Parse(time.RFC3339, m.LastModifiedDateTime); perr == nil && lm.Before(since) {
					continue
				}
			}
			msg, err := a.toProviderMessage(ctx, &m, folder.Name)
			if err != nil {
				continue
			}
			if err := sink(ctx, msg); err != nil {
				return sunk, err
			}
			sunk++
		}
		path = page.NextLink
	}
	return sunk, nil
}

func (a *Adapter) toProviderMessage(ctx context.Context, m *graphMessage, folder string) (*provider.Message, error) {
	msg := &provider.Message{
		ProviderMessageID: m.ID,
		MessageIDHeader:   m.InternetMessageID,
		Subject:           m.Subject,
		From:              formatRecipient(m.From),
		To:                joinRecipients(m.ToRecipients),
		Cc:                joinRecipients(m.CcRecipients),
		Bcc:               joinRecipients(m.BccRecipients),
		Folder:            folder,
	}
	msg.ReceivedDate, _ = time.Parse(time.RFC3339, m.ReceivedDateTime)
	msg.Date, _ = time.Parse(time.RFC3339, m.SentDateTime)
	if strings.EqualFold(m.Body.ContentType, "html") {
		msg.HTMLBody = m.Body.Content
	} else {
		msg.PlainBody = m.Body.Content
	}

	// Always fetch attachments regardless of hasAttachments: Graph's flag is
	// unreliable for inline images referenced only by cid (spec §4.E note).
	atts, err := a.fetchAttachments(ctx, m.ID)
	if err == nil {
		msg.Attachments = atts
	}

	return msg, nil
}

func (a *Adapter) fetchAttachments(ctx context.Context, messageID string) ([]provider.Attachment, error) {
	path := fmt.Sprintf("/users/%s/messages/%s/attachments", url.PathEscape(a.account.Email), messageID)
	var page graphAttachmentPage
	if err := a.get(ctx, path, &page); err != nil {
		return nil, err
	}
	out := make([]provider.Attachment, 0, len(page.Value))
	for _, ga := range page.Value {
		content, err := decodeBase64(ga.ContentBytes)
		if err != nil {
			continue
		}
		// Graph strips angle brackets from contentId; stored as-is, compared
		// bracket-tolerantly by normalize.MatchContentID (spec §9(c)).
		out = append(out, provider.Attachment{
			Filename:    ga.Name,
			ContentType: ga.ContentType,
			ContentID:   ga.ContentID,
			Content:     content,
		})
	}
	return out, nil
}

func formatRecipient(r graphRecipient) string {
	if r.EmailAddress.Name != "" {
		return fmt.Sprintf("%s <%s>", r.EmailAddress.Name, r.EmailAddress.Address)
	}
	return r.EmailAddress.Address
}

func joinRecipients(rs []graphRecipient) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, formatRecipient(r))
	}
	return strings.Join(parts, ", ")
}
