package graphadapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// graphRestoreMessage is the POST body for creating a message directly inside
// a folder. singleValueExtendedProperties sets PidTagMessageFlags (property
// tag 0x0E07, type Integer) to 1, and isRead is sent false explicitly, per
// the restore payload spec §4.E names literally.
type graphRestoreMessage struct {
	Subject                       string                  `json:"subject"`
	Body                          graphBody               `json:"body"`
	ToRecipients                  []graphRecipient        `json:"toRecipients,omitempty"`
	CcRecipients                  []graphRecipient        `json:"ccRecipients,omitempty"`
	BccRecipients                 []graphRecipient        `json:"bccRecipients,omitempty"`
	IsRead                        bool                    `json:"isRead"`
	SingleValueExtendedProperties []graphExtendedProperty `json:"singleValueExtendedProperties"`
}

type graphExtendedProperty struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type graphFileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	IsInline     bool   `json:"isInline"`
	ContentID    string `json:"contentId,omitempty"`
}

func (a *Adapter) RestoreOne(ctx context.Context, msg provider.RestoreMessage, folder string) error {
	encodedUser := url.PathEscape(a.account.Email)

	body := msg.HTMLBody
	contentType := "html"
	if len(msg.OriginalHTMLBody) > 0 {
		body = string(msg.OriginalHTMLBody)
	} else if body == "" {
		contentType = "text"
		body = msg.PlainBody
		if len(msg.OriginalPlainBody) > 0 {
			body = string(msg.OriginalPlainBody)
		}
	}

	req := graphRestoreMessage{
		Subject: msg.Subject,
		Body:    graphBody{ContentType: contentType, Content: body},
		IsRead:  false,
		SingleValueExtendedProperties: []graphExtendedProperty{
			{ID: "Integer 0x0E07", Value: "1"},
		},
	}
	req.ToRecipients = addressListToRecipients(msg.To)
	req.CcRecipients = addressListToRecipients(msg.Cc)

	var created struct {
		ID string `json:"id"`
	}
	if err := a.post(ctx, fmt.Sprintf("/users/%s/mailFolders/%s/messages", encodedUser, folder), req, &created); err != nil {
		return provider.Wrap(provider.KindPermanentPerMessage, fmt.Errorf("graph restore create message: %w", err))
	}

	for _, att := range msg.Attachments {
		fa := graphFileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		}
		if att.ContentID != "" {
			fa.IsInline = true
			fa.ContentID = att.ContentID
		}
		if err := a.post(ctx, fmt.Sprintf("/users/%s/messages/%s/attachments", encodedUser, created.ID), fa, nil); err != nil {
			return provider.Wrap(provider.KindPermanentPerMessage, fmt.Errorf("graph restore attach %s: %w", att.Filename, err))
		}
	}
	return nil
}

// restoreMaxAttempts and restoreBackoffStep implement spec §5's retry policy:
// up to 3 attempts with linearly increasing backoff and a connection
// re-establishment (here: a fresh OAuth2 client) between attempts.
const restoreMaxAttempts = 3

var restoreBackoffStep = time.Second

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
			a.log.Warn("restore create-message failed (attempt %d/%d), reconnecting after %s: %v", attempt, restoreMaxAttempts, wait, err)
			time.Sleep(wait)
			a.reconnect()
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

func addressListToRecipients(addrList string) []graphRecipient {
	if addrList == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(addrList)
	if err != nil || len(addrs) == 0 {
		return []graphRecipient{{EmailAddress: graphEmailAddress{Address: addrList}}}
	}
	out := make([]graphRecipient, len(addrs))
	for i, a := range addrs {
		out[i] = graphRecipient{EmailAddress: graphEmailAddress{Name: a.Name, Address: a.Address}}
	}
	return out
}
