// Package mimebuild reconstructs a MIME message literal from a
// provider.RestoreMessage, shared by the IMAP adapter's restore path (spec
// §4.D) and the Export package's .eml output (spec §4.H), so the two
// callers don't each hand-roll the same mail.Writer plumbing.
package mimebuild

import (
	"bytes"

	"github.com/emersion/go-message/mail"

	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// Build reconstructs a message from its normalized fields, preferring
// original bytes over the searchable (possibly capped) copies (spec §9(a)).
func Build(msg provider.RestoreMessage) ([]byte, error) {
	var h mail.Header
	if msg.MessageIDHeader != "" {
		h.Set("Message-Id", msg.MessageIDHeader)
	}
	if addrs, err := mail.ParseAddressList(msg.From); err == nil && len(addrs) > 0 {
		h.SetAddressList("From", addrs)
	} else if msg.From != "" {
		h.Set("From", msg.From)
	}
	if addrs, err := mail.ParseAddressList(msg.To); err == nil && len(addrs) > 0 {
		h.SetAddressList("To", addrs)
	} else if msg.To != "" {
		h.Set("To", msg.To)
	}
	if msg.Cc != "" {
		if addrs, err := mail.ParseAddressList(msg.Cc); err == nil && len(addrs) > 0 {
			h.SetAddressList("Cc", addrs)
		}
	}
	h.SetSubject(msg.Subject)
	if !msg.SentDate.IsZero() {
		h.SetDate(msg.SentDate)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	plain := msg.PlainBody
	if len(msg.OriginalPlainBody) > 0 {
		plain = string(msg.OriginalPlainBody)
	}
	html := msg.HTMLBody
	if len(msg.OriginalHTMLBody) > 0 {
		html = string(msg.OriginalHTMLBody)
	}

	if plain != "" || html != "" {
		iw, err := mw.CreateInline()
		if err != nil {
			return nil, err
		}
		if plain != "" {
			var ih mail.InlineHeader
			ih.Set("Content-Type", "text/plain; charset=utf-8")
			pw, err := iw.CreatePart(ih)
			if err != nil {
				return nil, err
			}
			if _, err := pw.Write([]byte(plain)); err != nil {
				return nil, err
			}
			if err := pw.Close(); err != nil {
				return nil, err
			}
		}
		if html != "" {
			var ih mail.InlineHeader
			ih.Set("Content-Type", "text/html; charset=utf-8")
			pw, err := iw.CreatePart(ih)
			if err != nil {
				return nil, err
			}
			if _, err := pw.Write([]byte(html)); err != nil {
				return nil, err
			}
			if err := pw.Close(); err != nil {
				return nil, err
			}
		}
		if err := iw.Close(); err != nil {
			return nil, err
		}
	}

	for _, att := range msg.Attachments {
		var ah mail.AttachmentHeader
		ah.Set("Content-Type", att.ContentType)
		ah.SetFilename(att.Filename)
		if att.ContentID != "" {
			ah.Set("Content-Id", Bracket(att.ContentID))
			ah.Set("Content-Disposition", "inline")
		}
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, err
		}
		if _, err := aw.Write(att.Content); err != nil {
			return nil, err
		}
		if err := aw.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bracket wraps a bare Content-ID in angle brackets, leaving an
// already-bracketed one untouched.
func Bracket(cid string) string {
	if cid == "" {
		return ""
	}
	if cid[0] == '<' {
		return cid
	}
	return "<" + cid + ">"
}
