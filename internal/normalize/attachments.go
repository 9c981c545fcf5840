package normalize

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// maxAttachmentBytes bounds a single attachment read to avoid unbounded memory use
// on a hostile/broken server; generous enough for real-world invoices/attachments.
const maxAttachmentBytes = 64 * 1024 * 1024

// mimeExtensions maps a MIME subtype to a file extension for synthetic
// filenames on nameless inline parts (spec §4.B attachment collection).
var mimeExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/bmp":       ".bmp",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"image/tiff":      ".tiff",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"text/html":       ".html",
	"text/calendar":   ".ics",
	"application/zip": ".zip",
}

// walkMIMEAttachments reads every part of a mail.Reader, classifying each as
// an attachment per spec §4.B:
//   - explicit "attachment" disposition
//   - explicit "inline" disposition
//   - has a Content-ID
//   - is image/* without an explicit "attachment" disposition
//
// Returns the collected attachments plus the selected text/html body parts
// (the first of each encountered, per normal MIME multipart/alternative convention).
func walkMIMEAttachments(mr *mail.Reader) (atts []provider.Attachment, plainBody, htmlBody string) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ctype, params, _ := h.ContentType()
			disp, _, _ := h.ContentDisposition()
			contentID := strings.TrimSpace(h.Get("Content-Id"))

			if isAttachmentPart(ctype, disp, contentID) {
				if a, ok := readAttachmentPart(part.Body, ctype, params["name"], contentID); ok {
					atts = append(atts, a)
				}
				continue
			}

			switch {
			case strings.HasPrefix(strings.ToLower(ctype), "text/plain") && plainBody == "":
				b, _ := provider.ReadAllLimited(part.Body, maxAttachmentBytes)
				plainBody = string(b)
			case strings.HasPrefix(strings.ToLower(ctype), "text/html") && htmlBody == "":
				b, _ := provider.ReadAllLimited(part.Body, maxAttachmentBytes)
				htmlBody = string(b)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ctype, _, _ := h.ContentType()
			contentID := strings.TrimSpace(h.Get("Content-Id"))
			if a, ok := readAttachmentPart(part.Body, ctype, filename, contentID); ok {
				atts = append(atts, a)
			}
		}
	}
	return atts, plainBody, htmlBody
}

func isAttachmentPart(ctype, disposition, contentID string) bool {
	d := strings.ToLower(strings.TrimSpace(disposition))
	if d == "attachment" || d == "inline" {
		return true
	}
	if contentID != "" {
		return true
	}
	lowerType := strings.ToLower(ctype)
	if strings.HasPrefix(lowerType, "image/") && d != "attachment" {
		return true
	}
	return false
}

func readAttachmentPart(r io.Reader, ctype, filename, contentID string) (provider.Attachment, bool) {
	content, err := provider.ReadAllLimited(r, maxAttachmentBytes)
	if err != nil {
		return provider.Attachment{}, false
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = syntheticFilename(contentID, ctype)
	}
	return provider.Attachment{
		Filename:    filename,
		ContentType: ctype,
		ContentID:   contentID,
		Content:     content,
	}, true
}

// syntheticFilename builds a name for a nameless inline part from its
// Content-ID (or a short random suffix) plus an extension chosen from the
// MIME-type table (spec §4.B).
func syntheticFilename(contentID, ctype string) string {
	base := strings.Trim(contentID, "<>")
	base = strings.TrimSpace(base)
	if base == "" {
		b := make([]byte, 4)
		_, _ = rand.Read(b)
		base = "part-" + hex.EncodeToString(b)
	}
	base = sanitizeForFilename(base)

	ext := mimeExtensions[strings.ToLower(strings.TrimSpace(ctype))]
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func sanitizeForFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "@", "_at_")
	return replacer.Replace(s)
}
