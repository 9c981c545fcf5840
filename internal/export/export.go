// Package export builds the artifact written by the export queue (spec
// §4.G: ".eml-in-zip or .mbox-in-zip, and a selected-ids variant"). It
// streams to the destination writer rather than buffering the whole zip in
// memory, following a ZipStream-style streamed-write abstraction.
package export

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/mimebuild"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// Format selects the on-disk shape of the export archive.
type Format string

const (
	FormatEML  Format = "eml"
	FormatMbox Format = "mbox"
)

// Stream is a prepared export that can be written to an io.Writer, usually
// an HTTP response or the job artifact file on disk.
type Stream struct {
	Filename string
	Write    func(w io.Writer) error
}

// Build prepares a zip stream over emails in the requested format. baseName
// names the zip file (without extension); it has no bearing on the archive contents.
func Build(emails []models.ArchivedEmail, format Format, baseName string) (*Stream, error) {
	if baseName == "" {
		baseName = "export"
	}
	switch format {
	case FormatEML, FormatMbox:
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}

	return &Stream{
		Filename: baseName + ".zip",
		Write: func(w io.Writer) error {
			zw := zip.NewWriter(w)
			var err error
			if format == FormatMbox {
				err = writeMboxEntry(zw, baseName, emails)
			} else {
				err = writeEMLEntries(zw, emails)
			}
			if err != nil {
				zw.Close()
				return err
			}
			return zw.Close()
		},
	}, nil
}

func writeEMLEntries(zw *zip.Writer, emails []models.ArchivedEmail) error {
	seen := make(map[string]int)
	for _, e := range emails {
		raw, err := mimebuild.Build(toRestoreMessage(e))
		if err != nil {
			return fmt.Errorf("export: build eml for %s: %w", e.ID, err)
		}
		name := safeFilename(e.Subject) + ".eml"
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%d.eml", strings.TrimSuffix(name, ".eml"), n+1)
		}
		seen[name]++

		f, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := f.Write(raw); err != nil {
			return err
		}
	}
	return nil
}

func writeMboxEntry(zw *zip.Writer, baseName string, emails []models.ArchivedEmail) error {
	f, err := zw.Create(baseName + ".mbox")
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	for _, e := range emails {
		raw, err := mimebuild.Build(toRestoreMessage(e))
		if err != nil {
			return fmt.Errorf("export: build mbox entry for %s: %w", e.ID, err)
		}
		if err := writeMboxMessage(bw, e, raw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeMboxMessage writes one "From " envelope line followed by the message
// body, quoting any body line that itself starts with "From " per the mbox format.
func writeMboxMessage(w *bufio.Writer, e models.ArchivedEmail, raw []byte) error {
	sender := firstAddress(e.From)
	date := e.SentDate
	if date.IsZero() {
		date = e.ReceivedDate
	}
	if _, err := fmt.Fprintf(w, "From %s %s\n", sender, date.UTC().Format(time.ANSIC)); err != nil {
		return err
	}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "From ") {
			line = ">" + line
		}
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	_, err := w.WriteString("\n")
	return err
}

func firstAddress(addrList string) string {
	addr := strings.TrimSpace(strings.Split(addrList, ",")[0])
	if i := strings.LastIndex(addr, "<"); i >= 0 && strings.HasSuffix(addr, ">") {
		addr = addr[i+1 : len(addr)-1]
	}
	if addr == "" {
		return "MAILER-DAEMON"
	}
	return addr
}

func safeFilename(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "message"
	}
	var b strings.Builder
	for _, r := range subject {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.TrimSpace(b.String())
	if len(name) > 80 {
		name = name[:80]
	}
	if name == "" {
		name = "message"
	}
	return name
}

func toRestoreMessage(e models.ArchivedEmail) provider.RestoreMessage {
	msg := provider.RestoreMessage{
		MessageIDHeader:   e.MessageFingerprint,
		Subject:           e.Subject,
		From:              e.From,
		To:                e.To,
		Cc:                e.Cc,
		Bcc:               e.Bcc,
		SentDate:          e.SentDate,
		ReceivedDate:      e.ReceivedDate,
		PlainBody:         e.Body,
		HTMLBody:          e.HTMLBody,
		OriginalPlainBody: e.OriginalPlainBytes,
		OriginalHTMLBody:  e.OriginalHTMLBytes,
	}
	for _, a := range e.Attachments {
		msg.Attachments = append(msg.Attachments, provider.RestoreAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
			Content:     a.Content,
		})
	}
	return msg
}
