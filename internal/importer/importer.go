// Package importer implements the Importer (spec §4.I): stream-parse an
// uploaded mbox file message-by-message, feeding each parsed message through
// the Message Normalizer and Archive Writer, recovering from malformed
// records by resuming at the next mbox "From " separator line.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/mail-archiver/mail-archiver/internal/archive"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/normalize"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

// Result summarizes one import run (spec §7 JobProgress surface: "processed
// bytes, processed/success/failed counts, current subject").
type Result struct {
	ProcessedBytes int64
	Processed      int
	New            int
	Failed         int
}

// Stream reads an mbox byte stream, archiving every parseable message into
// account accountID/accountEmail under folder, and reports progress after
// each message (spec §4.I).
func Stream(ctx context.Context, r io.Reader, accountID, accountEmail, folder string, writer *archive.Writer, cancel provider.CancelToken, report func(models.JobProgress)) (*Result, error) {
	result := &Result{}
	progress := models.JobProgress{CurrentFolder: folder}

	br := bufio.NewReaderSize(r, 64*1024)
	var current bytes.Buffer
	var bytesRead int64

	flush := func() {
		if current.Len() == 0 {
			return
		}
		result.Processed++
		progress.Processed = result.Processed

		draft, err := normalize.FromMIME(current.Bytes(), folder, accountEmail, time.Time{})
		if err != nil {
			result.Failed++
			progress.Failed = result.Failed
			report(progress)
			current.Reset()
			return
		}
		progress.CurrentSubject = draft.Subject

		outcome, _, err := writer.Archive(ctx, accountID, draft)
		if err != nil || outcome == archive.Failed {
			result.Failed++
			progress.Failed = result.Failed
		} else if outcome == archive.Inserted {
			result.New++
			progress.New = result.New
		}
		report(progress)
		current.Reset()
	}

	for {
		if cancel.Cancelled() {
			return result, provider.ErrCancelled
		}

		line, err := br.ReadString('\n')
		bytesRead += int64(len(line))
		result.ProcessedBytes = bytesRead
		if len(line) > 0 {
			if isMboxSeparator(line) {
				flush()
			} else {
				current.WriteString(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, err
		}
	}
	flush()

	return result, nil
}

// isMboxSeparator reports whether line starts a new mbox message (spec §4.I:
// "the next line beginning with From ").
func isMboxSeparator(line string) bool {
	return strings.HasPrefix(line, "From ")
}
