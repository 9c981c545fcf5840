// Package provider defines the capability contract shared by the IMAP and
// Graph adapters (spec §4.D/§4.E), plus the cancellation/progress plumbing
// the Sync Engine and Job Orchestrator drive it with (spec §9 "dynamic
// dispatch between providers" design note: one capability contract, tagged
// variants, no inheritance hierarchy).
package provider

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrorKind classifies a provider/store error for the recovery policy in spec §7.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindProviderMisbehavior
	KindPermanentPerMessage
	KindIrrecoverable
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindProviderMisbehavior:
		return "provider_misbehavior"
	case KindPermanentPerMessage:
		return "permanent_per_message"
	case KindIrrecoverable:
		return "irrecoverable"
	default:
		return "unknown"
	}
}

// KindError wraps an error with its recovery classification.
type KindError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindError) Error() string { return e.Err.Error() }
func (e *KindError) Unwrap() error { return e.Err }

func Wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to KindTransient if unclassified.
func KindOf(err error) ErrorKind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindTransient
}

// Message is the uniform shape every adapter yields to the Sync Engine,
// regardless of wire backend (spec §2: "produces a uniform stream of messages").
type Message struct {
	// RawMIME is the full message source, when available (IMAP path). Graph
	// messages are synthesized into an equivalent structure by the normalizer
	// without always materializing a MIME byte stream.
	RawMIME []byte

	ProviderMessageID string // provider-native id, used for per-message operations (delete, attachment fetch)
	MessageIDHeader   string // RFC 5322 Message-ID header value, if present

	Subject string
	From    string
	To      string
	Cc      string
	Bcc     string

	Date         time.Time
	ReceivedDate time.Time

	PlainBody string
	HTMLBody  string

	Attachments []Attachment

	Folder string
}

// Attachment is a single MIME part carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string // present iff inline
	Content     []byte
}

// Folder describes one mailbox folder as enumerated by an adapter.
type Folder struct {
	Name       string
	FullPath   string
	Selectable bool
}

// ProgressSink receives incremental progress updates during a long-running
// operation (spec §4.F/§4.G); implementations must be safe to call frequently.
type ProgressSink interface {
	OnProgress(processed, new, failed int, folder, subject string)
	OnDeleted(n int)
}

// NoopProgressSink discards all updates.
type NoopProgressSink struct{}

func (NoopProgressSink) OnProgress(int, int, int, string, string) {}
func (NoopProgressSink) OnDeleted(int)                            {}

// MessageSink receives each fetched Message during an incremental fetch,
// returning an error only for conditions that should abort the whole fetch.
type MessageSink func(ctx context.Context, msg *Message) error

// CancelToken is checked at every folder, batch, and per-message boundary
// (spec §5 "Suspension points").
type CancelToken interface {
	Cancelled() bool
}

// CancelFunc adapts a plain func() bool into a CancelToken.
type CancelFunc func() bool

func (f CancelFunc) Cancelled() bool { return f() }

// ErrCancelled is returned by adapter operations when the CancelToken fires.
var ErrCancelled = errors.New("operation cancelled")

// Adapter is the capability contract both the IMAP and Graph adapters implement.
type Adapter interface {
	// TestConnection verifies that the account's credentials work without
	// performing any sync (spec §4.D names this for IMAP; §9 supplements it for Graph).
	TestConnection(ctx context.Context) error

	// ListFolders enumerates folders, filtered and deduplicated per spec §4.D step 4 / §4.E tree walk.
	ListFolders(ctx context.Context) ([]Folder, error)

	// SyncFolder performs the incremental fetch for one folder since the
	// given watermark, invoking sink for each message it can produce.
	SyncFolder(ctx context.Context, folder Folder, since time.Time, cancel CancelToken, sink MessageSink) error

	// DeleteOldEmails performs the retention delete for messages older than
	// cutoff, but only for messages whose fingerprint variants isArchived
	// reports as already archived.
	DeleteOldEmails(ctx context.Context, cutoff time.Time, isArchived func(fingerprintVariants []string) bool, sink ProgressSink) error

	// RestoreOne appends/creates a single message in the named folder.
	RestoreOne(ctx context.Context, msg RestoreMessage, folder string) error

	// RestoreMany restores a batch of messages, sharing one connection and
	// retrying per-email per spec §4.D / §5.
	RestoreMany(ctx context.Context, msgs []RestoreMessage, folder string, cancel CancelToken, sink ProgressSink) error

	// Close releases any held connection/client resources.
	Close() error
}

// RestoreMessage carries everything needed to reconstruct a message on the wire.
type RestoreMessage struct {
	MessageIDHeader string
	Subject         string
	From            string
	To              string
	Cc              string
	Bcc             string
	SentDate        time.Time
	ReceivedDate    time.Time

	// PreferOriginal bytes (when present) take priority over the capped searchable copies.
	PlainBody         string
	HTMLBody          string
	OriginalPlainBody []byte
	OriginalHTMLBody  []byte

	Attachments []RestoreAttachment
}

// RestoreAttachment is one attachment to re-embed during restore.
type RestoreAttachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
}

// ReadAllLimited reads up to maxBytes from r; used by adapters bounding header/body reads.
func ReadAllLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}
