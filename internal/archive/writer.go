// Package archive implements the Archive Writer (spec §4.C): the idempotent
// upsert-or-move-or-skip protocol that turns a normalized Draft into a durably
// stored ArchivedEmail.
//
// Follows a CreateLog/FindLogByUID repository pattern plus a "backfill
// metadata on revisit" merge step, generalized from "update attachment
// counts" to a three-way Inserted/AlreadyExists/FolderMoved outcome.
package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/normalize"
	"github.com/mail-archiver/mail-archiver/internal/store"
)

// Outcome is the result of one archive() call (spec §4.C).
type Outcome int

const (
	Inserted Outcome = iota
	AlreadyExists
	FolderMoved
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	case FolderMoved:
		return "folder_moved"
	default:
		return "failed"
	}
}

type Writer struct {
	gateway *store.Gateway
}

func NewWriter(gateway *store.Gateway) *Writer {
	return &Writer{gateway: gateway}
}

// Archive runs the protocol in spec §4.C:
//  1. compute fingerprint (already done by the normalizer into draft.Fingerprint)
//  2. query by (account, fingerprint) and the secondary predicate
//  3. folder mismatch -> update folder only, report FolderMoved
//  4. same folder -> report AlreadyExists
//  5. else insert email+attachments in one transaction
//  6. recompute has_attachments from the persisted set and write it back
//
// The write is idempotent: retries after a failed commit never produce duplicates,
// because step 2 always re-checks before inserting.
func (w *Writer) Archive(ctx context.Context, accountID string, draft *normalize.Draft) (Outcome, *models.ArchivedEmail, error) {
	email, attachments := draft.ToArchivedEmail()
	email.MailAccountID = accountID

	existing, err := w.gateway.FindByFingerprint(ctx, accountID, email.MessageFingerprint, email.From, email.To, email.Subject, email.SentDate)
	if err == nil {
		if existing.FolderName != email.FolderName {
			if err := w.gateway.MoveEmailFolder(ctx, existing.ID, email.FolderName); err != nil {
				return Failed, nil, fmt.Errorf("archive: move folder: %w", err)
			}
			existing.FolderName = email.FolderName
			return FolderMoved, existing, nil
		}
		return AlreadyExists, existing, nil
	}
	if err != store.ErrNotFound {
		return Failed, nil, fmt.Errorf("archive: lookup: %w", err)
	}

	email.ID = uuid.NewString()
	for i := range attachments {
		attachments[i].ID = uuid.NewString()
	}

	if err := w.gateway.UpsertEmailWithAttachments(ctx, email, attachments); err != nil {
		return Failed, nil, fmt.Errorf("archive: insert: %w", err)
	}

	hasAttachments := len(attachments) > 0
	if err := w.gateway.SetHasAttachments(ctx, email.ID, hasAttachments); err != nil {
		return Failed, nil, fmt.Errorf("archive: backfill has_attachments: %w", err)
	}
	email.HasAttachments = hasAttachments

	return Inserted, email, nil
}
