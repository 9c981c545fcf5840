// Package store is the Store Gateway (spec §4.A): the only component that
// touches the archive database directly. Every write is parameterized, every
// read that backs the search UI shares its WHERE clause with its count, and
// schema/index ownership lives here.
//
// Follows a repository-style layer (context-first methods, ownership-scoped
// queries, gorm.ErrRecordNotFound handling), with index DDL run via db.Exec
// at migration time.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/mail-archiver/mail-archiver/internal/models"
)

var ErrNotFound = errors.New("store: not found")

type Gateway struct {
	db   *gorm.DB
	sqlx *sqlx.DB
}

func NewGateway(db *gorm.DB) *Gateway {
	gw := &Gateway{db: db}
	if sqlDB, err := db.DB(); err == nil {
		gw.sqlx = sqlx.NewDb(sqlDB, "postgres")
	}
	return gw
}

// SQLX exposes the same underlying connection pool through sqlx, for callers
// (the search query builder) that want QueryxContext/StructScan instead of
// gorm's Raw/Scan.
func (g *Gateway) SQLX() *sqlx.DB { return g.sqlx }

// Migrate creates/updates tables and the indexes named in spec §6: a GIN
// index over to_tsvector('simple', subject‖body‖from‖to‖cc‖bcc), a composite
// index on (MailAccountId, SentDate), and the fingerprint uniqueness constraint.
func (g *Gateway) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(
		&models.MailAccount{},
		&models.ArchivedEmail{},
		&models.EmailAttachment{},
		&models.Job{},
		&models.AccessLog{},
	); err != nil {
		return fmt.Errorf("store: automigrate: %w", err)
	}

	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_archived_emails_search
			ON archived_emails USING GIN (
				to_tsvector('simple',
					coalesce(subject,'') || ' ' || coalesce(body,'') || ' ' ||
					coalesce("from",'') || ' ' || coalesce("to",'') || ' ' ||
					coalesce(cc,'') || ' ' || coalesce(bcc,'')
				)
			)`,
		`CREATE INDEX IF NOT EXISTS idx_archived_emails_account_sent
			ON archived_emails (mail_account_id, sent_date)`,
	}
	for _, stmt := range stmts {
		if err := g.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("store: index ddl: %w", err)
		}
	}
	return nil
}

// --- Accounts -------------------------------------------------------------

func (g *Gateway) UpsertAccount(ctx context.Context, acc *models.MailAccount) error {
	return g.db.WithContext(ctx).Save(acc).Error
}

func (g *Gateway) FindAccount(ctx context.Context, id string) (*models.MailAccount, error) {
	var acc models.MailAccount
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (g *Gateway) ListAccounts(ctx context.Context) ([]models.MailAccount, error) {
	var accounts []models.MailAccount
	err := g.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error
	return accounts, err
}

func (g *Gateway) DeleteAccount(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MailAccount{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gateway) UpdateWatermark(ctx context.Context, accountID string, lastSync time.Time) error {
	return g.db.WithContext(ctx).Model(&models.MailAccount{}).
		Where("id = ?", accountID).
		Update("last_sync", lastSync).Error
}

// --- Emails ----------------------------------------------------------------

// FindByFingerprint looks up an existing archived email for (accountID,
// fingerprint) OR, failing that, via the secondary predicate (from, to,
// subject match and sent-date within ±2s) — spec §3/§4.C.
func (g *Gateway) FindByFingerprint(ctx context.Context, accountID, fingerprint, from, to, subject string, sentDate time.Time) (*models.ArchivedEmail, error) {
	var e models.ArchivedEmail
	err := g.db.WithContext(ctx).
		Where("mail_account_id = ? AND message_id = ?", accountID, fingerprint).
		First(&e).Error
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Secondary predicate: same from/to/subject, sent-date within ±2s.
	lo := sentDate.Add(-2 * time.Second)
	hi := sentDate.Add(2 * time.Second)
	err = g.db.WithContext(ctx).
		Where(`mail_account_id = ? AND "from" = ? AND "to" = ? AND subject = ? AND sent_date BETWEEN ? AND ?`,
			accountID, from, to, subject, lo, hi).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ExistsByFingerprint reports whether accountID already has an archived email
// for any of the given fingerprint variants (used by retention delete to
// gate remote deletion on "already safely archived" — spec §4.D/§4.E).
func (g *Gateway) ExistsByFingerprint(ctx context.Context, accountID string, variants []string) (bool, error) {
	if len(variants) == 0 {
		return false, nil
	}
	var n int64
	err := g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("mail_account_id = ? AND message_id IN ?", accountID, variants).
		Count(&n).Error
	return n > 0, err
}

// UpsertEmailWithAttachments inserts a new email row plus its attachments in
// one transaction (spec §4.C step 4). Callers must already have determined
// this is a genuinely new message via FindByFingerprint.
func (g *Gateway) UpsertEmailWithAttachments(ctx context.Context, email *models.ArchivedEmail, attachments []models.EmailAttachment) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(email).Error; err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].ArchivedEmailID = email.ID
			if err := tx.Create(&attachments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveEmailFolder updates only folder_name for a fingerprint hit whose folder
// differs from the incoming message's folder (spec §4.A/§4.C FolderMoved).
func (g *Gateway) MoveEmailFolder(ctx context.Context, emailID, newFolder string) error {
	return g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("id = ?", emailID).
		Update("folder_name", newFolder).Error
}

func (g *Gateway) SetHasAttachments(ctx context.Context, emailID string, has bool) error {
	return g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("id = ?", emailID).
		Update("has_attachments", has).Error
}

func (g *Gateway) SetLocked(ctx context.Context, emailID string, locked bool) error {
	return g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("id = ?", emailID).
		Update("is_locked", locked).Error
}

// SetLockedByAccount clears (or sets) is_locked for every email of an
// account; used by the account-delete job before it starts batch-deleting.
func (g *Gateway) SetLockedByAccount(ctx context.Context, accountID string, locked bool) error {
	return g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("mail_account_id = ?", accountID).
		Update("is_locked", locked).Error
}

func (g *Gateway) GetEmailWithAttachments(ctx context.Context, emailID string) (*models.ArchivedEmail, error) {
	var e models.ArchivedEmail
	err := g.db.WithContext(ctx).Preload("Attachments").Where("id = ?", emailID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &e, err
}

// GetEmailsByIDs loads multiple emails with attachments, preserving no
// particular order guarantee beyond the store's own (used by export/restore).
func (g *Gateway) GetEmailsByIDs(ctx context.Context, ids []string) ([]models.ArchivedEmail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var emails []models.ArchivedEmail
	err := g.db.WithContext(ctx).Preload("Attachments").Where("id IN ?", ids).Find(&emails).Error
	return emails, err
}

// ListEmailsByAccount returns one page of an account's emails in sent-date
// order, used by export-all.
func (g *Gateway) ListEmailsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.ArchivedEmail, error) {
	var emails []models.ArchivedEmail
	q := g.db.WithContext(ctx).Preload("Attachments").Where("mail_account_id = ?", accountID).Order("sent_date ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&emails).Error
	return emails, err
}

// IDsOlderThan returns archived email IDs for accountID older than cutoff and
// not locked, for local-retention purge (spec §3 invariant: locked emails are
// never deleted by retention).
func (g *Gateway) IDsOlderThan(ctx context.Context, accountID string, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	err := g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("mail_account_id = ? AND sent_date < ? AND is_locked = false", accountID, cutoff).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// AllIDsByAccount returns up to limit archived email IDs for accountID,
// ignoring lock state (used by account deletion, which removes everything
// belonging to the account regardless of the retention lock).
func (g *Gateway) AllIDsByAccount(ctx context.Context, accountID string, limit int) ([]string, error) {
	var ids []string
	err := g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).
		Where("mail_account_id = ?", accountID).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (g *Gateway) BatchDeleteEmailsByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := g.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ArchivedEmail{})
	return res.RowsAffected, res.Error
}

func (g *Gateway) BatchDeleteAttachmentsByEmailIDs(ctx context.Context, emailIDs []string) (int64, error) {
	if len(emailIDs) == 0 {
		return 0, nil
	}
	res := g.db.WithContext(ctx).Where("archived_email_id IN ?", emailIDs).Delete(&models.EmailAttachment{})
	return res.RowsAffected, res.Error
}

func (g *Gateway) CountEmailsByAccount(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).Where("mail_account_id = ?", accountID).Count(&n).Error
	return n, err
}

func (g *Gateway) CountAttachmentsByAccount(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.EmailAttachment{}).
		Joins("JOIN archived_emails ON archived_emails.id = email_attachments.archived_email_id").
		Where("archived_emails.mail_account_id = ?", accountID).
		Count(&n).Error
	return n, err
}

func (g *Gateway) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.ArchivedEmail{}).Count(&n).Error
	return n, err
}

func (g *Gateway) AccountStats(ctx context.Context, accountID string) (*models.AccountStats, error) {
	acc, err := g.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	n, err := g.CountEmailsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &models.AccountStats{
		AccountID:  accountID,
		EmailCount: n,
		LastSync:   acc.LastSync,
		Enabled:    acc.Enabled,
	}, nil
}

// DBSize reports the Postgres database size in bytes (spec §4.A db-size).
func (g *Gateway) DBSize(ctx context.Context) (int64, error) {
	var size int64
	err := g.db.WithContext(ctx).Raw(`SELECT pg_database_size(current_database())`).Scan(&size).Error
	return size, err
}

// DB exposes the underlying gorm handle; the job queues use it to read and
// update the jobs table. The Search Service runs its hand-written SQL through
// SQLX instead.
func (g *Gateway) DB() *gorm.DB { return g.db }

// AccessLog records a minimal audit row (spec §6 names the table, left undetailed).
func (g *Gateway) AccessLog(ctx context.Context, log models.AccessLog) error {
	return g.db.WithContext(ctx).Create(&log).Error
}

func (g *Gateway) RecentAccessLogs(ctx context.Context, limit int) ([]models.AccessLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.AccessLog
	err := g.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
