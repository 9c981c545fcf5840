// Package models holds the persisted entities of the archive: mail accounts,
// archived emails and their attachments, and background jobs.
package models

import "time"

// ProviderKind identifies which wire backend a MailAccount talks to.
type ProviderKind string

const (
	ProviderIMAP   ProviderKind = "imap"
	ProviderM365   ProviderKind = "m365"
	ProviderImport ProviderKind = "import"
)

// EpochWatermark is the LastSync sentinel meaning "never synced / full resync requested".
var EpochWatermark = time.Unix(0, 0).UTC()

// MailAccount is the identity and connection/retention configuration for one mailbox.
type MailAccount struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	DisplayName string       `json:"display_name"`
	Provider    ProviderKind `json:"provider"`

	ServerHost string `json:"server_host,omitempty"`
	ServerPort int    `json:"server_port,omitempty"`
	UseTLS     bool   `json:"use_tls"`

	// IMAP credentials.
	Username string `json:"username,omitempty"`
	Password string `json:"-"`

	// Graph (M365) credentials.
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"-"`
	TenantID     string `json:"tenant_id,omitempty"`

	Email   string `json:"email"`
	Enabled bool   `gorm:"default:true" json:"enabled"`

	// ExcludedFolders is a comma-separated list of folder names to skip during sync.
	ExcludedFolders string `gorm:"type:text" json:"excluded_folders,omitempty"`

	DeleteAfterDays    *int `json:"delete_after_days,omitempty"`
	LocalRetentionDays *int `json:"local_retention_days,omitempty"`

	LastSync time.Time `json:"last_sync"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MailAccount) TableName() string { return "mail_accounts" }

// NeedsFullResync reports whether the account's watermark is the epoch sentinel.
func (a *MailAccount) NeedsFullResync() bool {
	return a.LastSync.IsZero() || a.LastSync.Equal(EpochWatermark) || !a.LastSync.After(EpochWatermark)
}

// AccountStats summarizes an account for dashboards (spec 4.A account-stats).
type AccountStats struct {
	AccountID  string    `json:"account_id"`
	EmailCount int64     `json:"email_count"`
	LastSync   time.Time `json:"last_sync"`
	Enabled    bool      `json:"enabled"`
}

// AccessLog is a minimal append-only audit row (spec §6 names the table, leaves it undetailed).
type AccessLog struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	AccountID *string   `json:"account_id,omitempty"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AccessLog) TableName() string { return "access_logs" }
