package models

import "time"

// JobKind names one of the five typed queues the Job Orchestrator runs (spec §4.G).
type JobKind string

const (
	JobKindSync          JobKind = "sync"
	JobKindRestore       JobKind = "restore"
	JobKindExport        JobKind = "export"
	JobKindImport        JobKind = "import"
	JobKindAccountDelete JobKind = "account_delete"
)

// JobStatus is the lifecycle state of a Job. Terminal states are append-only.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusDownloaded applies only to export jobs, once the artifact has been fetched.
	JobStatusDownloaded JobStatus = "downloaded"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusDownloaded:
		return true
	default:
		return false
	}
}

// JobProgress is the kind-agnostic progress surface a running Job exposes to callers (spec §7).
type JobProgress struct {
	Processed int    `json:"processed"`
	New       int    `json:"new"`
	Failed    int    `json:"failed"`
	Deleted   int    `json:"deleted"`

	CurrentFolder  string `json:"current_folder,omitempty"`
	CurrentSubject string `json:"current_email_subject,omitempty"`
}

// Job is a single unit of work tracked by the orchestrator.
type Job struct {
	ID   string  `gorm:"primaryKey" json:"id"`
	Kind JobKind `gorm:"index" json:"kind"`

	AccountID *string `json:"account_id,omitempty"`

	Status JobStatus `gorm:"index" json:"status"`

	// Payload is a JSON-encoded kind-specific request (account id, selected
	// email ids, uploaded file path, target folder, ...).
	Payload string `gorm:"type:text" json:"-"`

	Progress JobProgressColumn `gorm:"type:text" json:"progress"`

	Phase        string  `json:"phase,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`

	// ArtifactPath is set by export jobs once the zip has been written.
	ArtifactPath *string `json:"artifact_path,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Job) TableName() string { return "jobs" }

// JobProgressColumn stores JobProgress as a gorm-serialized JSON text column.
type JobProgressColumn JobProgress
