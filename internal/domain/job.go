package domain

import "time"

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is a unit of deferred work persisted in the jobs table.
//
// Transitions are pending -> processing -> completed|failed. A processing
// job whose worker disappeared is returned to pending by the reaper once
// LockedAt is older than the visibility timeout. Failed jobs stay failed.
type Job struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	Kind       string     `json:"kind"        gorm:"type:varchar(64);not null;index"`
	Payload    string     `json:"payload"     gorm:"type:text;not null"`
	Status     JobStatus  `json:"status"      gorm:"type:varchar(16);not null;default:'pending';index:idx_jobs_status_run,priority:1;check:status IN ('pending','processing','completed','failed')"`
	Attempts   int        `json:"attempts"    gorm:"not null;default:0"`
	LastError  string     `json:"last_error,omitempty" gorm:"type:text"`
	RunAt      time.Time  `json:"run_at"      gorm:"not null;index:idx_jobs_status_run,priority:2"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }
