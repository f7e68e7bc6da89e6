package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission field names used in queries.
const (
	// SubmissionCreatedAtField is the database field name for the row creation timestamp
	SubmissionCreatedAtField = "created_at"
	// SubmissionJobIDField is the database field name of the courier-side job identifier
	SubmissionJobIDField = "job_id"
	// SubmissionStateField is the database field name of the terminal state
	SubmissionStateField = "state"
)

// Submission is one job's history row, written once when the job reaches a
// terminal state. It is an audit record: the pipeline never reads it back,
// so a lost row costs nothing but history.
type Submission struct {
	gorm.Model
	JobID          string    `json:"job_id" gorm:"not null;uniqueIndex"`
	SchedulerJobID string    `json:"scheduler_job_id,omitempty" gorm:"index"`
	User           string    `json:"user" gorm:"not null"`
	Host           string    `json:"host" gorm:"not null;index"`
	Entrypoint     string    `json:"entrypoint"`
	State          string    `json:"state" gorm:"not null;index"`
	Error          string    `json:"error,omitempty" gorm:"type:text"`
	ArtifactBytes  int64     `json:"artifact_bytes"`
	StartedAt      time.Time `json:"started_at"`
}
