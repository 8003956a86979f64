package models

import "time"

// RunStatus is the lifecycle state of an evaluation run.
// Transitions: pending → running → success | failed. A run always reaches a
// terminal state, even when the evaluation body fails.
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunState carries the shared lifecycle bookkeeping for evaluation runs.
type RunState struct {
	Status       RunStatus  `gorm:"not null;default:'pending';index" json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}
