package jobs

import (
	"encoding/json"
	"time"

	"montage-orchestrator/internal/ledger"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// next lists the statuses reachable from each status, itself included.
var next = map[Status][]Status{
	StatusQueued:    {StatusQueued, StatusRunning, StatusFailed},
	StatusRunning:   {StatusRunning, StatusCompleted, StatusFailed},
	StatusCompleted: {StatusCompleted},
	StatusFailed:    {StatusFailed},
}

func canMove(from, to Status) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is an immutable snapshot of one job record. The repository replaces the
// whole record on every update.
type Job struct {
	ID         string      `json:"id"`
	OwnerEmail string      `json:"user_email"`
	Tier       ledger.Tier `json:"plan"`
	Status     Status      `json:"status"`
	Progress   float64     `json:"progress"`
	Message    string      `json:"message"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	ResultPath string      `json:"result_path,omitempty"`
	// Report is the encoded improvement report, set on completion.
	Report             json.RawMessage `json:"report,omitempty"`
	RetentionExpiresAt *time.Time      `json:"retention_expires_at,omitempty"`
}

// clone returns a deep copy of j.
func (j Job) clone() Job {
	out := j
	if j.Report != nil {
		out.Report = append(json.RawMessage(nil), j.Report...)
	}
	if j.RetentionExpiresAt != nil {
		t := *j.RetentionExpiresAt
		out.RetentionExpiresAt = &t
	}
	return out
}
