package model

import "time"

// RunKind identifies which batch flow produced a run.
type RunKind string

const (
	RunKindPull RunKind = "pull"
	RunKindPush RunKind = "push"
)

// RunStatus represents the current state of a sync run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// SyncCounts tallies per-record outcomes of a pull or push batch.
type SyncCounts struct {
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Add sums o into c.
func (c *SyncCounts) Add(o SyncCounts) {
	c.Created += o.Created
	c.Updated += o.Updated
	c.Skipped += o.Skipped
	c.Failed += o.Failed
}

// Total returns the number of records that reached a decision.
func (c SyncCounts) Total() int {
	return c.Created + c.Updated + c.Skipped + c.Failed
}

// SyncRun is one recorded write-mode pull or push.
type SyncRun struct {
	ID          string     `json:"id" yaml:"id"`
	Kind        RunKind    `json:"kind" yaml:"kind"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Counts      SyncCounts `json:"counts" yaml:"counts"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
