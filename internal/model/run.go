package model

import (
	"time"
)

// RunKind identifies which sync phase a run executed.
type RunKind string

const (
	RunKindContacts RunKind = "contacts"
	RunKindInvoices RunKind = "invoices"
)

// RunStatus represents the current state of a sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusNoData    RunStatus = "no_data"
	RunStatusFailed    RunStatus = "failed"
)

// Counters tallies records attempted and written during a run.
type Counters struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.Total += other.Total
	c.Successful += other.Successful
	c.Failed += other.Failed
}

// Run represents a single execution of one sync phase.
type Run struct {
	ID         string     `json:"id"`
	Kind       RunKind    `json:"kind"`
	Status     RunStatus  `json:"status"`
	Window     string     `json:"window"`
	Counters   Counters   `json:"counters"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the run reached a terminal status.
func (r Run) Finished() bool {
	return r.Status != RunStatusRunning
}
