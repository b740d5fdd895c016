// Package store persists the run ledger: one row per sync run and one row
// per record that failed inside it.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the sync ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind, window string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, counters model.Counters, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Failures
	RecordFailure(ctx context.Context, entry resilience.FailureEntry) error
	ListFailures(ctx context.Context, filter resilience.FailureFilter) ([]resilience.FailureEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
