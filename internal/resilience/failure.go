package resilience

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Phase names the pipeline stage a failure happened in.
type Phase string

const (
	PhaseExtract   Phase = "extract"
	PhaseUpsert    Phase = "upsert"
	PhaseBranches  Phase = "branches"
	PhaseInvoices  Phase = "invoices"
	PhaseReconcile Phase = "reconcile"
	PhaseMirror    Phase = "mirror"
	PhaseInit      Phase = "init"
)

// FailureEntry is a per-record defect kept for forensic inspection. Entries
// are never replayed automatically.
type FailureEntry struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Phase     Phase     `json:"phase"`
	RecordKey string    `json:"record_key"`
	Error     string    `json:"error"`
	ErrorType ErrorType `json:"error_type"`
	Class     Class     `json:"class"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFailure builds an entry for err. IDs are ULIDs so entries sort by time.
func NewFailure(runID string, phase Phase, recordKey string, err error) FailureEntry {
	return FailureEntry{
		ID:        ulid.Make().String(),
		RunID:     runID,
		Phase:     phase,
		RecordKey: recordKey,
		Error:     err.Error(),
		ErrorType: TypeOf(err),
		Class:     Classify(err),
		CreatedAt: time.Now().UTC(),
	}
}

// FailureFilter specifies criteria for listing failure entries.
type FailureFilter struct {
	RunID     string    `json:"run_id,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Recorder persists failure entries.
type Recorder interface {
	RecordFailure(ctx context.Context, entry FailureEntry) error
}

// NopRecorder discards entries.
type NopRecorder struct{}

// RecordFailure implements Recorder.
func (NopRecorder) RecordFailure(context.Context, FailureEntry) error { return nil }
