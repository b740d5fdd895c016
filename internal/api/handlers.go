package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/store"
)

// Ledger is the subset of the store the API reads.
type Ledger interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	ListFailures(ctx context.Context, filter resilience.FailureFilter) ([]resilience.FailureEntry, error)
}

// Handler holds the API's dependencies.
type Handler struct {
	store   Ledger
	version string
	log     *zap.Logger
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version,omitempty"`
	LastRun *model.Run `json:"last_run,omitempty"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context(), store.RunFilter{Limit: 1})
	if err != nil {
		h.log.Error("health: list runs", zap.Error(err))
		WriteProblem(w, r, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}

	resp := HealthResponse{Status: "ok", Version: h.version}
	if len(runs) > 0 {
		resp.LastRun = &runs[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /runs?kind=&status=&limit=&offset=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:   model.RunKind(q.Get("kind")),
		Status: model.RunStatus(q.Get("status")),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		h.log.Error("list runs", zap.Error(err))
		WriteProblem(w, r, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteProblem(w, r, http.StatusNotFound, "run "+id+" not found")
		return
	}
	if err != nil {
		h.log.Error("get run", zap.String("run_id", id), zap.Error(err))
		WriteProblem(w, r, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListFailures handles GET /runs/{id}/failures?phase=&type=
func (h *Handler) ListFailures(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetRun(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteProblem(w, r, http.StatusNotFound, "run "+id+" not found")
			return
		}
		h.log.Error("get run", zap.String("run_id", id), zap.Error(err))
		WriteProblem(w, r, http.StatusInternalServerError, "failed to load run")
		return
	}

	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	entries, err := h.store.ListFailures(r.Context(), resilience.FailureFilter{
		RunID:     id,
		Phase:     resilience.Phase(q.Get("phase")),
		ErrorType: resilience.ErrorType(q.Get("type")),
		Limit:     limit,
	})
	if err != nil {
		h.log.Error("list failures", zap.String("run_id", id), zap.Error(err))
		WriteProblem(w, r, http.StatusInternalServerError, "failed to list failures")
		return
	}
	if entries == nil {
		entries = []resilience.FailureEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
