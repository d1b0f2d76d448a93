// Package httphandler is the HTTP driving adapter exposing run history, the
// scan schedule and manual triggers as a JSON API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// ScanTrigger is the scheduling surface the API drives. *application.Scheduler
// satisfies it.
type ScanTrigger interface {
	Trigger(ctx context.Context) (*model.Run, error)
	Next() time.Time
	Expression() string
	LastRun() *model.Run
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	runStore   driven.RunStore
	trigger    ScanTrigger
	dispatcher driven.WorkflowDispatcher
	defaultRef string
	logger     *slog.Logger
}

// NewHandler creates a Handler. dispatcher may be nil, in which case the
// workflow endpoints answer 503.
func NewHandler(
	runStore driven.RunStore,
	trigger ScanTrigger,
	dispatcher driven.WorkflowDispatcher,
	defaultRef string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		runStore:   runStore,
		trigger:    trigger,
		dispatcher: dispatcher,
		defaultRef: defaultRef,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("POST /api/v1/runs", h.TriggerRun)
	mux.HandleFunc("GET /api/v1/schedule", h.Schedule)
	mux.HandleFunc("GET /api/v1/workflow/runs", h.ListWorkflowRuns)
	mux.HandleFunc("POST /api/v1/workflow/dispatch", h.DispatchWorkflow)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListRuns returns the most recent runs, newest first. Matches are omitted.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.runStore.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single run with its matches.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.runStore.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

// TriggerRun starts a scan immediately and blocks until it completes. A scan
// that ran but failed (for example, the alert could not be sent) is still
// reported as created; its status carries the failure.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.trigger.Trigger(r.Context())
	if run == nil {
		if err == nil {
			err = errors.New("scan produced no run")
		}
		h.logger.Error("manual scan failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "scan unavailable")
		return
	}

	if err != nil {
		h.logger.Warn("manual scan finished with error", "run_id", run.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, toRunResponse(*run))
}

// Schedule returns the cron expression, the next fire time, and the last run
// this process started.
func (h *Handler) Schedule(w http.ResponseWriter, _ *http.Request) {
	resp := ScheduleResponse{
		Expression: h.trigger.Expression(),
		NextRun:    formatTime(h.trigger.Next()),
	}
	if last := h.trigger.LastRun(); last != nil {
		lr := toRunResponse(*last)
		resp.LastRun = &lr
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListWorkflowRuns returns recent runs of the CI workflow.
func (h *Handler) ListWorkflowRuns(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "remote dispatch not configured")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.dispatcher.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list workflow runs", "error", err)
		writeError(w, http.StatusBadGateway, "failed to list workflow runs")
		return
	}

	resp := make([]WorkflowRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toWorkflowRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DispatchWorkflow fires the CI workflow's on-demand trigger. The body is
// optional; an empty ref falls back to the configured default.
func (h *Handler) DispatchWorkflow(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "remote dispatch not configured")
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ref == "" {
		req.Ref = h.defaultRef
	}

	if err := h.dispatcher.Dispatch(r.Context(), req.Ref); err != nil {
		h.logger.Error("workflow dispatch failed", "ref", req.Ref, "error", err)
		writeError(w, http.StatusBadGateway, "workflow dispatch failed")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseLimit reads the optional ?limit= query parameter. On failure it writes
// a 400 and returns false.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultRunLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxRunLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return 0, false
	}
	return limit, true
}
