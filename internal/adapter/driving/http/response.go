package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the JSON representation of a scan run.
type RunResponse struct {
	ID             string `json:"id"`
	Trigger        string `json:"trigger"`
	Status         string `json:"status"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at"`
	DurationMS     int64  `json:"duration_ms"`
	SymbolsScanned int    `json:"symbols_scanned"`
	SymbolsSkipped int    `json:"symbols_skipped"`
	FetchErrors    int    `json:"fetch_errors"`
	Notified       bool   `json:"notified"`
	Error          string `json:"error,omitempty"`

	// Populated only on the single run endpoint and the trigger endpoint.
	Matches []MatchResponse `json:"matches"`
}

// MatchResponse is the JSON representation of a matched candle.
type MatchResponse struct {
	Symbol      string  `json:"symbol"`
	Pattern     string  `json:"pattern"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	RangePct    float64 `json:"range_pct"`
	WindowStart string  `json:"window_start"`
	WindowEnd   string  `json:"window_end"`
	Ticks       int     `json:"ticks"`
}

// ScheduleResponse describes the recurring scan schedule.
type ScheduleResponse struct {
	Expression string       `json:"expression"`
	NextRun    string       `json:"next_run"`
	LastRun    *RunResponse `json:"last_run"`
}

// WorkflowRunResponse is the JSON representation of a remote CI workflow run.
type WorkflowRunResponse struct {
	ID         int64  `json:"id"`
	Event      string `json:"event"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	URL        string `json:"url"`
	CreatedAt  string `json:"created_at"`
}

// DispatchRequest is the optional JSON body for the workflow dispatch endpoint.
type DispatchRequest struct {
	Ref string `json:"ref"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRunResponse converts a domain Run to its JSON response representation.
func toRunResponse(run model.Run) RunResponse {
	matches := make([]MatchResponse, 0, len(run.Matches))
	for _, m := range run.Matches {
		matches = append(matches, toMatchResponse(m))
	}

	return RunResponse{
		ID:             run.ID,
		Trigger:        string(run.Trigger),
		Status:         string(run.Status),
		StartedAt:      formatTime(run.StartedAt),
		FinishedAt:     formatTime(run.FinishedAt),
		DurationMS:     run.Duration().Milliseconds(),
		SymbolsScanned: run.SymbolsScanned,
		SymbolsSkipped: run.SymbolsSkipped,
		FetchErrors:    run.FetchErrors,
		Notified:       run.Notified,
		Error:          run.Error,
		Matches:        matches,
	}
}

// toMatchResponse converts a domain Match to its JSON representation.
// Window bounds keep their exchange-local offset.
func toMatchResponse(m model.Match) MatchResponse {
	return MatchResponse{
		Symbol:      m.Symbol,
		Pattern:     string(m.Pattern),
		Open:        m.Candle.Open,
		High:        m.Candle.High,
		Low:         m.Candle.Low,
		Close:       m.Candle.Close,
		RangePct:    m.Candle.RangePercent(),
		WindowStart: m.Candle.WindowStart.Format(time.RFC3339),
		WindowEnd:   m.Candle.WindowEnd.Format(time.RFC3339),
		Ticks:       m.Candle.Ticks,
	}
}

func toWorkflowRunResponse(r model.WorkflowRun) WorkflowRunResponse {
	return WorkflowRunResponse{
		ID:         r.ID,
		Event:      r.Event,
		Status:     r.Status,
		Conclusion: r.Conclusion,
		URL:        r.HTMLURL,
		CreatedAt:  formatTime(r.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
