package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/gopalvishwakrma/dojialert/internal/adapter/driven/github"
)

// newTestDispatcher creates a Dispatcher backed by the given httptest handler.
func newTestDispatcher(t *testing.T, handler http.Handler) *ghAdapter.Dispatcher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	d, err := ghAdapter.NewDispatcherWithHTTPClient(server.Client(), server.URL+"/", "owner/stocks", "doji_alert.yml")
	require.NoError(t, err)
	return d
}

func TestNewDispatcher_InvalidRepo(t *testing.T) {
	_, err := ghAdapter.NewDispatcher("token", "stocks", "doji_alert.yml")
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	var gotRef string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/owner/stocks/actions/workflows/doji_alert.yml/dispatches", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Ref string `json:"ref"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRef = body.Ref
		w.WriteHeader(http.StatusNoContent)
	})

	d := newTestDispatcher(t, mux)

	require.NoError(t, d.Dispatch(context.Background(), "main"))
	assert.Equal(t, "main", gotRef)
}

func TestDispatch_Error(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Workflow does not have 'workflow_dispatch' trigger"}`))
	})

	d := newTestDispatcher(t, handler)

	err := d.Dispatch(context.Background(), "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doji_alert.yml")
}

func TestRecentRuns(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/owner/stocks/actions/workflows/doji_alert.yml/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_count": 3,
			"workflow_runs": [
				{"id": 3, "event": "workflow_dispatch", "status": "in_progress", "html_url": "https://example.test/runs/3", "created_at": "2026-03-03T03:51:00Z"},
				{"id": 2, "event": "schedule", "status": "completed", "conclusion": "success", "created_at": "2026-03-02T03:50:00Z"},
				{"id": 1, "event": "schedule", "status": "completed", "conclusion": "failure", "created_at": "2026-03-01T03:50:00Z"}
			]
		}`))
	})

	d := newTestDispatcher(t, mux)

	runs, err := d.RecentRuns(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].ID)
	assert.Equal(t, "workflow_dispatch", runs[0].Event)
	assert.Equal(t, "in_progress", runs[0].Status)
	assert.Equal(t, "", runs[0].Conclusion)
	assert.Equal(t, "https://example.test/runs/3", runs[0].HTMLURL)
	assert.Equal(t, time.Date(2026, 3, 3, 3, 51, 0, 0, time.UTC), runs[0].CreatedAt.UTC())
	assert.Equal(t, "success", runs[1].Conclusion)
}

func TestRecentRuns_ZeroLimit(t *testing.T) {
	d := newTestDispatcher(t, http.NotFoundHandler())

	runs, err := d.RecentRuns(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, runs)
}
