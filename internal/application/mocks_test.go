package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// --- Mock implementations ---

type mockMarket struct {
	ticks map[string][]model.Tick
	errs  map[string]error
	calls []string
	mu    sync.Mutex
}

func (m *mockMarket) FetchTicks(ctx context.Context, symbol string) ([]model.Tick, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	ticks, ok := m.ticks[symbol]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", symbol, model.ErrNoTicks)
	}
	return ticks, nil
}

type mockNotifier struct {
	alerts []model.Alert
	err    error
	mu     sync.Mutex
}

func (m *mockNotifier) Notify(_ context.Context, alert model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

type mockRunStore struct {
	saved []model.Run
	err   error
	mu    sync.Mutex
}

func (m *mockRunStore) Save(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, run)
	return m.err
}

func (m *mockRunStore) Get(_ context.Context, id string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saved {
		if r.ID == id {
			run := r
			return &run, nil
		}
	}
	return nil, nil
}

func (m *mockRunStore) ListRecent(_ context.Context, limit int) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return append([]model.Run(nil), m.saved[:limit]...), nil
}
