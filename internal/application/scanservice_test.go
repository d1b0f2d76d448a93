package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

func mustIST(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func testRules(loc *time.Location) ScanRules {
	return ScanRules{
		Exchange:    loc,
		StartHour:   9,
		StartMinute: 15,
		Window:      5 * time.Minute,
		BodyRatio:   0.1,
		MaxRangePct: 1,
		Note:        "morning scan",
	}
}

// series builds four ticks inside the 09:15-09:20 window: open, high, low, close.
func series(loc *time.Location, o, h, l, c float64) []model.Tick {
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, loc)
	return []model.Tick{
		{At: base.Add(-time.Minute), Price: o * 2}, // outside window
		{At: base, Price: o},
		{At: base.Add(time.Minute), Price: h},
		{At: base.Add(2 * time.Minute), Price: l},
		{At: base.Add(4 * time.Minute), Price: c},
		{At: base.Add(5 * time.Minute), Price: c * 3}, // window end is exclusive
	}
}

func newTestScan(t *testing.T, market *mockMarket, notifier *mockNotifier, store *mockRunStore, symbols []string) *ScanService {
	t.Helper()
	loc := mustIST(t)
	var runStore driven.RunStore
	if store != nil {
		runStore = store
	}
	svc := NewScanService(market, notifier, runStore, symbols, testRules(loc))
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 21, 0, 0, loc) }
	return svc
}

func TestScanService_Run_MatchesAndNotifies(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{
			"INFY":  series(loc, 1500, 1504, 1498, 1500.2), // doji, 0.4% range
			"TCS":   series(loc, 3500, 3560, 3490, 3550),   // big body
			"SBIN":  series(loc, 800, 808, 800, 800.1),     // gravestone, 1% range: rejected
			"WIPRO": series(loc, 500, 502, 500, 500.05),    // gravestone, 0.4% range
		},
	}
	notifier := &mockNotifier{}
	store := &mockRunStore{}
	svc := newTestScan(t, market, notifier, store, []string{"INFY", "TCS", "SBIN", "WIPRO", "NODATA"})

	run, err := svc.Run(context.Background(), model.TriggerManual)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.TriggerManual, run.Trigger)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
	assert.Equal(t, 5, run.SymbolsScanned)
	assert.Equal(t, 1, run.SymbolsSkipped)
	assert.Equal(t, 0, run.FetchErrors)
	assert.True(t, run.Notified)

	require.Len(t, run.Matches, 2)
	assert.Equal(t, "INFY", run.Matches[0].Symbol)
	assert.Equal(t, model.PatternDoji, run.Matches[0].Pattern)
	assert.Equal(t, "WIPRO", run.Matches[1].Symbol)
	assert.Equal(t, model.PatternGravestoneDoji, run.Matches[1].Pattern)

	require.Len(t, notifier.alerts, 1)
	alert := notifier.alerts[0]
	assert.Equal(t, run.ID, alert.RunID)
	assert.Equal(t, "09:15-09:20 IST", alert.Window)
	assert.Equal(t, "morning scan", alert.Note)
	assert.Len(t, alert.Matches, 2)

	require.Len(t, store.saved, 1)
	assert.Equal(t, run.ID, store.saved[0].ID)
	assert.Equal(t, []string{"INFY", "TCS", "SBIN", "WIPRO", "NODATA"}, market.calls)
}

func TestScanService_Run_NoMatchesSkipsNotification(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{"TCS": series(loc, 3500, 3560, 3490, 3550)},
	}
	notifier := &mockNotifier{}
	svc := newTestScan(t, market, notifier, nil, []string{"TCS"})

	run, err := svc.Run(context.Background(), model.TriggerSchedule)

	require.NoError(t, err)
	assert.Empty(t, run.Matches)
	assert.False(t, run.Notified)
	assert.Equal(t, 0, notifier.count())
}

func TestScanService_Run_FetchErrorsDoNotAbort(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{"INFY": series(loc, 1500, 1504, 1498, 1500.2)},
		errs:  map[string]error{"ACC": errors.New("status 403")},
	}
	notifier := &mockNotifier{}
	svc := newTestScan(t, market, notifier, nil, []string{"ACC", "INFY"})

	run, err := svc.Run(context.Background(), model.TriggerSchedule)

	require.NoError(t, err)
	assert.Equal(t, 1, run.FetchErrors)
	assert.Len(t, run.Matches, 1)
	assert.Equal(t, 1, notifier.count())
}

func TestScanService_Run_NonPositiveOpenIsAnError(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{
			"ZERO": series(loc, 0, 0.5, 0, 0), // gravestone shape, undefined range %
			"INFY": series(loc, 1500, 1504, 1498, 1500.2),
		},
	}
	notifier := &mockNotifier{}
	svc := newTestScan(t, market, notifier, nil, []string{"ZERO", "INFY"})

	run, err := svc.Run(context.Background(), model.TriggerSchedule)

	require.NoError(t, err)
	assert.Equal(t, 1, run.FetchErrors)
	require.Len(t, run.Matches, 1)
	assert.Equal(t, "INFY", run.Matches[0].Symbol)
}

func TestScanService_Evaluate_RejectsNonPositiveOpen(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{"ZERO": series(loc, 0, 0.5, 0, 0)},
	}
	svc := newTestScan(t, market, &mockNotifier{}, nil, []string{"ZERO"})
	start := time.Date(2026, 3, 2, 9, 15, 0, 0, loc)

	_, ok, err := svc.evaluate(context.Background(), "ZERO", start)

	assert.False(t, ok)
	assert.ErrorIs(t, err, model.ErrNonPositiveOpen)
}

func TestScanService_Run_NotifyFailureFailsRun(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{"INFY": series(loc, 1500, 1504, 1498, 1500.2)},
	}
	notifier := &mockNotifier{err: model.ErrMissingCredentials}
	store := &mockRunStore{}
	svc := newTestScan(t, market, notifier, store, []string{"INFY"})

	run, err := svc.Run(context.Background(), model.TriggerSchedule)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMissingCredentials)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.False(t, run.Notified)
	assert.NotEmpty(t, run.Error)
	require.Len(t, store.saved, 1)
	assert.Equal(t, model.RunStatusFailed, store.saved[0].Status)
}

func TestScanService_Run_CanceledContext(t *testing.T) {
	loc := mustIST(t)
	market := &mockMarket{
		ticks: map[string][]model.Tick{"INFY": series(loc, 1500, 1504, 1498, 1500.2)},
	}
	notifier := &mockNotifier{}
	store := &mockRunStore{}
	svc := newTestScan(t, market, notifier, store, []string{"INFY"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := svc.Run(ctx, model.TriggerManual)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, 0, notifier.count())
	assert.Len(t, store.saved, 1, "canceled runs are still recorded")
}

func TestScanService_Run_HistoryFailureIsNotFatal(t *testing.T) {
	market := &mockMarket{}
	store := &mockRunStore{err: errors.New("disk full")}
	svc := newTestScan(t, market, &mockNotifier{}, store, []string{"INFY"})

	run, err := svc.Run(context.Background(), model.TriggerManual)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
}

func TestScanRules_WindowStartUsesExchangeDate(t *testing.T) {
	loc := mustIST(t)
	rules := testRules(loc)

	// 22:00 UTC on Mar 1 is 03:30 IST on Mar 2.
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	start := rules.windowStart(now)

	assert.Equal(t, time.Date(2026, 3, 2, 9, 15, 0, 0, loc), start)
	assert.Equal(t, "09:15-09:20 IST", rules.describe(start))
}
