package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

type fakeScanner struct {
	mu       sync.Mutex
	triggers []model.TriggerKind
	err      error
}

func (f *fakeScanner) Run(_ context.Context, trigger model.TriggerKind) (*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	status := model.RunStatusSucceeded
	if f.err != nil {
		status = model.RunStatusFailed
	}
	return &model.Run{ID: "run", Trigger: trigger, Status: status}, f.err
}

func (f *fakeScanner) calls() []model.TriggerKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TriggerKind(nil), f.triggers...)
}

// startScheduler runs s in the background and returns a stop function that
// cancels it and waits for Start to return.
func startScheduler(t *testing.T, s *Scheduler) (context.Context, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	return ctx, func() {
		cancel()
		<-done
	}
}

func TestNewScheduler_InvalidExpression(t *testing.T) {
	_, err := NewScheduler(&fakeScanner{}, "not a cron")
	assert.Error(t, err)
}

func TestScheduler_NextIsDailyFixedUTC(t *testing.T) {
	s, err := NewScheduler(&fakeScanner{}, "50 3 * * *")
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC) }

	assert.Equal(t, time.Date(2026, 3, 3, 3, 50, 0, 0, time.UTC), s.Next())
	assert.Equal(t, "50 3 * * *", s.Expression())
}

func TestScheduler_ManualTrigger(t *testing.T) {
	defer goleak.VerifyNone(t)

	scanner := &fakeScanner{}
	s, err := NewScheduler(scanner, "50 3 * * *")
	require.NoError(t, err)

	ctx, stop := startScheduler(t, s)
	defer stop()

	run, err := s.Trigger(ctx)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.TriggerManual, run.Trigger)
	assert.Equal(t, []model.TriggerKind{model.TriggerManual}, scanner.calls())
	assert.Equal(t, run, s.LastRun())
}

func TestScheduler_ManualTriggerPropagatesError(t *testing.T) {
	defer goleak.VerifyNone(t)

	scanner := &fakeScanner{err: errors.New("smtp down")}
	s, err := NewScheduler(scanner, "50 3 * * *")
	require.NoError(t, err)

	ctx, stop := startScheduler(t, s)
	defer stop()

	run, err := s.Trigger(ctx)

	assert.EqualError(t, err, "smtp down")
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}

func TestScheduler_ScheduledFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	scanner := &fakeScanner{}
	s, err := NewScheduler(scanner, "* * * * *")
	require.NoError(t, err)

	// Pin the clock just short of a minute boundary so the next fire is imminent.
	s.now = func() time.Time {
		return time.Now().Truncate(time.Minute).Add(time.Minute - 50*time.Millisecond)
	}

	_, stop := startScheduler(t, s)
	defer stop()

	require.Eventually(t, func() bool {
		return len(scanner.calls()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, model.TriggerSchedule, scanner.calls()[0])
}

func TestScheduler_TriggerRespectsContext(t *testing.T) {
	s, err := NewScheduler(&fakeScanner{}, "50 3 * * *")
	require.NoError(t, err)

	// Not started: nobody receives the request.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Trigger(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
