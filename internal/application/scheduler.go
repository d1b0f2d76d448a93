package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// Scanner is the use case the scheduler drives. *ScanService satisfies it.
type Scanner interface {
	Run(ctx context.Context, trigger model.TriggerKind) (*model.Run, error)
}

// triggerRequest represents a manual trigger.
type triggerRequest struct {
	done chan triggerResult
}

type triggerResult struct {
	run *model.Run
	err error
}

// Scheduler fires a scan on a recurring UTC calendar rule and serves
// on-demand trigger requests. Scans run on a single loop and never overlap.
type Scheduler struct {
	scanner   Scanner
	schedule  cron.Schedule
	expr      string
	triggerCh chan triggerRequest
	now       func() time.Time

	mu      sync.Mutex
	nextRun time.Time
	lastRun *model.Run
}

// NewScheduler parses expr as a standard five-field cron expression evaluated
// in UTC.
func NewScheduler(scanner Scanner, expr string) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	return &Scheduler{
		scanner:   scanner,
		schedule:  schedule,
		expr:      expr,
		triggerCh: make(chan triggerRequest),
		now:       time.Now,
	}, nil
}

// Expression returns the cron expression the scheduler was built with.
func (s *Scheduler) Expression() string {
	return s.expr
}

// Next returns the next scheduled fire time in UTC. Before Start is called it
// is computed from the current time.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextRun.IsZero() {
		return s.schedule.Next(s.now().UTC())
	}
	return s.nextRun
}

// LastRun returns the most recent run started by this scheduler, or nil.
func (s *Scheduler) LastRun() *model.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Start blocks running scheduled scans and manual trigger requests until the
// context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		now := s.now().UTC()
		next := s.schedule.Next(now)
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		slog.Info("next scheduled scan", "at", next.Format(time.RFC3339), "schedule", s.expr)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("scheduler stopped")
			return
		case <-timer.C:
			if _, err := s.runScan(ctx, model.TriggerSchedule); err != nil {
				slog.Error("scheduled scan failed", "error", err)
			}
		case req := <-s.triggerCh:
			timer.Stop()
			run, err := s.runScan(ctx, model.TriggerManual)
			req.done <- triggerResult{run: run, err: err}
		}
	}
}

// Trigger requests an immediate scan, bypassing the schedule. It blocks until
// the scan completes or the context is canceled.
func (s *Scheduler) Trigger(ctx context.Context) (*model.Run, error) {
	done := make(chan triggerResult, 1)
	req := triggerRequest{done: done}

	select {
	case s.triggerCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.run, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Scheduler) runScan(ctx context.Context, trigger model.TriggerKind) (*model.Run, error) {
	run, err := s.scanner.Run(ctx, trigger)
	if run != nil {
		s.mu.Lock()
		s.lastRun = run
		s.mu.Unlock()
	}
	return run, err
}
