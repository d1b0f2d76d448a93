// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

// ScanRules holds the window and thresholds a scan applies to each symbol.
type ScanRules struct {
	// Exchange is the location whose wall clock defines the window.
	Exchange    *time.Location
	StartHour   int
	StartMinute int
	Window      time.Duration
	BodyRatio   float64
	MaxRangePct float64
	Note        string
}

// windowStart returns the window start on the exchange date of now.
func (r ScanRules) windowStart(now time.Time) time.Time {
	local := now.In(r.Exchange)
	y, m, d := local.Date()
	return time.Date(y, m, d, r.StartHour, r.StartMinute, 0, 0, r.Exchange)
}

// describe formats the window as "09:15-09:20 IST".
func (r ScanRules) describe(start time.Time) string {
	end := start.Add(r.Window)
	return fmt.Sprintf("%s-%s %s", start.Format("15:04"), end.Format("15:04"), start.Format("MST"))
}

// ScanService runs one pass over the symbol universe: fetch, aggregate,
// classify, filter, then notify once if anything matched.
type ScanService struct {
	market   driven.MarketDataClient
	notifier driven.Notifier
	runStore driven.RunStore // nil disables history.
	symbols  []string
	rules    ScanRules
	now      func() time.Time
}

// NewScanService creates a ScanService. runStore may be nil.
func NewScanService(
	market driven.MarketDataClient,
	notifier driven.Notifier,
	runStore driven.RunStore,
	symbols []string,
	rules ScanRules,
) *ScanService {
	return &ScanService{
		market:   market,
		notifier: notifier,
		runStore: runStore,
		symbols:  symbols,
		rules:    rules,
		now:      time.Now,
	}
}

// Symbols returns the universe this service scans.
func (s *ScanService) Symbols() []string {
	return s.symbols
}

// Run performs one scan. Per-symbol fetch failures are logged and counted but
// do not fail the run. The returned error is non-nil only when the context
// ends mid-scan or the notification could not be delivered; the run summary
// is returned in every case.
func (s *ScanService) Run(ctx context.Context, trigger model.TriggerKind) (*model.Run, error) {
	run := &model.Run{
		ID:        ksuid.New().String(),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}

	start := s.rules.windowStart(s.now())
	slog.Info("scan started",
		"run_id", run.ID,
		"trigger", string(trigger),
		"symbols", len(s.symbols),
		"window", s.rules.describe(start),
	)

	err := s.scan(ctx, run, start)
	if err == nil && len(run.Matches) > 0 {
		alert := model.Alert{
			RunID:       run.ID,
			Window:      s.rules.describe(start),
			MaxRangePct: s.rules.MaxRangePct,
			Note:        s.rules.Note,
			Matches:     run.Matches,
		}
		if notifyErr := s.notifier.Notify(ctx, alert); notifyErr != nil {
			err = fmt.Errorf("notify: %w", notifyErr)
		} else {
			run.Notified = true
		}
	}

	s.finish(ctx, run, err)
	return run, err
}

// scan walks the universe in order and appends matches to run.
func (s *ScanService) scan(ctx context.Context, run *model.Run, start time.Time) error {
	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		match, ok, err := s.evaluate(ctx, symbol, start)
		run.SymbolsScanned++
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, model.ErrNoTicks) {
				run.SymbolsSkipped++
				slog.Debug("no ticks for symbol", "symbol", symbol)
				continue
			}
			run.FetchErrors++
			slog.Error("symbol fetch failed", "symbol", symbol, "error", err)
			continue
		}
		if !ok {
			continue
		}

		run.Matches = append(run.Matches, match)
		slog.Info("doji matched",
			"symbol", symbol,
			"pattern", string(match.Pattern),
			"range_pct", fmt.Sprintf("%.2f", match.Candle.RangePercent()),
		)
	}
	return nil
}

// evaluate applies the full filter to a single symbol.
func (s *ScanService) evaluate(ctx context.Context, symbol string, start time.Time) (model.Match, bool, error) {
	ticks, err := s.market.FetchTicks(ctx, symbol)
	if err != nil {
		return model.Match{}, false, err
	}

	candle, ok := AggregateWindow(ticks, start, s.rules.Window)
	if !ok {
		slog.Debug("no ticks inside window", "symbol", symbol, "ticks", len(ticks))
		return model.Match{}, false, nil
	}

	pattern, ok := ClassifyDoji(candle, s.rules.BodyRatio)
	if !ok {
		return model.Match{}, false, nil
	}
	if candle.Open <= 0 {
		return model.Match{}, false, fmt.Errorf("%s open %v: %w", symbol, candle.Open, model.ErrNonPositiveOpen)
	}
	if candle.RangePercent() >= s.rules.MaxRangePct {
		return model.Match{}, false, nil
	}

	return model.Match{Symbol: symbol, Pattern: pattern, Candle: candle}, true, nil
}

// finish stamps the outcome, logs the summary, and records history best-effort.
// History is written with a fresh context so a canceled scan is still recorded.
func (s *ScanService) finish(ctx context.Context, run *model.Run, err error) {
	run.FinishedAt = s.now().UTC()
	run.Status = model.RunStatusSucceeded
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	}

	slog.Info("scan complete",
		"run_id", run.ID,
		"status", string(run.Status),
		"scanned", run.SymbolsScanned,
		"skipped", run.SymbolsSkipped,
		"fetch_errors", run.FetchErrors,
		"matches", len(run.Matches),
		"notified", run.Notified,
		"duration", run.Duration().Round(time.Millisecond),
	)

	if s.runStore == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if saveErr := s.runStore.Save(saveCtx, *run); saveErr != nil {
		slog.Error("record run failed", "run_id", run.ID, "error", saveErr)
	}
}
