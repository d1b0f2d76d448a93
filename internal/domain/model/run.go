package model

import "time"

// Run is the summary of one scan over the symbol universe.
type Run struct {
	ID         string
	Trigger    TriggerKind
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time

	SymbolsScanned int
	SymbolsSkipped int
	FetchErrors    int
	Notified       bool
	Error          string

	Matches []Match
}

// Duration returns how long the run took. Zero if the run has not finished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
