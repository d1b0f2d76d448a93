package model

// Match is a symbol whose window candle passed the doji and range filters.
type Match struct {
	Symbol  string
	Pattern Pattern
	Candle  Candle
}

// Alert is the payload handed to a Notifier: the matches of one run plus the
// context needed to describe them.
type Alert struct {
	RunID       string
	Window      string
	MaxRangePct float64
	Note        string
	Matches     []Match
}
