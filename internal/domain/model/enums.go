package model

// Pattern names the candlestick formation detected in a window.
type Pattern string

const (
	PatternDoji           Pattern = "Doji"
	PatternGravestoneDoji Pattern = "Gravestone Doji"
)

// TriggerKind records what started a run.
type TriggerKind string

const (
	TriggerSchedule TriggerKind = "schedule"
	TriggerManual   TriggerKind = "manual"
)

// RunStatus represents the outcome of a scan run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)
