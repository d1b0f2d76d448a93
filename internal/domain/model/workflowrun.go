package model

import "time"

// WorkflowRun is one execution of the scheduled workflow as reported by the
// hosted runner.
type WorkflowRun struct {
	ID         int64
	Event      string
	Status     string
	Conclusion string
	HTMLURL    string
	CreatedAt  time.Time
}
