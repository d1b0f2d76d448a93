package driven

import (
	"context"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// WorkflowDispatcher defines the driven port for the hosted runner's manual
// trigger path.
type WorkflowDispatcher interface {
	// Dispatch requests an on-demand run of the workflow on the given git ref.
	Dispatch(ctx context.Context, ref string) error
	// RecentRuns lists up to limit of the workflow's most recent runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]model.WorkflowRun, error)
}
