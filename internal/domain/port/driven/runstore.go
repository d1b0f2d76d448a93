package driven

import (
	"context"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// RunStore defines the driven port for run history persistence.
// History is an audit trail; scans never read it back.
type RunStore interface {
	Save(ctx context.Context, run model.Run) error
	// Get returns (nil, nil) when no run has the given ID.
	Get(ctx context.Context, id string) (*model.Run, error)
	ListRecent(ctx context.Context, limit int) ([]model.Run, error)
}
