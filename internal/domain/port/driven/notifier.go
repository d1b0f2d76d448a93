package driven

import (
	"context"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// Notifier defines the driven port for delivering an alert.
// Returns model.ErrMissingCredentials before any network activity when the
// adapter has no usable credentials.
type Notifier interface {
	Notify(ctx context.Context, alert model.Alert) error
}
