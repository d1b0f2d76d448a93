package driven

import (
	"context"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// MarketDataClient defines the driven port for fetching intraday price series.
type MarketDataClient interface {
	// FetchTicks returns today's tick series for symbol in chronological order.
	// Returns model.ErrNoTicks (wrapped) when the source has no data for the symbol.
	FetchTicks(ctx context.Context, symbol string) ([]model.Tick, error)
}
