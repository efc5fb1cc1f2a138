package collector

import (
	"context"

	"TrendSentinel/internal/model"
)

// Fetcher defines the interface for fetching bars from a market data provider.
// Implementations return at most limit of the most recent bars.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error)
	Name() string
}
