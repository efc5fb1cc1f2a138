package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

// ErrNoData is returned when the provider produced no bars.
var ErrNoData = errors.New("no bars returned")

// MockFetcher returns controllable fixed data for development and testing.
// Without Data it synthesises a drifting wave around BasePrice.
type MockFetcher struct {
	BasePrice float64
	Step      time.Duration
	End       time.Time
	Data      []model.OHLCV
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, _ string, _ string, limit int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Data != nil {
		bars := m.Data
		if limit > 0 && len(bars) > limit {
			bars = bars[len(bars)-limit:]
		}
		return bars, nil
	}
	return generateMockBars(m.BasePrice, m.Step, m.End, limit), nil
}

func generateMockBars(basePrice float64, step time.Duration, end time.Time, count int) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	if step <= 0 {
		step = 30 * time.Minute
	}
	if end.IsZero() {
		end = time.Now().Truncate(step)
	}
	bars := make([]model.OHLCV, count)
	prev := basePrice
	for i := 0; i < count; i++ {
		x := float64(i)
		p := basePrice * (1 + 0.05*math.Sin(x/12) + 0.0005*x)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   prev,
			High:   math.Max(prev, p) * 1.002,
			Low:    math.Min(prev, p) * 0.998,
			Close:  p,
			Volume: 1000 + 100*math.Abs(math.Cos(x/5)),
		}
		prev = p
	}
	return bars
}

// Collector fetches bars for a single instrument and hands them to the pipeline.
type Collector struct {
	Fetcher  Fetcher
	Symbol   string
	Interval string
	Limit    int
	log      zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol, interval string, limit int, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Symbol:   symbol,
		Interval: interval,
		Limit:    limit,
		log:      log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// Collect fetches the configured bars in ascending time order.
func (c *Collector) Collect(ctx context.Context) (*model.BarSeries, error) {
	bars, err := c.Fetcher.FetchBars(ctx, c.Symbol, c.Interval, c.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	c.log.Debug().Int("bars", len(sorted)).Time("last", sorted[len(sorted)-1].Time).Msg("bars collected")
	return &model.BarSeries{
		Symbol:    c.Symbol,
		Interval:  c.Interval,
		Bars:      sorted,
		FetchedAt: time.Now(),
	}, nil
}
