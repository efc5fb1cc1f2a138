package strategy

import (
	"errors"
	"fmt"
	"time"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// ErrNoBars is returned when the pipeline is invoked without any data.
var ErrNoBars = errors.New("no bars to evaluate")

// Params bundles the indicator settings of the pipeline.
type Params struct {
	SAR      calculator.SARParams
	MAWindow int
}

// DefaultParams returns SAR(0.02, 0.2) with a 30-bar moving average.
func DefaultParams() Params {
	return Params{
		SAR:      calculator.DefaultSARParams(),
		MAWindow: calculator.DefaultMAWindow,
	}
}

// Evaluate runs bars through the SAR engine, the moving average and the
// signal generator. The SAR series is padded with the first close so all
// outputs align one-to-one with bars.
func Evaluate(bars []model.OHLCV, p Params) (*model.Evaluation, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	points, err := calculator.TraceSAR(bars, p.SAR)
	if err != nil {
		return nil, fmt.Errorf("sar: %w", err)
	}
	raw := make([]float64, len(points))
	for i, pt := range points {
		raw[i] = pt.Value
	}
	sar := calculator.PadSeed(raw, bars)

	closes := model.Closes(bars)
	ma, err := calculator.RollingMean(closes, p.MAWindow)
	if err != nil {
		return nil, fmt.Errorf("moving average: %w", err)
	}

	votes, err := Votes(closes, sar, ma)
	if err != nil {
		return nil, err
	}

	return &model.Evaluation{
		Bars:        bars,
		SAR:         sar,
		MA:          ma,
		Votes:       votes,
		Signals:     signalsFromVotes(votes),
		Trend:       currentTrend(points),
		EvaluatedAt: time.Now(),
	}, nil
}

// currentTrend reports the regime the next bar will be evaluated under.
func currentTrend(points []calculator.SARPoint) model.Trend {
	if len(points) == 0 {
		return model.TrendUp
	}
	last := points[len(points)-1]
	if last.Reversed {
		return -last.Trend
	}
	return last.Trend
}
