package calculator

import (
	"errors"
	"fmt"

	"TrendSentinel/internal/model"
)

const (
	DefaultInitialAcceleration = 0.02
	DefaultMaxAcceleration     = 0.2
)

// ErrInvalidSARParams is returned when the acceleration parameters are out of range.
var ErrInvalidSARParams = errors.New("invalid sar parameters")

// SARParams configures the Parabolic SAR acceleration factor.
type SARParams struct {
	InitialAcceleration float64 `yaml:"initial_acceleration"`
	MaxAcceleration     float64 `yaml:"max_acceleration"`
}

// DefaultSARParams returns the conventional 0.02 / 0.2 pair.
func DefaultSARParams() SARParams {
	return SARParams{
		InitialAcceleration: DefaultInitialAcceleration,
		MaxAcceleration:     DefaultMaxAcceleration,
	}
}

// Validate checks initial > 0 and max >= initial.
func (p SARParams) Validate() error {
	if p.InitialAcceleration <= 0 {
		return fmt.Errorf("%w: initial acceleration must be positive, got %v", ErrInvalidSARParams, p.InitialAcceleration)
	}
	if p.MaxAcceleration < p.InitialAcceleration {
		return fmt.Errorf("%w: max acceleration %v is below initial %v", ErrInvalidSARParams, p.MaxAcceleration, p.InitialAcceleration)
	}
	return nil
}

// SARPoint describes one step of the SAR scan.
type SARPoint struct {
	Value    float64     // emitted SAR for the bar, taken before any reversal
	Trend    model.Trend // regime the value was emitted under
	Reversed bool        // the bar crossed the stop
	Stop     float64     // stop carried into the next bar
	Extreme  float64     // extreme point after the bar
	Accel    float64     // acceleration factor after the bar
}

// sarState is threaded through the scan by value; nothing survives a call.
type sarState struct {
	trend   model.Trend
	extreme float64
	accel   float64
	stop    float64
}

func seedState(first model.OHLCV, p SARParams) sarState {
	return sarState{
		trend:   model.TrendUp,
		extreme: first.High,
		accel:   p.InitialAcceleration,
		stop:    first.Low,
	}
}

// step advances the state by one bar. Both regimes share this routine: with
// sign = +1 (Up) the favorable price is the high and the adverse one the low,
// with sign = -1 (Down) the roles swap and every comparison is mirrored.
func (s sarState) step(bar model.OHLCV, p SARParams) (sarState, SARPoint) {
	sign := float64(s.trend)
	favorable, adverse := bar.High, bar.Low
	if s.trend == model.TrendDown {
		favorable, adverse = bar.Low, bar.High
	}

	s.stop += s.accel * (s.extreme - s.stop)
	pt := SARPoint{Value: s.stop, Trend: s.trend}

	switch {
	case sign*(adverse-s.stop) < 0:
		s.trend = -s.trend
		s.stop = s.extreme
		s.extreme = adverse
		s.accel = p.InitialAcceleration
		pt.Reversed = true
	case sign*(favorable-s.extreme) > 0:
		s.extreme = favorable
		s.accel = min(s.accel+p.InitialAcceleration, p.MaxAcceleration)
	}

	pt.Stop, pt.Extreme, pt.Accel = s.stop, s.extreme, s.accel
	return s, pt
}

// TraceSAR runs the SAR scan and reports every step. Bar 0 seeds the state
// and produces no point, so the result has len(bars)-1 entries. Fewer than two
// bars yields an empty, non-nil slice and no error.
func TraceSAR(bars []model.OHLCV, p SARParams) ([]SARPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return []SARPoint{}, nil
	}

	points := make([]SARPoint, 0, len(bars)-1)
	st := seedState(bars[0], p)
	for _, bar := range bars[1:] {
		var pt SARPoint
		st, pt = st.step(bar, p)
		points = append(points, pt)
	}
	return points, nil
}

// ComputeSAR returns the Parabolic SAR series for bars[1:]. Only High and Low
// are read. See TraceSAR for the short-input contract.
func ComputeSAR(bars []model.OHLCV, p SARParams) ([]float64, error) {
	points, err := TraceSAR(bars, p)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(points))
	for i, pt := range points {
		values[i] = pt.Value
	}
	return values, nil
}

// PadSeed aligns a SAR series with its bars by prepending the first close.
// This is a display convention: the seed bar has no real SAR value.
func PadSeed(sar []float64, bars []model.OHLCV) []float64 {
	if len(bars) == 0 {
		return []float64{}
	}
	padded := make([]float64, 0, len(sar)+1)
	padded = append(padded, bars[0].Close)
	return append(padded, sar...)
}
