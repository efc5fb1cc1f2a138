package strategy

import (
	"errors"
	"fmt"

	"TrendSentinel/internal/model"
)

// ErrLengthMismatch is returned when the close, SAR and MA series are not aligned.
var ErrLengthMismatch = errors.New("series length mismatch")

// direction returns +1 if price is above level, -1 if below, 0 if equal.
func direction(price, level float64) int8 {
	switch {
	case price > level:
		return 1
	case price < level:
		return -1
	default:
		return 0
	}
}

// combine issues Long or Short only when both votes agree; anything else is Flat.
func combine(v model.Votes) model.Signal {
	switch {
	case v.SAR == 1 && v.MA == 1:
		return model.SignalLong
	case v.SAR == -1 && v.MA == -1:
		return model.SignalShort
	default:
		return model.SignalFlat
	}
}

// Votes computes the SAR and MA directional votes for each bar.
func Votes(close, sar, ma []float64) ([]model.Votes, error) {
	if len(sar) != len(close) || len(ma) != len(close) {
		return nil, fmt.Errorf("%w: close=%d sar=%d ma=%d", ErrLengthMismatch, len(close), len(sar), len(ma))
	}
	votes := make([]model.Votes, len(close))
	for i, c := range close {
		votes[i] = model.Votes{SAR: direction(c, sar[i]), MA: direction(c, ma[i])}
	}
	return votes, nil
}

// Generate derives the composite signal for each bar from aligned close, SAR
// and moving-average series. Every bar is evaluated independently.
func Generate(close, sar, ma []float64) ([]model.Signal, error) {
	votes, err := Votes(close, sar, ma)
	if err != nil {
		return nil, err
	}
	return signalsFromVotes(votes), nil
}

func signalsFromVotes(votes []model.Votes) []model.Signal {
	signals := make([]model.Signal, len(votes))
	for i, v := range votes {
		signals[i] = combine(v)
	}
	return signals
}
