package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
)

func TestGenerate_Example(t *testing.T) {
	signals, err := Generate(
		[]float64{100, 100},
		[]float64{95, 105},
		[]float64{98, 98},
	)
	require.NoError(t, err)
	assert.Equal(t, []model.Signal{model.SignalLong, model.SignalFlat}, signals)
}

func TestGenerate_VoteTable(t *testing.T) {
	tests := []struct {
		name     string
		close    float64
		sar      float64
		ma       float64
		expected model.Signal
	}{
		{"both up", 100, 90, 95, model.SignalLong},
		{"both down", 100, 110, 105, model.SignalShort},
		{"sar up ma down", 100, 90, 105, model.SignalFlat},
		{"sar down ma up", 100, 110, 95, model.SignalFlat},
		{"sar tie ma up", 100, 100, 95, model.SignalFlat},
		{"sar up ma tie", 100, 90, 100, model.SignalFlat},
		{"sar down ma tie", 100, 110, 100, model.SignalFlat},
		{"both tie", 100, 100, 100, model.SignalFlat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals, err := Generate([]float64{tt.close}, []float64{tt.sar}, []float64{tt.ma})
			require.NoError(t, err)
			require.Len(t, signals, 1)
			assert.Equal(t, tt.expected, signals[0])
		})
	}
}

func TestGenerate_LengthMismatch(t *testing.T) {
	tests := []struct {
		name           string
		close, sar, ma []float64
	}{
		{"short sar", []float64{1, 2}, []float64{1}, []float64{1, 2}},
		{"short ma", []float64{1, 2}, []float64{1, 2}, []float64{1}},
		{"long sar", []float64{1}, []float64{1, 2}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals, err := Generate(tt.close, tt.sar, tt.ma)
			assert.ErrorIs(t, err, ErrLengthMismatch)
			assert.Nil(t, signals)
		})
	}
}

func TestGenerate_Empty(t *testing.T) {
	signals, err := Generate(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestVotes(t *testing.T) {
	votes, err := Votes([]float64{100, 100, 100}, []float64{95, 105, 100}, []float64{98, 98, 102})
	require.NoError(t, err)
	assert.Equal(t, []model.Votes{{SAR: 1, MA: 1}, {SAR: -1, MA: 1}, {SAR: 0, MA: -1}}, votes)
}
