package model

import "time"

// Trend is the directional regime of the SAR state machine.
type Trend int8

const (
	TrendDown Trend = -1
	TrendUp   Trend = 1
)

func (t Trend) String() string {
	if t == TrendDown {
		return "DOWN"
	}
	return "UP"
}

// Signal is the composite per-bar trading directive.
type Signal int8

const (
	SignalShort Signal = -1
	SignalFlat  Signal = 0
	SignalLong  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Votes holds the two directional votes behind a signal, each in {-1, 0, +1}.
type Votes struct {
	SAR int8 `json:"sar"`
	MA  int8 `json:"ma"`
}

// Evaluation is the aligned output of one pipeline run over a bar series.
// SAR is padded with the first close so every series has one value per bar.
type Evaluation struct {
	Symbol      string    `json:"symbol"`
	Interval    string    `json:"interval"`
	Bars        []OHLCV   `json:"-"`
	SAR         []float64 `json:"sar"`
	MA          []float64 `json:"ma"`
	Votes       []Votes   `json:"votes"`
	Signals     []Signal  `json:"signals"`
	Trend       Trend     `json:"trend"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Len returns the number of aligned bars.
func (e *Evaluation) Len() int { return len(e.Signals) }

// Latest returns the index of the most recent bar, or -1 if empty.
func (e *Evaluation) Latest() int { return len(e.Signals) - 1 }

// LatestSignal returns the signal on the most recent bar, Flat when empty.
func (e *Evaluation) LatestSignal() Signal {
	if i := e.Latest(); i >= 0 {
		return e.Signals[i]
	}
	return SignalFlat
}

// SignalEvent is emitted when the latest signal of an instrument changes.
type SignalEvent struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	From     Signal    `json:"from"`
	To       Signal    `json:"to"`
	BarTime  time.Time `json:"bar_time"`
	Close    float64   `json:"close"`
	SAR      float64   `json:"sar"`
	MA       float64   `json:"ma"`
	Trend    Trend     `json:"trend"`
	At       time.Time `json:"at"`
}

func (t Trend) MarshalText() ([]byte, error)  { return []byte(t.String()), nil }
func (s Signal) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
