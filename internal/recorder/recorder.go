package recorder

import "TrendSentinel/internal/model"

// Recorder persists evaluation history for later analysis.
type Recorder interface {
	// RecordEvaluation stores the latest bar of an evaluation.
	RecordEvaluation(ev *model.Evaluation) error
	// RecordSignalChange stores a transition of the latest signal.
	RecordSignalChange(evt *model.SignalEvent) error
	// LastSignal returns the most recently recorded signal for symbol.
	// ok is false when nothing has been recorded yet.
	LastSignal(symbol string) (sig model.Signal, ok bool, err error)
	Close() error
}
