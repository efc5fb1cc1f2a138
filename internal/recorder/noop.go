package recorder

import "TrendSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvaluation(_ *model.Evaluation) error      { return nil }
func (n *NoopRecorder) RecordSignalChange(_ *model.SignalEvent) error   { return nil }
func (n *NoopRecorder) LastSignal(_ string) (model.Signal, bool, error) { return model.SignalFlat, false, nil }
func (n *NoopRecorder) Close() error                                    { return nil }
