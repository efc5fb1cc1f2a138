package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/publisher"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/strategy"
)

// unknownSymbol labels failures that happen before a series names its instrument.
const unknownSymbol = "unknown"

// BarSource supplies the bar series to evaluate.
type BarSource interface {
	Collect(ctx context.Context) (*model.BarSeries, error)
}

// Notifier delivers human-readable alerts.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the evaluation pipeline on a cron schedule and reacts to signal changes.
type Scheduler struct {
	Cron      *cron.Cron
	Source    BarSource
	Params    strategy.Params
	Notifier  Notifier
	Publisher publisher.Publisher
	Recorder  recorder.Recorder
	Ctx       context.Context

	runMu      sync.Mutex
	mu         sync.Mutex
	last       *model.Evaluation
	lastSignal map[string]model.Signal
	runs       int
	failures   int
	log        zerolog.Logger
}

// NewScheduler creates a new Scheduler. A nil notifier disables alerts and a
// nil publisher drops events.
func NewScheduler(ctx context.Context, src BarSource, params strategy.Params, n Notifier, pub publisher.Publisher, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	if pub == nil {
		pub = publisher.Noop{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Source:     src,
		Params:     params,
		Notifier:   n,
		Publisher:  pub,
		Recorder:   rec,
		Ctx:        ctx,
		lastSignal: make(map[string]model.Signal),
		log:        log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the evaluation job on the given cron expression (seconds field enabled).
func (s *Scheduler) Register(evalCron string) error {
	if _, err := s.Cron.AddFunc(evalCron, s.evaluationTask); err != nil {
		return fmt.Errorf("register evaluation task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes one evaluation immediately.
func (s *Scheduler) RunNow() (*model.Evaluation, error) {
	return s.evaluate(s.Ctx)
}

// Last returns the most recent successful evaluation, or nil.
func (s *Scheduler) Last() *model.Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) evaluationTask() {
	if _, err := s.evaluate(s.Ctx); err != nil {
		s.log.Error().Err(err).Msg("evaluation failed")
	}
}

// evaluate runs one collect → evaluate → compare → fan-out cycle. Cycles are
// serialized so concurrent callers never report the same transition twice.
func (s *Scheduler) evaluate(ctx context.Context) (*model.Evaluation, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	series, err := s.Source.Collect(ctx)
	if err != nil {
		s.fail(unknownSymbol)
		return nil, fmt.Errorf("collect: %w", err)
	}

	ev, err := strategy.Evaluate(series.Bars, s.Params)
	if err != nil {
		s.fail(series.Symbol)
		return nil, fmt.Errorf("evaluate %s: %w", series.Symbol, err)
	}
	ev.Symbol = series.Symbol
	ev.Interval = series.Interval

	i := ev.Latest()
	latest := ev.Signals[i]
	metrics.EvaluationsTotal.WithLabelValues(ev.Symbol).Inc()
	metrics.LatestSignal.WithLabelValues(ev.Symbol).Set(float64(latest))
	metrics.LatestSAR.WithLabelValues(ev.Symbol).Set(ev.SAR[i])

	prev := s.previousSignal(ev.Symbol)
	if err := s.Recorder.RecordEvaluation(ev); err != nil {
		s.log.Error().Err(err).Msg("record evaluation")
	}

	s.mu.Lock()
	s.last = ev
	s.lastSignal[ev.Symbol] = latest
	s.runs++
	s.mu.Unlock()

	s.log.Info().
		Str("symbol", ev.Symbol).
		Int("bars", ev.Len()).
		Float64("close", ev.Bars[i].Close).
		Float64("sar", ev.SAR[i]).
		Float64("ma", ev.MA[i]).
		Stringer("trend", ev.Trend).
		Stringer("signal", latest).
		Msg("evaluation complete")

	if latest != prev {
		s.onSignalChange(ctx, ev, prev)
	}
	return ev, nil
}

// previousSignal returns the last known signal, falling back to the recorder
// after a restart. With no history the previous signal is FLAT.
func (s *Scheduler) previousSignal(symbol string) model.Signal {
	s.mu.Lock()
	sig, ok := s.lastSignal[symbol]
	s.mu.Unlock()
	if ok {
		return sig
	}
	sig, ok, err := s.Recorder.LastSignal(symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("load last signal")
	}
	if !ok {
		return model.SignalFlat
	}
	return sig
}

func (s *Scheduler) onSignalChange(ctx context.Context, ev *model.Evaluation, prev model.Signal) {
	i := ev.Latest()
	evt := &model.SignalEvent{
		Symbol:   ev.Symbol,
		Interval: ev.Interval,
		From:     prev,
		To:       ev.Signals[i],
		BarTime:  ev.Bars[i].Time,
		Close:    ev.Bars[i].Close,
		SAR:      ev.SAR[i],
		MA:       ev.MA[i],
		Trend:    ev.Trend,
		At:       time.Now(),
	}
	s.log.Info().Str("symbol", evt.Symbol).Stringer("from", evt.From).Stringer("to", evt.To).Msg("signal changed")
	metrics.SignalChangesTotal.WithLabelValues(evt.Symbol, evt.To.String()).Inc()

	if err := s.Recorder.RecordSignalChange(evt); err != nil {
		s.log.Error().Err(err).Msg("record signal change")
	}
	if err := s.Publisher.Publish(ctx, evt); err != nil {
		s.log.Error().Err(err).Msg("publish signal change")
	}
	s.trySend(ctx, notifier.FormatSignalChange(evt))
}

func (s *Scheduler) fail(symbol string) {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
	metrics.EvaluationErrorsTotal.WithLabelValues(symbol).Inc()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/signal":
		ev := s.Last()
		if ev == nil {
			var err error
			if ev, err = s.RunNow(); err != nil {
				return fmt.Sprintf("❌ evaluation failed: %v", err)
			}
		}
		return notifier.FormatSignalReport(ev)
	case "/status":
		s.mu.Lock()
		defer s.mu.Unlock()
		var b strings.Builder
		b.WriteString(fmt.Sprintf("runs: %d | failures: %d\n", s.runs, s.failures))
		for symbol, sig := range s.lastSignal {
			b.WriteString(fmt.Sprintf("%s: %s\n", symbol, sig))
		}
		if s.last != nil {
			b.WriteString(fmt.Sprintf("last evaluation: %s", s.last.EvaluatedAt.Format("2006-01-02 15:04:05")))
		}
		return b.String()
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
