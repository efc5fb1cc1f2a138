package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/strategy"
)

type fakeSource struct {
	series *model.BarSeries
	err    error
}

func (f *fakeSource) Collect(context.Context) (*model.BarSeries, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*model.SignalEvent
}

func (f *fakePublisher) Publish(_ context.Context, evt *model.SignalEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type seededRecorder struct {
	recorder.NoopRecorder
	last model.Signal
}

func (s *seededRecorder) LastSignal(string) (model.Signal, bool, error) { return s.last, true, nil }

type slowRecorder struct {
	recorder.NoopRecorder
	delay time.Duration
}

func (s *slowRecorder) RecordEvaluation(*model.Evaluation) error {
	time.Sleep(s.delay)
	return nil
}

func errorCount(t *testing.T, symbol string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "evaluation_errors_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "symbol" && l.GetValue() == symbol {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func trendSeries(n int, from, step float64) *model.BarSeries {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := from + float64(i)*step
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * 30 * time.Minute),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return &model.BarSeries{Symbol: "BTC-USDT", Interval: "30m", Bars: bars}
}

func testParams() strategy.Params {
	p := strategy.DefaultParams()
	p.MAWindow = 5
	return p
}

func newTestScheduler(src BarSource, n Notifier, pub *fakePublisher, rec recorder.Recorder) *Scheduler {
	return NewScheduler(context.Background(), src, testParams(), n, pub, rec, zerolog.Nop())
}

func TestRunNow_EmitsOnChangeOnly(t *testing.T) {
	src := &fakeSource{series: trendSeries(40, 100, 2)}
	n := &fakeNotifier{}
	pub := &fakePublisher{}
	s := newTestScheduler(src, n, pub, recorder.NewNoopRecorder())

	ev, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", ev.Symbol)
	assert.Equal(t, "30m", ev.Interval)
	assert.Equal(t, model.SignalLong, ev.LatestSignal())
	require.Len(t, pub.events, 1)
	assert.Equal(t, model.SignalFlat, pub.events[0].From)
	assert.Equal(t, model.SignalLong, pub.events[0].To)
	assert.Len(t, n.messages, 1)

	_, err = s.RunNow()
	require.NoError(t, err)
	assert.Len(t, pub.events, 1, "unchanged signal must not emit")

	src.series = trendSeries(40, 200, -2)
	ev, err = s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, model.SignalShort, ev.LatestSignal())
	require.Len(t, pub.events, 2)
	evt := pub.events[1]
	assert.Equal(t, model.SignalLong, evt.From)
	assert.Equal(t, model.SignalShort, evt.To)
	assert.Equal(t, ev.Bars[ev.Latest()].Time, evt.BarTime)
	assert.Equal(t, ev.SAR[ev.Latest()], evt.SAR)
	assert.Len(t, n.messages, 2)
	assert.Same(t, ev, s.Last())
}

func TestRunNow_SeedsPreviousSignalFromRecorder(t *testing.T) {
	pub := &fakePublisher{}
	rec := &seededRecorder{last: model.SignalLong}
	s := newTestScheduler(&fakeSource{series: trendSeries(40, 100, 2)}, nil, pub, rec)

	_, err := s.RunNow()
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestRunNow_NilNotifier(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(&fakeSource{series: trendSeries(40, 200, -2)}, nil, pub, nil)

	_, err := s.RunNow()
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, model.SignalShort, pub.events[0].To)
}

func TestRunNow_ConcurrentRunsEmitOnce(t *testing.T) {
	n := &fakeNotifier{}
	pub := &fakePublisher{}
	rec := &slowRecorder{delay: 50 * time.Millisecond}
	s := newTestScheduler(&fakeSource{series: trendSeries(60, 100, 2)}, n, pub, rec)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RunNow()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, pub.events, 1)
	assert.Len(t, n.messages, 1)
	assert.Contains(t, s.HandleCommand("/status"), "runs: 3")
}

func TestRunNow_CollectError(t *testing.T) {
	boom := errors.New("boom")
	pub := &fakePublisher{}
	s := newTestScheduler(&fakeSource{err: boom}, nil, pub, nil)
	before := errorCount(t, unknownSymbol)

	_, err := s.RunNow()
	require.ErrorIs(t, err, boom)
	assert.Nil(t, s.Last())
	assert.Empty(t, pub.events)
	assert.Contains(t, s.HandleCommand("/status"), "failures: 1")
	assert.Equal(t, before+1, errorCount(t, unknownSymbol))
}

func TestRunNow_EmptySeries(t *testing.T) {
	src := &fakeSource{series: &model.BarSeries{Symbol: "ETH-USDT"}}
	s := newTestScheduler(src, nil, &fakePublisher{}, nil)

	_, err := s.RunNow()
	require.ErrorIs(t, err, strategy.ErrNoBars)
}

func TestRunNow_WithCollector(t *testing.T) {
	fetcher := &collector.MockFetcher{BasePrice: 100, Step: time.Hour, End: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := collector.NewCollector(fetcher, "SOL-USDT", "1h", 120, zerolog.Nop())
	s := newTestScheduler(c, nil, &fakePublisher{}, nil)

	ev, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "SOL-USDT", ev.Symbol)
	assert.Equal(t, 120, ev.Len())
}

func TestHandleCommand(t *testing.T) {
	s := newTestScheduler(&fakeSource{series: trendSeries(40, 100, 2)}, nil, &fakePublisher{}, nil)

	reply := s.HandleCommand("/signal")
	assert.Contains(t, reply, "BTC-USDT")
	assert.Contains(t, reply, "LONG")
	require.NotNil(t, s.Last())

	status := s.HandleCommand(" /STATUS ")
	assert.Contains(t, status, "runs: 1")
	assert.Contains(t, status, "BTC-USDT: LONG")

	help := s.HandleCommand("/what")
	assert.True(t, strings.Contains(help, "/signal"))
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(&fakeSource{series: trendSeries(10, 100, 1)}, nil, &fakePublisher{}, nil)
	require.NoError(t, s.Register("*/10 * * * * *"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}
