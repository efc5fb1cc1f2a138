package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/logging"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/publisher"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/scheduler"
	"TrendSentinel/internal/strategy"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath, ".env")
	if err != nil {
		boot := logging.New("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("symbol", cfg.Instrument.Symbol).Str("interval", cfg.Instrument.Interval).Msg("TrendSentinel starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init fetcher and collector
	fetcher := &collector.MockFetcher{BasePrice: 100}
	log.Info().Str("source", fetcher.Name()).Msg("data source")
	col := collector.NewCollector(fetcher, cfg.Instrument.Symbol, cfg.Instrument.Interval, cfg.Instrument.Limit, log)

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Init publishers
	var pubs publisher.Multi
	var servers []*http.Server
	if cfg.Stream.Addr != "" {
		hub := publisher.NewHub(log)
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.ServeWs)
		srv := &http.Server{Addr: cfg.Stream.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("stream server")
			}
		}()
		servers = append(servers, srv)
		pubs = append(pubs, hub)
		log.Info().Str("addr", cfg.Stream.Addr).Msg("websocket stream listening on /ws")
	}
	if cfg.AMQP.URI != "" {
		ap, err := publisher.NewAMQPPublisher(ctx, cfg.AMQP.URI, cfg.AMQP.Queue, log)
		if err != nil {
			log.Warn().Err(err).Msg("init amqp publisher failed, skipping")
		} else {
			pubs = append(pubs, ap)
		}
	}
	defer pubs.Close()

	// Init metrics
	if cfg.Metrics.Addr != "" {
		servers = append(servers, metrics.Serve(cfg.Metrics.Addr, log))
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening on /metrics")
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, strategy.Params{
		SAR:      cfg.Indicator.SAR,
		MAWindow: cfg.Indicator.MAWindow,
	}, n, pubs, rec, log)
	if err := sched.Register(cfg.Schedule.EvalCron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, evaluating now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				log.Error().Err(err).Msg("initial evaluation failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.EvalCron).Msg("TrendSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	log.Info().Msg("TrendSentinel stopped")
}
