package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/odor-dispersion-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/odor-dispersion-service/internal/adapter/kafka"
	"github.com/couchcryptid/odor-dispersion-service/internal/adapter/openweathermap"
	"github.com/couchcryptid/odor-dispersion-service/internal/config"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
	"github.com/couchcryptid/odor-dispersion-service/internal/pipeline"
	"github.com/couchcryptid/odor-dispersion-service/internal/session"
	"github.com/couchcryptid/odor-dispersion-service/internal/weather"
	"github.com/couchcryptid/odor-dispersion-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board := weather.NewBoard()

	var publisher session.PlumePublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	}

	manager := session.NewManager(board, worker.NewFactory(worker.Options{
		InboxSize: cfg.WorkerInboxSize,
		Logger:    logger,
		Metrics:   metrics,
	}), publisher, session.Config{
		ThrottleInterval: cfg.ThrottleInterval,
		FrameInterval:    cfg.FrameInterval,
		MaxCountMode:     cfg.MaxCountMode,
		ClusterThreshold: cfg.ClusterThreshold,
		Logger:           logger,
		Metrics:          metrics,
	})

	// Live weather polling (feature-flagged via OPENWEATHER_ENABLED / OPENWEATHER_API_KEY).
	if cfg.OpenWeatherEnabled {
		client := openweathermap.NewClient(openweathermap.Options{
			APIKey:  cfg.OpenWeatherAPIKey,
			Lat:     cfg.OpenWeatherLat,
			Lon:     cfg.OpenWeatherLon,
			Timeout: cfg.OpenWeatherTimeout,
			RPS:     cfg.OpenWeatherRPS,
			Metrics: metrics,
			Logger:  logger,
		})
		source := openweathermap.NewCachedSource(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, nil, metrics)
		poller := weather.NewPoller(source, board, weather.PollerOptions{
			Interval: cfg.OpenWeatherPollInterval,
			OnChange: func() { manager.RefreshAll() },
			Logger:   logger,
			Metrics:  metrics,
		})
		metrics.WeatherEnabled.Set(1)
		logger.Info("openweathermap polling enabled", "interval", cfg.OpenWeatherPollInterval, "cache_size", cfg.WeatherCacheSize)

		go func() {
			if err := poller.Run(ctx); err != nil {
				logger.Error("weather poller error", "error", err)
			}
		}()
	} else {
		logger.Info("openweathermap polling disabled")
	}

	opts := httpadapter.Options{
		Sessions:         manager,
		Board:            board,
		MaxCountMode:     cfg.MaxCountMode,
		ClusterThreshold: cfg.ClusterThreshold,
		Metrics:          metrics,
		Logger:           logger,
	}

	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		router := pipeline.NewRouter(manager, board, nil, logger)
		p := pipeline.New(reader, router, logger, metrics, cfg.BatchSize)
		opts.Ready = p

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka disabled, serving HTTP sessions only")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, opts)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	manager.CloseAll()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
