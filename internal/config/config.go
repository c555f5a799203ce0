package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaEnabled     bool
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Recompute pipeline.
	ThrottleInterval time.Duration
	FrameInterval    time.Duration
	WorkerInboxSize  int
	ClusterThreshold float64
	MaxCountMode     domain.MaxCountMode

	// OpenWeatherMap polling configuration.
	OpenWeatherAPIKey       string
	OpenWeatherEnabled      bool
	OpenWeatherLat          float64
	OpenWeatherLon          float64
	OpenWeatherPollInterval time.Duration
	OpenWeatherTimeout      time.Duration
	OpenWeatherRPS          float64
	WeatherCacheSize        int
	WeatherCacheTTL         time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "odor-session-updates"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "odor-plumes"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "odor-dispersion"),
		KafkaEnabled:       sharedcfg.EnvOrDefault("KAFKA_ENABLED", "true") == "true",
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
	}

	if cfg.ThrottleInterval, err = parseDuration("THROTTLE_INTERVAL", "250ms"); err != nil {
		return nil, err
	}
	if cfg.FrameInterval, err = parseDuration("FRAME_INTERVAL", "16ms"); err != nil {
		return nil, err
	}
	if cfg.OpenWeatherPollInterval, err = parseDuration("OPENWEATHER_POLL_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.OpenWeatherTimeout, err = parseDuration("OPENWEATHER_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.WeatherCacheTTL, err = parseDuration("WEATHER_CACHE_TTL", "1m"); err != nil {
		return nil, err
	}
	if cfg.WorkerInboxSize, err = parsePositiveInt("WORKER_INBOX_SIZE", 8); err != nil {
		return nil, err
	}
	if cfg.WeatherCacheSize, err = parsePositiveInt("WEATHER_CACHE_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.ClusterThreshold, err = parseFloat("CLUSTER_THRESHOLD_METERS", 100); err != nil {
		return nil, err
	}
	if cfg.ClusterThreshold < 0 {
		return nil, errors.New("invalid CLUSTER_THRESHOLD_METERS: must not be negative")
	}
	if cfg.OpenWeatherLat, err = parseFloat("OPENWEATHER_LAT", 36.7998); err != nil {
		return nil, err
	}
	if cfg.OpenWeatherLon, err = parseFloat("OPENWEATHER_LON", 127.1375); err != nil {
		return nil, err
	}
	if cfg.OpenWeatherRPS, err = parseFloat("OPENWEATHER_RPS", 1); err != nil {
		return nil, err
	}

	mode, ok := domain.ParseMaxCountMode(sharedcfg.EnvOrDefault("MAX_COUNT_MODE", string(domain.MaxCountGlobal)))
	if !ok {
		return nil, errors.New("invalid MAX_COUNT_MODE: must be global or visible")
	}
	cfg.MaxCountMode = mode

	cfg.OpenWeatherEnabled = cfg.OpenWeatherAPIKey != ""
	if v := os.Getenv("OPENWEATHER_ENABLED"); v != "" {
		cfg.OpenWeatherEnabled = v == "true"
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.OpenWeatherEnabled && cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: must be a number", key)
	}
	return f, nil
}
