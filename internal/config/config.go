package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Event snapshot sources.
const (
	SourceFile  = "file"
	SourceKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Snapshot source. EventsFile empty means the bundled snapshot.
	EventsSource    string
	EventsFile      string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaTimeout    time.Duration
	RefreshSchedule string

	SessionTTL           time.Duration
	HighlightCacheSize   int
	DefaultViewportWidth int

	MapProfilePath string
	Map            MapProfile
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	kafkaTimeout, err := parsePositiveDuration("KAFKA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	sessionTTL, err := parsePositiveDuration("SESSION_TTL", "30m")
	if err != nil {
		return nil, err
	}

	viewportWidth, err := parsePositiveInt("DEFAULT_VIEWPORT_WIDTH", 1280)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		EventsSource:    strings.ToLower(sharedcfg.EnvOrDefault("EVENTS_SOURCE", SourceFile)),
		EventsFile:      os.Getenv("EVENTS_FILE"),
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "road-events"),
		KafkaTimeout:    kafkaTimeout,
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),

		SessionTTL:           sessionTTL,
		HighlightCacheSize:   parseHighlightCacheSize(),
		DefaultViewportWidth: viewportWidth,

		MapProfilePath: os.Getenv("MAP_PROFILE"),
	}

	switch cfg.EventsSource {
	case SourceFile:
	case SourceKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when EVENTS_SOURCE is kafka")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when EVENTS_SOURCE is kafka")
		}
	default:
		return nil, fmt.Errorf("invalid EVENTS_SOURCE %q: want %q or %q", cfg.EventsSource, SourceFile, SourceKafka)
	}

	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
		}
	}

	profile, err := LoadMapProfile(cfg.MapProfilePath)
	if err != nil {
		return nil, err
	}
	cfg.Map = profile

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseHighlightCacheSize() int {
	if s := os.Getenv("HIGHLIGHT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
