package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// ConfigFileName is the name of the persisted hierarchy document inside DataDir.
const ConfigFileName = "config.json"

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir         string
	FetchTimeout    time.Duration
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka measurement publishing; enabled when brokers are configured.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// SQLite measurement archive; disabled when empty.
	ArchivePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "10s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	dataDir, err := resolveDataDir(os.Getenv("DATA_DIR"))
	if err != nil {
		return nil, err
	}

	logFormat := strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json"))
	if logFormat != "json" && logFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (allowed: json, text)", logFormat)
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DataDir:         dataDir,
		FetchTimeout:    fetchTimeout,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       logFormat,
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "station-measurements"),

		ArchivePath: strings.TrimSpace(os.Getenv("ARCHIVE_PATH")),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

// resolveDataDir defaults to a data/ directory next to the running executable.
func resolveDataDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate executable for DATA_DIR default: %w", err)
		}
		dir = filepath.Join(filepath.Dir(exe), "data")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("DATA_DIR %q: %w", dir, err)
	}
	return abs, nil
}
