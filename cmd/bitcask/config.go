package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ananthvk/bitcask"
	"github.com/goccy/go-yaml"
)

// Config is the YAML configuration of the CLI
type Config struct {
	DataDir        string       `yaml:"data_dir"`
	MaxSegmentSize int64        `yaml:"max_segment_size"`
	SyncWrites     bool         `yaml:"sync_writes"`
	Logger         LoggerConfig `yaml:"logger"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func defaultConfig() Config {
	return Config{
		DataDir:        "./data",
		MaxSegmentSize: bitcask.DefaultMaxSegmentSize,
		Logger:         LoggerConfig{Level: "warn"},
	}
}

// loadConfig reads the YAML file at path on top of the defaults. A missing file is not an error
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// newLogger builds a text or JSON logger writing to stderr, so that it does not mix with shell output
func newLogger(cfg LoggerConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

func (cfg Config) storeOptions(logger *slog.Logger) []bitcask.Option {
	return []bitcask.Option{
		bitcask.WithMaxSegmentSize(cfg.MaxSegmentSize),
		bitcask.WithSyncWrites(cfg.SyncWrites),
		bitcask.WithLogger(logger),
	}
}
