// Package config loads replay settings from a Settings.ini file. Every key
// has a default, so a missing file yields a fully usable configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Config holds all tunable replay settings.
type Config struct {
	// [Perception]
	PerceptionURL       string
	PerceptionTimeoutMs int
	PollIntervalMs      int

	// [Safety]
	AbortKeyEnabled    bool
	CountdownSeconds   int
	BlockSensitiveText bool
	RestoreWindows     bool

	// [Replay]
	DatabasePath        string
	DefaultMaxRetries   int
	DefaultRetryDelayMs int
	TypingChunkSize     int
	TypingIntervalMs    int
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PerceptionURL:       "http://127.0.0.1:8000",
		PerceptionTimeoutMs: 8000,
		PollIntervalMs:      500,
		AbortKeyEnabled:     true,
		CountdownSeconds:    0,
		BlockSensitiveText:  false,
		RestoreWindows:      true,
		DatabasePath:        "data/workflows.db",
		DefaultMaxRetries:   3,
		DefaultRetryDelayMs: 1000,
		TypingChunkSize:     25,
		TypingIntervalMs:    20,
	}
}

// Load reads configuration from an ini file. A missing file is not an
// error: defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	perception := file.Section("Perception")
	cfg.PerceptionURL = perception.Key("serviceUrl").MustString(cfg.PerceptionURL)
	cfg.PerceptionTimeoutMs = perception.Key("requestTimeoutMs").MustInt(cfg.PerceptionTimeoutMs)
	cfg.PollIntervalMs = perception.Key("pollIntervalMs").MustInt(cfg.PollIntervalMs)
	if cfg.PollIntervalMs < 500 {
		// 500ms floor keeps the OCR service from being hammered.
		cfg.PollIntervalMs = 500
	}

	safetySec := file.Section("Safety")
	cfg.AbortKeyEnabled = safetySec.Key("abortKey").MustBool(cfg.AbortKeyEnabled)
	cfg.CountdownSeconds = safetySec.Key("countdownSeconds").MustInt(cfg.CountdownSeconds)
	cfg.BlockSensitiveText = safetySec.Key("blockSensitiveText").MustBool(cfg.BlockSensitiveText)
	cfg.RestoreWindows = safetySec.Key("restoreWindows").MustBool(cfg.RestoreWindows)

	replay := file.Section("Replay")
	cfg.DatabasePath = replay.Key("databasePath").MustString(cfg.DatabasePath)
	cfg.DefaultMaxRetries = replay.Key("defaultMaxRetries").MustInt(cfg.DefaultMaxRetries)
	cfg.DefaultRetryDelayMs = replay.Key("defaultRetryDelayMs").MustInt(cfg.DefaultRetryDelayMs)
	cfg.TypingChunkSize = replay.Key("typingChunkSize").MustInt(cfg.TypingChunkSize)
	cfg.TypingIntervalMs = replay.Key("typingIntervalMs").MustInt(cfg.TypingIntervalMs)

	return cfg, nil
}
