package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// RawYamlConfig mirrors the config file. Durations are expressed in
// milliseconds, matching the wire-facing timings.
type RawYamlConfig struct {
	MaxPlayers            int    `yaml:"maxPlayers"`
	ReservationGraceMS    int    `yaml:"reservationGraceMs"`
	PlayAgainTimeoutMS    int    `yaml:"playAgainTimeoutMs"`
	IdleSweepIntervalMS   int    `yaml:"idleSweepIntervalMs"`
	IdleRoomMaxAgeMS      int    `yaml:"idleRoomMaxAgeMs"`
	HistoryDatabasePath   string `yaml:"historyDatabasePath"`
	DisableHistoryStorage bool   `yaml:"disableHistoryStorage"`
}

type Config struct {
	MaxPlayers            int
	ReservationGrace      time.Duration
	PlayAgainTimeout      time.Duration
	IdleSweepInterval     time.Duration
	IdleRoomMaxAge        time.Duration
	HistoryDatabasePath   string
	DisableHistoryStorage bool
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxPlayers:          2,
		ReservationGrace:    10 * time.Second,
		PlayAgainTimeout:    15 * time.Second,
		IdleSweepInterval:   time.Minute,
		IdleRoomMaxAge:      30 * time.Minute,
		HistoryDatabasePath: "history.db",
	}
}

// ParseConfig reads a yaml config file, applying defaults for any value
// left unset.
func ParseConfig(path string) (*Config, error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	var rawConfig RawYamlConfig
	if err := yaml.Unmarshal(configFile, &rawConfig); err != nil {
		return nil, fmt.Errorf("unable to parse yaml config: %w", err)
	}

	cfg := Default()
	if rawConfig.MaxPlayers > 0 {
		cfg.MaxPlayers = rawConfig.MaxPlayers
	}
	// Round resolution is defined for exactly two slots.
	if cfg.MaxPlayers > 2 {
		cfg.MaxPlayers = 2
	}
	if rawConfig.ReservationGraceMS > 0 {
		cfg.ReservationGrace = time.Duration(rawConfig.ReservationGraceMS) * time.Millisecond
	}
	if rawConfig.PlayAgainTimeoutMS > 0 {
		cfg.PlayAgainTimeout = time.Duration(rawConfig.PlayAgainTimeoutMS) * time.Millisecond
	}
	if rawConfig.IdleSweepIntervalMS > 0 {
		cfg.IdleSweepInterval = time.Duration(rawConfig.IdleSweepIntervalMS) * time.Millisecond
	}
	if rawConfig.IdleRoomMaxAgeMS > 0 {
		cfg.IdleRoomMaxAge = time.Duration(rawConfig.IdleRoomMaxAgeMS) * time.Millisecond
	}
	if rawConfig.HistoryDatabasePath != "" {
		cfg.HistoryDatabasePath = rawConfig.HistoryDatabasePath
	}
	cfg.DisableHistoryStorage = rawConfig.DisableHistoryStorage

	return cfg, nil
}
