// Package config provides configuration management for the harvest CLI.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	ServerURL   string `koanf:"server_url"`
	HistoryPath string `koanf:"history_path"`
	Verbose     bool   `koanf:"verbose"`
	Output      string `koanf:"output"`
	Plain       bool   `koanf:"plain"`

	// Timer cadences, parsed separately from duration strings.
	PollInterval time.Duration `koanf:"-"`
	AnimInterval time.Duration `koanf:"-"`
	ErrorDisplay time.Duration `koanf:"-"`
}

// Default configuration values.
const (
	DefaultServerURL   = "http://localhost:8600"
	DefaultHistoryFile = ".harvest/history.db"
	DefaultOutput      = "table"

	DefaultPollInterval = "500ms"
	DefaultAnimInterval = "400ms"
	DefaultErrorDisplay = "4s"
)
