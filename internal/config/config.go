// Package config provides configuration management for go-stockblog.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

var AppVersion = "-unset-" // will be set at build time

const (
	DefaultListenPort   = 5000
	DefaultHistoryDays  = 30
	DefaultHistoryLimit = 120 // provider page size for ranged aggregates
	DefaultDataDir      = "./data"
	DefaultDBFile       = "database.db"

	// development secret, override it in production via config file or -secret
	DefaultSecretKey = "flask_secret_key"
)

// DefaultTickers is the allow-list used when no config file overrides it
var DefaultTickers = []string{"NVDA", "AAPL"}

// MainConfig holds the main configuration for go-stockblog
type MainConfig struct {
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	Market   MarketConfig   `yaml:"market"`

	AppVersion string `yaml:"-"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort int    `yaml:"listen_port"`
	SSL        bool   `yaml:"ssl"`
	CertFile   string `yaml:"cert_file,omitempty"`
	KeyFile    string `yaml:"key_file,omitempty"`
	SecretKey  string `yaml:"secret_key"` // signs flash message cookies
	Debug      bool   `yaml:"debug"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DataDir string `yaml:"data_dir"`
	File    string `yaml:"file"`
}

// MarketConfig holds the quote provider configuration
type MarketConfig struct {
	APIKey       string   `yaml:"api_key"`
	Tickers      []string `yaml:"tickers"`
	HistoryDays  int      `yaml:"history_days"`
	HistoryLimit int      `yaml:"history_limit"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	tickers := make([]string, len(DefaultTickers))
	copy(tickers, DefaultTickers)
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort: DefaultListenPort,
			SecretKey:  DefaultSecretKey,
		},
		Database: DatabaseConfig{
			DataDir: DefaultDataDir,
			File:    DefaultDBFile,
		},
		Market: MarketConfig{
			Tickers:      tickers,
			HistoryDays:  DefaultHistoryDays,
			HistoryLimit: DefaultHistoryLimit,
		},
	}
}

// LoadFile overlays the YAML file at path onto the current values.
// Keys absent from the file keep their current value.
func (c *MainConfig) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf("[CONFIG]: loaded %s (%d tickers)", path, len(c.Market.Tickers))
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *MainConfig) Validate() error {
	if c.Web.ListenPort < 1024 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1024 and 65535)", c.Web.ListenPort)
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return fmt.Errorf("SSL enabled but cert_file or key_file not specified in config")
	}
	if c.Web.SecretKey == "" {
		return fmt.Errorf("secret_key must not be empty")
	}
	if c.Market.HistoryDays <= 0 {
		return fmt.Errorf("history_days must be positive, got %d", c.Market.HistoryDays)
	}
	if c.Market.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.Market.HistoryLimit)
	}
	if c.AllowList().Len() == 0 {
		return fmt.Errorf("at least one ticker must be tracked")
	}
	return nil
}

// AllowList builds the immutable ticker allow-list from Market.Tickers
func (c *MainConfig) AllowList() AllowList {
	return NewAllowList(c.Market.Tickers...)
}

// AllowList is a fixed, ordered set of tracked ticker symbols.
// The zero value tracks nothing.
type AllowList struct {
	symbols []string
	index   map[string]struct{}
}

// NewAllowList normalizes symbols to upper case and drops blanks and duplicates
func NewAllowList(symbols ...string) AllowList {
	al := AllowList{index: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := al.index[s]; dup {
			continue
		}
		al.index[s] = struct{}{}
		al.symbols = append(al.symbols, s)
	}
	return al
}

// Contains reports whether ticker is tracked. Matching is case sensitive,
// "nvda" is not the tracked "NVDA".
func (al AllowList) Contains(ticker string) bool {
	_, ok := al.index[ticker]
	return ok
}

// Symbols returns a copy of the tracked tickers in configuration order
func (al AllowList) Symbols() []string {
	out := make([]string, len(al.symbols))
	copy(out, al.symbols)
	return out
}

// Len returns the number of tracked tickers
func (al AllowList) Len() int {
	return len(al.symbols)
}
