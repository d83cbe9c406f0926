package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, DefaultListenPort, cfg.Web.ListenPort)
	assert.Equal(t, []string{"NVDA", "AAPL"}, cfg.Market.Tickers)
	assert.Equal(t, 30, cfg.Market.HistoryDays)
	assert.Equal(t, 120, cfg.Market.HistoryLimit)
	require.NoError(t, cfg.Validate())

	// the defaults must not alias the package level slice
	cfg.Market.Tickers[0] = "MSFT"
	assert.Equal(t, "NVDA", DefaultTickers[0])
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockblog.yaml")
	content := `
web:
  listen_port: 8080
  secret_key: not-so-secret
market:
  api_key: abc123
  tickers: [msft, " tsla ", MSFT]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, 8080, cfg.Web.ListenPort)
	assert.Equal(t, "not-so-secret", cfg.Web.SecretKey)
	assert.Equal(t, "abc123", cfg.Market.APIKey)
	assert.Equal(t, DefaultDataDir, cfg.Database.DataDir, "keys absent from the file keep their default")
	assert.Equal(t, DefaultHistoryDays, cfg.Market.HistoryDays)
	assert.Equal(t, []string{"MSFT", "TSLA"}, cfg.AllowList().Symbols())
}

func TestLoadFileErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web: [unclosed"), 0o644))
	assert.Error(t, cfg.LoadFile(path))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*MainConfig)
	}{
		{"port too low", func(c *MainConfig) { c.Web.ListenPort = 80 }},
		{"port too high", func(c *MainConfig) { c.Web.ListenPort = 70000 }},
		{"ssl without cert", func(c *MainConfig) { c.Web.SSL = true }},
		{"empty secret", func(c *MainConfig) { c.Web.SecretKey = "" }},
		{"no tickers", func(c *MainConfig) { c.Market.Tickers = []string{" ", ""} }},
		{"zero history days", func(c *MainConfig) { c.Market.HistoryDays = 0 }},
		{"negative history limit", func(c *MainConfig) { c.Market.HistoryLimit = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowList(t *testing.T) {
	al := NewAllowList("nvda", "AAPL", "", "NVDA")

	assert.Equal(t, 2, al.Len())
	assert.True(t, al.Contains("NVDA"))
	assert.True(t, al.Contains("AAPL"))
	assert.False(t, al.Contains("nvda"), "lookups are case sensitive")
	assert.False(t, al.Contains("MSFT"))

	symbols := al.Symbols()
	assert.Equal(t, []string{"NVDA", "AAPL"}, symbols)
	symbols[0] = "MSFT"
	assert.True(t, al.Contains("NVDA"), "Symbols returns a copy")
	assert.Equal(t, []string{"NVDA", "AAPL"}, al.Symbols())

	var zero AllowList
	assert.False(t, zero.Contains("NVDA"))
	assert.Empty(t, zero.Symbols())
}
