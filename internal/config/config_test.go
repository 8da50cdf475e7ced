package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "test-key")
	t.Setenv("BINANCE_API_SECRET", "test-secret")
}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	setCredentials(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, TestnetBaseURL, cfg.Exchange.BaseURL)
	assert.Equal(t, DefaultMaxClockDrift, cfg.Health.MaxClockDrift)
	assert.Equal(t, 2, cfg.Submit.MaxRetries)
	assert.Equal(t, "test-key", cfg.Credentials.APIKey)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("SUBMIT_MAX_RETRIES", "1")
	t.Setenv("PRICE_SYMBOLS", "btcusdt, solusdt")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")

	path := writeFile(t, `
exchange:
  request_timeout: 3s
health:
  max_clock_drift: 2s
submit:
  max_retries: 5
web:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Exchange.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.Health.MaxClockDrift)
	assert.Equal(t, 1, cfg.Submit.MaxRetries)
	assert.Equal(t, ":9090", cfg.Web.Addr)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, cfg.Prices.Symbols)
	assert.True(t, cfg.Telegram.Enabled())
	// untouched sections keep their defaults
	assert.Equal(t, TestnetStreamURL, cfg.Exchange.StreamURL)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		desc string
		yaml string
		env  map[string]string
	}{
		{
			desc: "missing credentials",
			env:  map[string]string{"BINANCE_API_KEY": "", "BINANCE_API_SECRET": ""},
		},
		{
			desc: "mainnet base url",
			yaml: "exchange:\n  base_url: https://fapi.binance.com\n",
		},
		{
			desc: "coin-margined mainnet base url",
			yaml: "exchange:\n  base_url: https://dapi.binance.com\n",
		},
		{
			desc: "testnet lookalike host",
			yaml: "exchange:\n  base_url: https://testnet.binancefuture.com.example.net\n",
		},
		{
			desc: "mainnet stream url",
			yaml: "exchange:\n  stream_url: wss://fstream.binance.com/ws\n",
		},
		{
			desc: "negative retries",
			yaml: "submit:\n  max_retries: -1\n",
		},
		{
			desc: "bad env number",
			env:  map[string]string{"MAX_CLOCK_DRIFT_MS": "soon"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			setCredentials(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeFile(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCredentialsAreRedactedInLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Info("config", "credentials", Credentials{APIKey: "very-secret-key", APISecret: "very-secret"})

	assert.NotContains(t, buf.String(), "very-secret")
	assert.Contains(t, buf.String(), `"api_key_set":true`)
}

func TestIsTestnet(t *testing.T) {
	testCases := []struct {
		endpoint string
		want     bool
	}{
		{TestnetBaseURL, true},
		{TestnetStreamURL, true},
		{"wss://fstream.binancefuture.com/ws", true},
		{"https://TESTNET.binancefuture.com", true},
		{"https://fapi.binance.com", false},
		{"https://dapi.binance.com", false},
		{"https://api.binance.com", false},
		{"http://127.0.0.1:8080", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.endpoint, func(t *testing.T) {
			assert.Equal(t, tc.want, isTestnet(tc.endpoint))
		})
	}
}
