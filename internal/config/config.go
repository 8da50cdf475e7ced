package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TestnetBaseURL   = "https://testnet.binancefuture.com"
	TestnetStreamURL = "wss://stream.binancefuture.com/ws"

	// DefaultMaxClockDrift matches the exchange's default recvWindow.
	DefaultMaxClockDrift = 5 * time.Second
)

type Config struct {
	Exchange struct {
		BaseURL        string        `yaml:"base_url"`
		StreamURL      string        `yaml:"stream_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"exchange"`

	Health struct {
		MaxClockDrift time.Duration `yaml:"max_clock_drift"`
	} `yaml:"health"`

	Submit struct {
		MaxRetries int           `yaml:"max_retries"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
	} `yaml:"submit"`

	Prices struct {
		Symbols []string      `yaml:"symbols"` // streamed mark prices
		MaxAge  time.Duration `yaml:"max_age"`
	} `yaml:"prices"`

	Account struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"account"`

	Web struct {
		Addr string `yaml:"addr"`
	} `yaml:"web"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	// Secrets only ever come from the environment.
	Credentials Credentials `yaml:"-"`
	Telegram    Telegram    `yaml:"-"`
}

type Credentials struct {
	APIKey    string
	APISecret string
}

// LogValue keeps keys out of logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("api_secret_set", c.APISecret != ""),
	)
}

type Telegram struct {
	Token  string
	ChatID string
}

func (t Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// Default returns a testnet configuration with no credentials.
func Default() *Config {
	cfg := &Config{}
	cfg.Exchange.BaseURL = TestnetBaseURL
	cfg.Exchange.StreamURL = TestnetStreamURL
	cfg.Exchange.RequestTimeout = 10 * time.Second
	cfg.Health.MaxClockDrift = DefaultMaxClockDrift
	cfg.Submit.MaxRetries = 2
	cfg.Submit.BackoffMin = 200 * time.Millisecond
	cfg.Submit.BackoffMax = 2 * time.Second
	cfg.Prices.MaxAge = 5 * time.Second
	cfg.Account.RefreshInterval = time.Minute
	cfg.Web.Addr = ":8080"
	cfg.Storage.DBPath = "data/orders.db"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// Load reads .env (optional), the YAML file at path (optional) and the
// environment, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing %s: %w", path, err)
			}
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideWithEnv(cfg *Config) error {
	cfg.Credentials.APIKey = os.Getenv("BINANCE_API_KEY")
	cfg.Credentials.APISecret = os.Getenv("BINANCE_API_SECRET")

	cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	cfg.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if val := os.Getenv("WEB_ADDR"); val != "" {
		cfg.Web.Addr = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("PRICE_SYMBOLS"); val != "" {
		cfg.Prices.Symbols = splitList(val)
	}

	if val := os.Getenv("SUBMIT_MAX_RETRIES"); val != "" {
		n, err := parseInt(val, "SUBMIT_MAX_RETRIES")
		if err != nil {
			return err
		}
		cfg.Submit.MaxRetries = n
	}
	if val := os.Getenv("MAX_CLOCK_DRIFT_MS"); val != "" {
		n, err := parseInt(val, "MAX_CLOCK_DRIFT_MS")
		if err != nil {
			return err
		}
		cfg.Health.MaxClockDrift = time.Duration(n) * time.Millisecond
	}
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Credentials.APIKey == "" || c.Credentials.APISecret == "" {
		return fmt.Errorf("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	for _, endpoint := range []string{c.Exchange.BaseURL, c.Exchange.StreamURL} {
		if !isTestnet(endpoint) {
			return fmt.Errorf("only Futures Testnet endpoints are supported, got %q", endpoint)
		}
	}
	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("exchange.request_timeout must be positive")
	}
	if c.Health.MaxClockDrift <= 0 {
		return fmt.Errorf("health.max_clock_drift must be positive")
	}
	if c.Submit.MaxRetries < 0 {
		return fmt.Errorf("submit.max_retries must not be negative")
	}
	if c.Submit.BackoffMin <= 0 || c.Submit.BackoffMax < c.Submit.BackoffMin {
		return fmt.Errorf("submit backoff range is invalid: %s..%s", c.Submit.BackoffMin, c.Submit.BackoffMax)
	}
	if c.Account.RefreshInterval <= 0 {
		return fmt.Errorf("account.refresh_interval must be positive")
	}
	return nil
}

// testnetHosts are the only venues the bot may talk to.
var testnetHosts = map[string]bool{
	"testnet.binancefuture.com": true,
	"stream.binancefuture.com":  true,
	"fstream.binancefuture.com": true,
}

func isTestnet(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return testnetHosts[strings.ToLower(u.Hostname())]
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func parseInt(value, name string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return i, nil
}
