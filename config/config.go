// Package config loads the terastream configuration.
// Values come from the defaults, then the TOML file, then TERASTREAM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"github.com/tera/terastream/types"
)

const envPrefix = "TERASTREAM_"

type Config struct {
	// HttpAddr is the TCP address the api listens on (eg. `127.0.0.1:3000`).
	HttpAddr string `toml:"http_addr"`
	// AllowedOrigins is the CORS origins list (default to "*").
	AllowedOrigins []string `toml:"allowed_origins"`
	// ShutdownWait is how long the server keeps serving after an interrupt.
	ShutdownWait time.Duration `toml:"shutdown_wait"`

	// Headless is false only for debugging the share page by hand.
	Headless bool `toml:"headless"`
	// BrowserBin overrides the chromium binary, empty lets rod download/find one.
	BrowserBin string `toml:"browser_bin"`

	NavigateTimeout time.Duration `toml:"navigate_timeout"`
	ClickTimeout    time.Duration `toml:"click_timeout"`
	// SettleTimeout bounds each wait for the page traffic to go quiet.
	SettleTimeout time.Duration `toml:"settle_timeout"`
	// SettleIdle is how long the network has to stay idle to count as settled.
	SettleIdle     time.Duration `toml:"settle_idle"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	PlaySelector   string        `toml:"play_selector"`

	// StreamBase is the origin the streaming url is built on.
	StreamBase string `toml:"stream_base"`

	// CookiesFile points to a json cookie export, it wins over Cookies.
	CookiesFile string         `toml:"cookies_file"`
	Cookies     []types.Cookie `toml:"cookie"`

	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
}

func Default() *Config {
	return &Config{
		HttpAddr:        "127.0.0.1:3000",
		AllowedOrigins:  []string{"*"},
		ShutdownWait:    5 * time.Second,
		Headless:        true,
		NavigateTimeout: 30 * time.Second,
		ClickTimeout:    5 * time.Second,
		SettleTimeout:   time.Second,
		SettleIdle:      300 * time.Millisecond,
		RequestTimeout:  60 * time.Second,
		PlaySelector:    `button[class*="video-play-btn"]`,
		StreamBase:      "https://www.1024tera.com",
		LogLevel:        "info",
	}
}

// DefaultPath is config.toml inside the user config folder.
func DefaultPath() string {
	return filepath.Join(configdir.LocalConfig("terastream"), "config.toml")
}

// Load reads the config file at path and applies the environment on top.
// An empty path means DefaultPath, which is allowed to not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HttpAddr = getEnvString("HTTP_ADDR", c.HttpAddr)
	c.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.ShutdownWait = getEnvDuration("SHUTDOWN_WAIT", c.ShutdownWait)
	c.Headless = getEnvBool("HEADLESS", c.Headless)
	c.BrowserBin = getEnvString("BROWSER_BIN", c.BrowserBin)
	c.NavigateTimeout = getEnvDuration("NAVIGATE_TIMEOUT", c.NavigateTimeout)
	c.ClickTimeout = getEnvDuration("CLICK_TIMEOUT", c.ClickTimeout)
	c.SettleTimeout = getEnvDuration("SETTLE_TIMEOUT", c.SettleTimeout)
	c.SettleIdle = getEnvDuration("SETTLE_IDLE", c.SettleIdle)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.PlaySelector = getEnvString("PLAY_SELECTOR", c.PlaySelector)
	c.StreamBase = getEnvString("STREAM_BASE", c.StreamBase)
	c.CookiesFile = getEnvString("COOKIES_FILE", c.CookiesFile)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogJSON = getEnvBool("LOG_JSON", c.LogJSON)
}

// Validate checks the values the pipeline can't run without.
func (c *Config) Validate() error {
	if c.HttpAddr == "" {
		return errors.New("http_addr cannot be empty")
	}
	timeouts := map[string]time.Duration{
		"navigate_timeout": c.NavigateTimeout,
		"click_timeout":    c.ClickTimeout,
		"settle_timeout":   c.SettleTimeout,
		"settle_idle":      c.SettleIdle,
		"request_timeout":  c.RequestTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.PlaySelector == "" {
		return errors.New("play_selector cannot be empty")
	}
	u, err := url.Parse(c.StreamBase)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("stream_base %q is not an absolute url", c.StreamBase)
	}
	for i, ck := range c.Cookies {
		if ck.Name == "" || ck.Domain == "" {
			return fmt.Errorf("cookie #%d needs a name and a domain", i+1)
		}
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(envPrefix + key); val != "" {
		return strings.ToLower(val) == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(envPrefix + key); val != "" {
		// plain numbers are seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(envPrefix + key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}
