package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gemologic/lattice/internal/ratelimit"
	"github.com/gemologic/lattice/pkg/log"
)

// Config is the top-level server configuration. Defaults are overlaid by an
// optional JSON or YAML file and then by LATTICE_* environment variables.
type Config struct {
	// Port is the HTTP listen port.
	Port int `json:"port" yaml:"port"`

	// DataDir is the Pebble database directory.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Token is the static bearer token clients must present. Empty disables
	// authentication entirely.
	Token string `json:"token" yaml:"token"`

	Log log.Config `json:"log" yaml:"log"`

	// Fsync selects WAL durability: always, interval, or never.
	Fsync string `json:"fsync" yaml:"fsync"`

	// MaxRequestBodyBytes caps request bodies at the HTTP edge.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes" yaml:"max_request_body_bytes"`

	RateLimits ratelimit.Limits `json:"rate_limits" yaml:"rate_limits"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Port:                7400,
		DataDir:             DefaultDataDir(),
		Log:                 log.Config{Level: "info", Format: "text"},
		Fsync:               "always",
		MaxRequestBodyBytes: 12 << 20,
		RateLimits:          ratelimit.DefaultLimits(),
	}
}

// Load reads configuration from a JSON or YAML file (by extension) over the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// AuthEnabled reports whether a usable bearer token is configured.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.Token) != ""
}

// LogStartupWarnings surfaces configuration states an operator should see
// once at boot.
func (c *Config) LogStartupWarnings(logger log.Logger) {
	if !c.AuthEnabled() {
		logger.Warn("LATTICE_TOKEN is unset, auth is disabled and all requests are allowed")
		logger.Warn("no-auth mode enabled, rate limiting identity falls back to forwarded client IP headers")
	}
}

// Validate rejects values that would misconfigure the server. Messages name
// the environment variable so operators can find the knob they set.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("LATTICE_PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("LATTICE_DATA_DIR must not be empty")
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("LATTICE_FSYNC must be one of always, interval, never; got %q", c.Fsync)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("LATTICE_MAX_REQUEST_BODY_BYTES must be greater than 0")
	}

	limits := []struct {
		key   string
		value int
	}{
		{"LATTICE_RATE_LIMIT_READ_PER_MIN", c.RateLimits.Read.PerMinute},
		{"LATTICE_RATE_LIMIT_READ_BURST", c.RateLimits.Read.Burst},
		{"LATTICE_RATE_LIMIT_WRITE_PER_MIN", c.RateLimits.Write.PerMinute},
		{"LATTICE_RATE_LIMIT_WRITE_BURST", c.RateLimits.Write.Burst},
		{"LATTICE_RATE_LIMIT_ATTACHMENT_PER_MIN", c.RateLimits.Attachment.PerMinute},
		{"LATTICE_RATE_LIMIT_ATTACHMENT_BURST", c.RateLimits.Attachment.Burst},
		{"LATTICE_RATE_LIMIT_WEBHOOK_TEST_PER_MIN", c.RateLimits.WebhookTest.PerMinute},
		{"LATTICE_RATE_LIMIT_WEBHOOK_TEST_BURST", c.RateLimits.WebhookTest.Burst},
		{"LATTICE_RATE_LIMIT_MCP_PER_MIN", c.RateLimits.MCP.PerMinute},
		{"LATTICE_RATE_LIMIT_MCP_BURST", c.RateLimits.MCP.Burst},
		{"LATTICE_RATE_LIMIT_SSE_CONNECT_PER_MIN", c.RateLimits.SSEConnect.PerMinute},
		{"LATTICE_RATE_LIMIT_SSE_CONNECT_BURST", c.RateLimits.SSEConnect.Burst},
		{"LATTICE_RATE_LIMIT_SSE_MAX_PER_IDENTITY", c.RateLimits.SSEMaxPerIdentity},
		{"LATTICE_RATE_LIMIT_SSE_MAX_GLOBAL", c.RateLimits.SSEMaxGlobal},
	}
	for _, limit := range limits {
		if limit.value <= 0 {
			return fmt.Errorf("%s must be greater than 0", limit.key)
		}
	}
	return nil
}
