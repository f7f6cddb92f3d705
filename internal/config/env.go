package config

import (
	"os"
	"strconv"
)

// FromEnv overlays LATTICE_* environment variables onto cfg. Unset and
// unparsable variables leave the current value in place; Validate catches
// values that parse but make no sense.
func FromEnv(cfg *Config) {
	envInt("LATTICE_PORT", &cfg.Port)
	envStr("LATTICE_DATA_DIR", &cfg.DataDir)
	envStr("LATTICE_TOKEN", &cfg.Token)
	envStr("LATTICE_LOG_LEVEL", &cfg.Log.Level)
	envStr("LATTICE_LOG_FORMAT", &cfg.Log.Format)
	envStr("LATTICE_FSYNC", &cfg.Fsync)
	envInt64("LATTICE_MAX_REQUEST_BODY_BYTES", &cfg.MaxRequestBodyBytes)

	envInt("LATTICE_RATE_LIMIT_READ_PER_MIN", &cfg.RateLimits.Read.PerMinute)
	envInt("LATTICE_RATE_LIMIT_READ_BURST", &cfg.RateLimits.Read.Burst)
	envInt("LATTICE_RATE_LIMIT_WRITE_PER_MIN", &cfg.RateLimits.Write.PerMinute)
	envInt("LATTICE_RATE_LIMIT_WRITE_BURST", &cfg.RateLimits.Write.Burst)
	envInt("LATTICE_RATE_LIMIT_ATTACHMENT_PER_MIN", &cfg.RateLimits.Attachment.PerMinute)
	envInt("LATTICE_RATE_LIMIT_ATTACHMENT_BURST", &cfg.RateLimits.Attachment.Burst)
	envInt("LATTICE_RATE_LIMIT_WEBHOOK_TEST_PER_MIN", &cfg.RateLimits.WebhookTest.PerMinute)
	envInt("LATTICE_RATE_LIMIT_WEBHOOK_TEST_BURST", &cfg.RateLimits.WebhookTest.Burst)
	envInt("LATTICE_RATE_LIMIT_MCP_PER_MIN", &cfg.RateLimits.MCP.PerMinute)
	envInt("LATTICE_RATE_LIMIT_MCP_BURST", &cfg.RateLimits.MCP.Burst)
	envInt("LATTICE_RATE_LIMIT_SSE_CONNECT_PER_MIN", &cfg.RateLimits.SSEConnect.PerMinute)
	envInt("LATTICE_RATE_LIMIT_SSE_CONNECT_BURST", &cfg.RateLimits.SSEConnect.Burst)
	envInt("LATTICE_RATE_LIMIT_SSE_MAX_PER_IDENTITY", &cfg.RateLimits.SSEMaxPerIdentity)
	envInt("LATTICE_RATE_LIMIT_SSE_MAX_GLOBAL", &cfg.RateLimits.SSEMaxGlobal)
}

func envStr(key string, out *string) {
	if v := os.Getenv(key); v != "" {
		*out = v
	}
}

func envInt(key string, out *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*out = n
		}
	}
}

func envInt64(key string, out *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*out = n
		}
	}
}
