package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}

	envStr("ANONRELAY_BOT_TOKEN", &c.Builder.Token)
	envInt64("ANONRELAY_ADMIN_CHAT_ID", &c.Builder.AdminChatID)
	envInt64("ANONRELAY_LOG_CHAT_ID", &c.Builder.LogChatID)
	envStr("ANONRELAY_WEBHOOK_BASE", &c.Gateway.WebhookBase)
	envStr("ANONRELAY_AUDIT_DB", &c.Audit.DBPath)
	envStr("ANONRELAY_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)

	if v := os.Getenv("ANONRELAY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Gateway.Port = n
		}
	}
}
