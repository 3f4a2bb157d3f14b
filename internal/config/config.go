// Package config holds the AnonRelay platform configuration: builder bot
// identity, webhook gateway, per-agent defaults, audit storage, and
// telemetry. Config is loaded from a JSON5 file with env-var overrides;
// secrets are env-only and never persisted to the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the root configuration.
type Config struct {
	Builder   BuilderConfig   `json:"builder"`
	Gateway   GatewayConfig   `json:"gateway"`
	Defaults  DefaultsConfig  `json:"defaults"`
	Platform  PlatformConfig  `json:"platform,omitempty"`
	Audit     AuditConfig     `json:"audit,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// BuilderConfig identifies the builder bot and the fixed platform chats.
// Token is NEVER read from the config file (secret) — env ANONRELAY_BOT_TOKEN only.
type BuilderConfig struct {
	Token       string `json:"-"`             // from env ANONRELAY_BOT_TOKEN only
	AdminChatID int64  `json:"admin_chat_id"` // platform admin chat: new-bot requests, support, relay fallback
	LogChatID   int64  `json:"log_chat_id"`   // audit log chat; 0 = fall back to admin chat
}

// GatewayConfig configures the webhook HTTP server.
type GatewayConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	WebhookBase     string `json:"webhook_base,omitempty"` // public base URL; empty = webhooks not registered
	RateLimitPerMin int    `json:"rate_limit_per_min,omitempty"`
}

// DefaultsConfig seeds new agent settings.
type DefaultsConfig struct {
	WelcomeText   string `json:"welcome_text,omitempty"`
	AutoReplyText string `json:"auto_reply_text,omitempty"`
}

// PlatformConfig tunes Bot API client behaviour.
type PlatformConfig struct {
	APITimeoutSeconds int     `json:"api_timeout_seconds,omitempty"`
	SendRate          float64 `json:"send_rate,omitempty"` // messages/sec per bot
	SendBurst         int     `json:"send_burst,omitempty"`
	Proxy             string  `json:"proxy,omitempty"`
}

// AuditConfig configures the embedded relay audit store.
type AuditConfig struct {
	DBPath        string `json:"db_path,omitempty"`        // empty = audit store disabled
	RetentionDays int    `json:"retention_days,omitempty"` // 0 = keep forever
	SweepSchedule string `json:"sweep_schedule,omitempty"` // cron expression, default hourly
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"` // empty = tracing disabled
	Protocol     string `json:"protocol,omitempty"`      // "http" (default) or "grpc"
	ServiceName  string `json:"service_name,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			RateLimitPerMin: 60,
		},
		Defaults: DefaultsConfig{
			WelcomeText:   "Hi! Send me a message and I will deliver it anonymously.",
			AutoReplyText: "Your message has been delivered.",
		},
		Platform: PlatformConfig{
			APITimeoutSeconds: 10,
			SendRate:          25,
			SendBurst:         5,
		},
		Audit: AuditConfig{
			SweepSchedule: "0 * * * *",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "http",
			ServiceName: "anonrelay",
		},
	}
}

// Validate checks the minimum viable configuration.
func (c *Config) Validate() error {
	if c.Builder.Token == "" {
		return fmt.Errorf("builder token not set (ANONRELAY_BOT_TOKEN)")
	}
	if c.Builder.AdminChatID == 0 {
		return fmt.Errorf("builder.admin_chat_id not set")
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port %d out of range", c.Gateway.Port)
	}
	return nil
}

// AuditLogChatID returns the chat receiving audit log messages.
func (c *Config) AuditLogChatID() int64 {
	if c.Builder.LogChatID != 0 {
		return c.Builder.LogChatID
	}
	return c.Builder.AdminChatID
}

// ExpandHome expands a leading ~ in a path.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
