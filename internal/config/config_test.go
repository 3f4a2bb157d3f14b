package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gateway.Port != 8000 {
		t.Errorf("Port = %d, want default 8000", cfg.Gateway.Port)
	}
	if cfg.Defaults.WelcomeText == "" {
		t.Error("default welcome text missing")
	}
}

func TestLoad_JSON5File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		// platform chats
		builder: {admin_chat_id: -100500},
		gateway: {port: 9100, webhook_base: "https://relay.example.com"},
		defaults: {welcome_text: "yo"},
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Builder.AdminChatID != -100500 {
		t.Errorf("AdminChatID = %d", cfg.Builder.AdminChatID)
	}
	if cfg.Gateway.Port != 9100 || cfg.Gateway.WebhookBase != "https://relay.example.com" {
		t.Errorf("gateway = %+v", cfg.Gateway)
	}
	if cfg.Defaults.WelcomeText != "yo" {
		t.Errorf("WelcomeText = %q", cfg.Defaults.WelcomeText)
	}
	// Unset fields keep defaults.
	if cfg.Platform.APITimeoutSeconds != 10 {
		t.Errorf("APITimeoutSeconds = %d, want default 10", cfg.Platform.APITimeoutSeconds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANONRELAY_BOT_TOKEN", "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	t.Setenv("ANONRELAY_ADMIN_CHAT_ID", "-42")
	t.Setenv("ANONRELAY_PORT", "9999")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{gateway: {port: 8100}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Builder.Token == "" {
		t.Error("token not taken from env")
	}
	if cfg.Builder.AdminChatID != -42 {
		t.Errorf("AdminChatID = %d, want env override", cfg.Builder.AdminChatID)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("Port = %d, env must beat the file", cfg.Gateway.Port)
	}
}

func TestLoad_TokenNeverFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{builder: {token: "999999999:XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX", admin_chat_id: 1}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Builder.Token != "" {
		t.Errorf("Token = %q, secrets must be env-only", cfg.Builder.Token)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.Builder.Token = "" }, true},
		{"missing admin chat", func(c *Config) { c.Builder.AdminChatID = 0 }, true},
		{"port too high", func(c *Config) { c.Gateway.Port = 70000 }, true},
		{"port zero", func(c *Config) { c.Gateway.Port = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Builder.Token = "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
			cfg.Builder.AdminChatID = -1
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuditLogChatID(t *testing.T) {
	cfg := Default()
	cfg.Builder.AdminChatID = -1
	if got := cfg.AuditLogChatID(); got != -1 {
		t.Errorf("AuditLogChatID() = %d, want admin fallback", got)
	}
	cfg.Builder.LogChatID = -2
	if got := cfg.AuditLogChatID(); got != -2 {
		t.Errorf("AuditLogChatID() = %d, want dedicated log chat", got)
	}
}
