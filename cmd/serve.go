package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/anonrelay/internal/builder"
	"github.com/nextlevelbuilder/anonrelay/internal/config"
	"github.com/nextlevelbuilder/anonrelay/internal/gateway"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
	"github.com/nextlevelbuilder/anonrelay/internal/registry"
	"github.com/nextlevelbuilder/anonrelay/internal/relay"
	"github.com/nextlevelbuilder/anonrelay/internal/store"
	"github.com/nextlevelbuilder/anonrelay/internal/store/sqlite"
	"github.com/nextlevelbuilder/anonrelay/internal/tracing"
)

func runServe() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	// Audit store is optional: without a DB path the audit trail only goes
	// to the log chat.
	var auditStore store.AuditStore
	if cfg.Audit.DBPath != "" {
		st, err := sqlite.Open(config.ExpandHome(cfg.Audit.DBPath))
		if err != nil {
			slog.Error("failed to open audit store", "error", err)
			os.Exit(1)
		}
		auditStore = st

		retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
		sweeper := sqlite.NewSweeper(st, cfg.Audit.SweepSchedule, retention)
		go sweeper.Run(ctx)
		slog.Info("audit store opened", "path", cfg.Audit.DBPath, "retention_days", cfg.Audit.RetentionDays)
	}

	binder := platform.NewBinder(platform.Options{
		APITimeout:  time.Duration(cfg.Platform.APITimeoutSeconds) * time.Second,
		SendRate:    cfg.Platform.SendRate,
		SendBurst:   cfg.Platform.SendBurst,
		WebhookBase: cfg.Gateway.WebhookBase,
		Proxy:       cfg.Platform.Proxy,
	})

	auditLog := relay.NewAuditLog(cfg.AuditLogChatID(), auditStore)
	reg := registry.New(ctx, binder, auditLog, cfg.Builder.AdminChatID, registry.Defaults{
		WelcomeText:   cfg.Defaults.WelcomeText,
		AutoReplyText: cfg.Defaults.AutoReplyText,
	})

	builderAPI, err := binder.Bind(ctx, cfg.Builder.Token)
	if err != nil {
		slog.Error("failed to bind builder bot", "error", err)
		os.Exit(1)
	}
	slog.Info("builder bot bound", "username", builderAPI.Me().Username)

	reg.SetMain(builder.New(ctx, builderAPI, reg, cfg.Builder.AdminChatID))

	// Live-reload the defaults seed for future agents.
	stopWatch, err := config.Watch(cfgPath, func(fresh *config.Config) {
		reg.SetDefaults(registry.Defaults{
			WelcomeText:   fresh.Defaults.WelcomeText,
			AutoReplyText: fresh.Defaults.AutoReplyText,
		})
	})
	if err != nil {
		slog.Warn("config watch unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	srv := gateway.NewServer(cfg.Gateway, reg, cfg.Builder.Token)
	if err := srv.Start(); err != nil {
		slog.Error("failed to start webhook gateway", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Warn("gateway shutdown failed", "error", err)
	}
	reg.Stop()
	if auditStore != nil {
		if err := auditStore.Close(); err != nil {
			slog.Warn("audit store close failed", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}
}
