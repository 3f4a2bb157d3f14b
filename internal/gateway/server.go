// Package gateway is the webhook transport boundary. It deserializes
// inbound Telegram updates into domain events and routes them through the
// registry: token-less requests go to the builder, token-addressed requests
// to the owning relay agent.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mymmrac/telego"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/config"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
	"github.com/nextlevelbuilder/anonrelay/internal/registry"
)

var tracer = otel.Tracer("github.com/nextlevelbuilder/anonrelay/internal/gateway")

// maxUpdateBytes bounds a webhook request body. Telegram updates are small;
// anything larger is not ours.
const maxUpdateBytes = 1 << 20

// Server is the webhook HTTP server.
type Server struct {
	cfg          config.GatewayConfig
	reg          *registry.Registry
	builderToken string
	limiter      *WebhookRateLimiter
	httpServer   *http.Server
}

// NewServer creates the webhook server routing through reg. Updates for
// builderToken go to the builder instance, same as token-less requests.
func NewServer(cfg config.GatewayConfig, reg *registry.Registry, builderToken string) *Server {
	s := &Server{
		cfg:          cfg,
		reg:          reg,
		builderToken: builderToken,
		limiter:      NewWebhookRateLimiter(cfg.RateLimitPerMin),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("POST /webhook", s.handleBuilderWebhook)
	mux.HandleFunc("POST /webhook/{token}", s.handleAgentWebhook)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving. Non-blocking after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.httpServer.Addr, err)
	}
	slog.Info("webhook gateway listening", "addr", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("webhook gateway stopped", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "AnonRelay gateway is running")
}

func (s *Server) handleBuilderWebhook(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "webhook.builder")
	defer span.End()

	if !s.limiter.Allow("builder") {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "error": "rate limited"})
		return
	}

	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.reg.RouteToMain(ev)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAgentWebhook(w http.ResponseWriter, r *http.Request) {
	botToken := r.PathValue("token")

	_, span := tracer.Start(r.Context(), "webhook.agent",
		trace.WithAttributes(attribute.Int("token.len", len(botToken))))
	defer span.End()

	if !s.limiter.Allow(botToken) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "error": "rate limited"})
		return
	}

	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}

	if botToken == s.builderToken {
		s.reg.RouteToMain(ev)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if err := s.reg.RouteByToken(botToken, ev); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "bot not found"})
			return
		}
		slog.Warn("webhook routing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "routing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// decodeEvent deserializes the update body into a domain event. Updates
// the core does not consume are acknowledged with success so Telegram
// stops redelivering them.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (ev bus.Event, ok bool) {
	var update telego.Update
	body := http.MaxBytesReader(w, r.Body, maxUpdateBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		slog.Debug("webhook decode failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "malformed update"})
		return ev, false
	}

	ev, consumed := platform.EventFromUpdate(update)
	if !consumed {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return ev, false
	}
	return ev, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
