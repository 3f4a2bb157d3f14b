// Package registry creates relay agents and routes inbound events to the
// owning instance by bot token. It enforces one active agent per creator
// and holds the singular builder instance for token-less traffic.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
	"github.com/nextlevelbuilder/anonrelay/internal/relay"
	"github.com/nextlevelbuilder/anonrelay/internal/token"
)

var (
	// ErrDuplicateCreator is returned when a creator already owns an agent.
	ErrDuplicateCreator = errors.New("creator already has an active bot")
	// ErrInvalidToken is returned for a structurally invalid bot token.
	ErrInvalidToken = errors.New("invalid bot token format")
	// ErrNotFound is returned when no agent owns the presented token.
	ErrNotFound = errors.New("bot not found")
)

// Defaults seed the settings of newly created agents. Updated live on
// config reload; only affects agents created afterwards.
type Defaults struct {
	WelcomeText   string
	AutoReplyText string
}

// Registry owns all agent instances for the process lifetime.
type Registry struct {
	binder         platform.Binder
	audit          *relay.AuditLog
	fallbackChatID int64

	mu        sync.RWMutex
	defaults  Defaults
	byCreator map[int64]*relay.Agent
	byToken   map[string]*relay.Agent
	main      bus.Dispatcher

	runCtx context.Context
}

// New returns a registry creating agents through binder. runCtx is the
// process-lifetime context agent workers run under.
func New(runCtx context.Context, binder platform.Binder, audit *relay.AuditLog, fallbackChatID int64, defaults Defaults) *Registry {
	return &Registry{
		binder:         binder,
		audit:          audit,
		fallbackChatID: fallbackChatID,
		defaults:       defaults,
		byCreator:      make(map[int64]*relay.Agent),
		byToken:        make(map[string]*relay.Agent),
		runCtx:         runCtx,
	}
}

// SetMain installs the builder instance receiving token-less events.
func (r *Registry) SetMain(d bus.Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.main = d
}

// SetDefaults replaces the settings seed for future agents.
func (r *Registry) SetDefaults(d Defaults) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = d
}

// Create validates the token, binds the bot, and registers a new agent.
// The operation is not atomic with respect to binding failures: when the
// remote bind fails nothing is registered and the cause is returned.
func (r *Registry) Create(ctx context.Context, botToken string, creatorID int64) (*relay.Agent, error) {
	if r.ownerOf(creatorID) != nil {
		return nil, ErrDuplicateCreator
	}
	if !token.Validate(botToken) {
		return nil, ErrInvalidToken
	}

	api, err := r.binder.Bind(ctx, botToken)
	if err != nil {
		return nil, fmt.Errorf("bind agent: %w", err)
	}

	r.mu.Lock()
	if _, exists := r.byCreator[creatorID]; exists {
		r.mu.Unlock()
		return nil, ErrDuplicateCreator
	}
	if existing, exists := r.byToken[botToken]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("token already bound to @%s", existing.Username())
	}

	agent := relay.NewAgent(relay.AgentConfig{
		Token:          botToken,
		CreatorID:      creatorID,
		API:            api,
		Audit:          r.audit,
		FallbackChatID: r.fallbackChatID,
		WelcomeText:    r.defaults.WelcomeText,
		AutoReplyText:  r.defaults.AutoReplyText,
	})
	r.byCreator[creatorID] = agent
	r.byToken[botToken] = agent
	r.mu.Unlock()

	agent.Start(r.runCtx)
	slog.Info("relay agent created", "bot", agent.Username(), "creator", creatorID)
	return agent, nil
}

// RouteByToken delivers an event to the agent owning the token.
func (r *Registry) RouteByToken(botToken string, ev bus.Event) error {
	r.mu.RLock()
	agent := r.byToken[botToken]
	r.mu.RUnlock()

	if agent == nil {
		return ErrNotFound
	}
	agent.Dispatch(ev)
	return nil
}

// RouteToMain delivers an event to the builder instance.
func (r *Registry) RouteToMain(ev bus.Event) {
	r.mu.RLock()
	main := r.main
	r.mu.RUnlock()

	if main == nil {
		slog.Warn("no builder instance installed, dropping event", "type", ev.Type)
		return
	}
	main.Dispatch(ev)
}

// AgentFor returns the agent owned by creatorID, or nil.
func (r *Registry) AgentFor(creatorID int64) *relay.Agent {
	return r.ownerOf(creatorID)
}

// Count returns the number of active agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}

// Stop shuts down all agent workers.
func (r *Registry) Stop() {
	r.mu.RLock()
	agents := make([]*relay.Agent, 0, len(r.byToken))
	for _, a := range r.byToken {
		agents = append(agents, a)
	}
	r.mu.RUnlock()

	for _, a := range agents {
		a.Stop()
	}
}

func (r *Registry) ownerOf(creatorID int64) *relay.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byCreator[creatorID]
}
