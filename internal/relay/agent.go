// Package relay implements the per-agent core: the settings store, the
// administrator configuration flow, the anonymous relay pipeline, and the
// deferred deletion scheduler. One Agent exists per created relay bot.
package relay

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
)

var tracer = otel.Tracer("github.com/nextlevelbuilder/anonrelay/internal/relay")

// inboxSize bounds the per-agent event queue. Events are serialized through
// one worker so a single sender's messages keep their relative order.
const inboxSize = 64

// AgentConfig carries the immutable identity and collaborators of an agent.
type AgentConfig struct {
	Token          string
	CreatorID      int64
	API            platform.API
	Audit          *AuditLog
	FallbackChatID int64 // destination when no channel is bound (platform admin chat)
	WelcomeText    string
	AutoReplyText  string
}

// Agent is one tenant-created relay bot instance. It lives for the process
// lifetime; there is no delete operation.
type Agent struct {
	token          string
	creatorID      int64
	api            platform.API
	settings       *Settings
	sched          *Scheduler
	audit          *AuditLog
	fallbackChatID int64

	inbox  chan bus.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAgent constructs an agent with default settings. Call Start before
// dispatching events.
func NewAgent(cfg AgentConfig) *Agent {
	return &Agent{
		token:          cfg.Token,
		creatorID:      cfg.CreatorID,
		api:            cfg.API,
		settings:       NewSettings(cfg.WelcomeText, cfg.AutoReplyText),
		sched:          NewScheduler(),
		audit:          cfg.Audit,
		fallbackChatID: cfg.FallbackChatID,
		inbox:          make(chan bus.Event, inboxSize),
		done:           make(chan struct{}),
	}
}

// Token returns the agent's bot token.
func (a *Agent) Token() string { return a.token }

// CreatorID returns the administrator's user ID.
func (a *Agent) CreatorID() int64 { return a.creatorID }

// Username returns the bot's resolved handle.
func (a *Agent) Username() string { return a.api.Me().Username }

// Settings exposes the agent's settings record.
func (a *Agent) Settings() *Settings { return a.settings }

// Start launches the agent's event worker.
func (a *Agent) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case ev := <-a.inbox:
				a.handle(runCtx, ev)
			}
		}
	}()
}

// Stop shuts down the worker and cancels pending deletions.
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	a.sched.Close()
}

// Dispatch enqueues one event for serialized handling. A full inbox drops
// the event; Telegram redelivers webhook updates that were not acknowledged
// quickly enough, so dropping is preferable to blocking the transport.
func (a *Agent) Dispatch(ev bus.Event) {
	select {
	case a.inbox <- ev:
	default:
		slog.Warn("agent inbox full, dropping event",
			"bot", a.Username(), "type", ev.Type, "sender", ev.Sender.ID)
	}
}

func (a *Agent) handle(ctx context.Context, ev bus.Event) {
	ctx, span := tracer.Start(ctx, "relay.handle", trace.WithAttributes(
		attribute.String("event.type", string(ev.Type)),
		attribute.String("agent.bot", a.Username()),
	))
	defer span.End()

	switch ev.Type {
	case bus.EventCommand:
		a.handleCommand(ctx, ev)
	case bus.EventCallback:
		a.handleAction(ctx, ev)
	case bus.EventMessage:
		if ev.Sender.ID == a.creatorID && a.settings.EditState() != EditNone {
			a.consumeEdit(ctx, ev)
			return
		}
		a.relay(ctx, ev)
	}
}

func (a *Agent) handleCommand(ctx context.Context, ev bus.Event) {
	switch ev.Command {
	case "start":
		a.send(ctx, ev.ChatID, a.settings.WelcomeText())
	case "settings":
		if ev.Sender.ID != a.creatorID {
			a.send(ctx, ev.ChatID, noticeAccessDenied)
			return
		}
		// A fresh /settings abandons any half-finished edit.
		a.settings.ClearEdit()
		a.sendMenu(ctx, ev.ChatID)
	default:
		slog.Debug("unknown command ignored", "bot", a.Username(), "command", ev.Command)
	}
}

// send delivers a notice, logging delivery failures.
func (a *Agent) send(ctx context.Context, chatID int64, text string) {
	if _, err := a.api.SendText(ctx, chatID, text); err != nil {
		slog.Warn("send failed", "bot", a.Username(), "chat_id", chatID, "error", err)
	}
}
