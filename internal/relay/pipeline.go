package relay

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/store"
)

// relay runs the message pipeline for one inbound message: pause gate,
// subscription gate, kind gate, anonymous copy, confirmation, audit,
// deferred deletion. Preconditions short-circuit in that order. Each
// message is handled independently; a remote failure never escalates past
// the sender-facing failure notice.
func (a *Agent) relay(ctx context.Context, ev bus.Event) {
	ctx, span := tracer.Start(ctx, "relay.pipeline", trace.WithAttributes(
		attribute.String("message.kind", string(ev.Kind)),
	))
	defer span.End()

	view := a.settings.Snapshot()

	if view.Paused {
		a.send(ctx, ev.ChatID, noticePaused)
		return
	}

	if acc := a.checkAccess(ctx, ev.Sender.ID); !acc.Allowed {
		notice := acc.Notice
		if acc.JoinURL != "" {
			notice += "\n" + acc.JoinURL
		}
		a.send(ctx, ev.ChatID, notice)
		return
	}

	// A disabled kind drops silently: no reply, no audit. Senders of a
	// disabled kind get no feedback at all.
	if !view.Kinds[ev.Kind] {
		return
	}

	dest := a.fallbackChatID
	if view.Channel != nil {
		dest = view.Channel.ID
	}

	destMsgID, err := a.api.Copy(ctx, dest, ev.ChatID, ev.MessageID)
	if err != nil {
		slog.Warn("relay copy failed",
			"bot", a.Username(), "dest", dest, "sender", ev.Sender.ID, "error", err)
		a.send(ctx, ev.ChatID, noticeRelayFailed)
		return
	}

	a.send(ctx, ev.ChatID, view.AutoReplyText)

	a.audit.Record(ctx, a.api, store.AuditEntry{
		AgentBot:      a.Username(),
		SenderID:      ev.Sender.ID,
		SenderName:    ev.Sender.DisplayName(),
		Kind:          string(ev.Kind),
		DestChatID:    dest,
		DestMessageID: destMsgID,
		Text:          ev.Text,
	})

	if view.AutoDeleteSec > 0 {
		a.sched.Schedule(a.api, dest, destMsgID, time.Duration(view.AutoDeleteSec)*time.Second)
	}

	slog.Debug("message relayed",
		"bot", a.Username(), "kind", ev.Kind, "dest", dest, "dest_message_id", destMsgID)
}
