package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/anonrelay/internal/platform"
	"github.com/nextlevelbuilder/anonrelay/internal/store"
)

// AuditLog records every relayed message to the platform-wide log chat and,
// when configured, to the persistent audit store. Recording is best-effort:
// failures are logged and never surface to the relay pipeline.
type AuditLog struct {
	chatID int64 // 0 = log chat disabled
	store  store.AuditStore
}

// NewAuditLog returns an audit sink. Either destination may be absent.
func NewAuditLog(chatID int64, st store.AuditStore) *AuditLog {
	return &AuditLog{chatID: chatID, store: st}
}

// Record emits one audit entry via the given bot. The entry ID and
// timestamp are assigned here.
func (l *AuditLog) Record(ctx context.Context, api platform.API, entry store.AuditEntry) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	if l.chatID != 0 {
		text := fmt.Sprintf("Relay via @%s\nKind: %s\nFrom: %s (%d)",
			entry.AgentBot, entry.Kind, entry.SenderName, entry.SenderID)
		if entry.Text != "" {
			text += "\n\n" + entry.Text
		}
		if _, err := api.SendText(ctx, l.chatID, text); err != nil {
			slog.Warn("audit log send failed", "agent", entry.AgentBot, "error", err)
		}
	}

	if l.store != nil {
		if err := l.store.Insert(ctx, entry); err != nil {
			slog.Warn("audit store insert failed", "agent", entry.AgentBot, "error", err)
		}
	}
}
