// Package store defines the storage contracts for the relay platform.
// Agent and settings state is deliberately in-memory; only the relay audit
// trail is persisted.
package store

import (
	"context"
	"time"
)

// AuditEntry records one relayed message.
type AuditEntry struct {
	ID            string    // uuid
	AgentBot      string    // relay bot username
	SenderID      int64
	SenderName    string
	Kind          string // text, photo, document, sticker
	DestChatID    int64
	DestMessageID int
	Text          string // text or caption content, may be empty
	CreatedAt     time.Time
}

// AuditStore persists relay audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry AuditEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
	// Purge deletes entries created before cutoff and reports how many.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
