// Package sqlite provides the embedded audit store. The database holds
// only the relay audit trail; agent and settings state stays in memory.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/anonrelay/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// AuditStore persists relay audit entries in a local SQLite database.
type AuditStore struct {
	db *sql.DB
}

// Open creates (or migrates) the audit database at path.
func Open(path string) (*AuditStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// Serialized writes: the store is shared by every agent worker and
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &AuditStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Insert stores one audit entry.
func (s *AuditStore) Insert(ctx context.Context, e store.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relay_audit
		   (id, agent_bot, sender_id, sender_name, kind, dest_chat_id, dest_message_id, text, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentBot, e.SenderID, e.SenderName, e.Kind,
		e.DestChatID, e.DestMessageID, e.Text, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]store.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_bot, sender_id, sender_name, kind, dest_chat_id, dest_message_id, text, created_at_ms
		   FROM relay_audit ORDER BY created_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []store.AuditEntry
	for rows.Next() {
		var e store.AuditEntry
		var createdMs int64
		if err := rows.Scan(&e.ID, &e.AgentBot, &e.SenderID, &e.SenderName, &e.Kind,
			&e.DestChatID, &e.DestMessageID, &e.Text, &createdMs); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge deletes entries created before cutoff.
func (s *AuditStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM relay_audit WHERE created_at_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
