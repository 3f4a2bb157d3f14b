package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Deleter is the single platform capability the scheduler needs.
type Deleter interface {
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// deleteTimeout bounds the deletion API call; the scheduling request that
// created the task has long since completed.
const deleteTimeout = 10 * time.Second

// Scheduler runs one-shot deferred deletions of relayed messages. Each task
// fires exactly once; failures (message already gone, missing privilege,
// unreachable destination) are logged and swallowed.
type Scheduler struct {
	mu      sync.Mutex
	pending map[*Deletion]struct{}
	closed  bool
}

// Deletion is a handle to one scheduled deletion.
type Deletion struct {
	timer     *time.Timer
	chatID    int64
	messageID int
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[*Deletion]struct{})}
}

// Schedule registers a one-shot deletion of messageID in chatID after delay,
// measured from now. The returned handle can cancel the task before it
// fires; after firing, Cancel is a no-op.
func (s *Scheduler) Schedule(api Deleter, chatID int64, messageID int, delay time.Duration) *Deletion {
	d := &Deletion{chatID: chatID, messageID: messageID}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return d
	}
	s.pending[d] = struct{}{}
	s.mu.Unlock()

	d.timer = time.AfterFunc(delay, func() {
		s.remove(d)

		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		if err := api.Delete(ctx, chatID, messageID); err != nil {
			slog.Warn("deferred delete failed",
				"chat_id", chatID, "message_id", messageID, "error", err)
			return
		}
		slog.Debug("relayed message deleted", "chat_id", chatID, "message_id", messageID)
	})
	return d
}

// Cancel stops the deletion if it has not fired yet. Reports whether the
// task was still pending.
func (d *Deletion) Cancel() bool {
	if d.timer == nil {
		return false
	}
	return d.timer.Stop()
}

// CancelAll cancels every pending deletion. Used when the administrator
// disables auto-delete with tasks still in flight.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	pending := make([]*Deletion, 0, len(s.pending))
	for d := range s.pending {
		pending = append(pending, d)
	}
	s.pending = make(map[*Deletion]struct{})
	s.mu.Unlock()

	cancelled := 0
	for _, d := range pending {
		if d.Cancel() {
			cancelled++
		}
	}
	return cancelled
}

// Close cancels all pending deletions and rejects new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.CancelAll()
}

func (s *Scheduler) remove(d *Deletion) {
	s.mu.Lock()
	delete(s.pending, d)
	s.mu.Unlock()
}
