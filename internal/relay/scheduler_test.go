package relay

import (
	"context"
	"sync"
	"testing"
	"time"
)

// notifyingDeleter signals on a channel when Delete fires.
type notifyingDeleter struct {
	mu      sync.Mutex
	deleted []copiedMsg
	fired   chan struct{}
}

func newNotifyingDeleter() *notifyingDeleter {
	return &notifyingDeleter{fired: make(chan struct{}, 16)}
}

func (d *notifyingDeleter) Delete(_ context.Context, chatID int64, messageID int) error {
	d.mu.Lock()
	d.deleted = append(d.deleted, copiedMsg{toChatID: chatID, messageID: messageID})
	d.mu.Unlock()
	d.fired <- struct{}{}
	return nil
}

func (d *notifyingDeleter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deleted)
}

func TestScheduler_Fires(t *testing.T) {
	s := NewScheduler()
	defer s.Close()
	del := newNotifyingDeleter()

	s.Schedule(del, -100, 7, 5*time.Millisecond)

	select {
	case <-del.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("deletion did not fire")
	}

	del.mu.Lock()
	got := del.deleted[0]
	del.mu.Unlock()
	if got.toChatID != -100 || got.messageID != 7 {
		t.Errorf("deleted %+v, want chat=-100 msg=7", got)
	}

	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()
	if pending != 0 {
		t.Errorf("pending = %d after fire, want 0", pending)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	defer s.Close()
	del := newNotifyingDeleter()

	d := s.Schedule(del, -100, 7, time.Hour)
	if !d.Cancel() {
		t.Fatal("Cancel() = false for a pending deletion")
	}
	if d.Cancel() {
		t.Error("second Cancel() = true, want false")
	}
	if del.count() != 0 {
		t.Error("cancelled deletion fired")
	}
}

func TestScheduler_CancelAll(t *testing.T) {
	s := NewScheduler()
	defer s.Close()
	del := newNotifyingDeleter()

	for i := 0; i < 3; i++ {
		s.Schedule(del, -100, i, time.Hour)
	}

	if got := s.CancelAll(); got != 3 {
		t.Errorf("CancelAll() = %d, want 3", got)
	}
	if got := s.CancelAll(); got != 0 {
		t.Errorf("second CancelAll() = %d, want 0", got)
	}
}

func TestScheduler_ClosedRejectsNewTasks(t *testing.T) {
	s := NewScheduler()
	del := newNotifyingDeleter()
	s.Close()

	s.Schedule(del, -100, 7, time.Hour)

	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()
	if pending != 0 {
		t.Errorf("pending = %d after Close, want 0", pending)
	}
}
