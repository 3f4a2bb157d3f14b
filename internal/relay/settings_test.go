package relay

import (
	"testing"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
)

func TestSettings_Defaults(t *testing.T) {
	s := NewSettings("welcome", "done")
	view := s.Snapshot()

	if view.WelcomeText != "welcome" || view.AutoReplyText != "done" {
		t.Errorf("texts = %q, %q; want seeded values", view.WelcomeText, view.AutoReplyText)
	}
	if view.Paused || view.ForceSub {
		t.Error("pause and force-sub must start off")
	}
	if view.Channel != nil {
		t.Error("channel must start unbound")
	}
	if view.AutoDeleteSec != 0 {
		t.Errorf("autoDeleteSec = %d, want 0", view.AutoDeleteSec)
	}
	for _, k := range bus.MessageKinds {
		if !view.Kinds[k] {
			t.Errorf("kind %s must start enabled", k)
		}
	}
}

func TestSettings_CommitsClearEditState(t *testing.T) {
	tests := []struct {
		name  string
		state EditState
		apply func(*Settings)
	}{
		{"welcome", EditWelcome, func(s *Settings) { s.CommitWelcome("hi") }},
		{"autoreply", EditAutoReply, func(s *Settings) { s.CommitAutoReply("ok") }},
		{"channel", EditChannel, func(s *Settings) { s.CommitChannel(BoundChannel{ID: -100}) }},
		{"autodelete", EditDeleteSeconds, func(s *Settings) { s.CommitAutoDelete(30) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSettings("w", "a")
			s.BeginEdit(tt.state)
			if s.EditState() != tt.state {
				t.Fatalf("EditState() = %q, want %q", s.EditState(), tt.state)
			}
			tt.apply(s)
			if s.EditState() != EditNone {
				t.Errorf("EditState() = %q after commit, want none", s.EditState())
			}
		})
	}
}

func TestSettings_Toggles(t *testing.T) {
	s := NewSettings("w", "a")

	if got := s.TogglePause(); !got {
		t.Error("first TogglePause() = false, want true")
	}
	if got := s.TogglePause(); got {
		t.Error("second TogglePause() = true, want false")
	}

	if got := s.ToggleForceSub(); !got {
		t.Error("first ToggleForceSub() = false, want true")
	}

	if got := s.ToggleKind(bus.KindPhoto); got {
		t.Error("ToggleKind(photo) = true after first flip, want false")
	}
	if s.Snapshot().Kinds[bus.KindPhoto] {
		t.Error("photo kind still enabled after toggle")
	}
	if s.Snapshot().Kinds[bus.KindText] != true {
		t.Error("toggling photo must not affect text")
	}

	if got := s.ToggleKind(bus.MessageKind("video")); got {
		t.Error("unknown kind toggle must report false")
	}
}

func TestSettings_Disconnect(t *testing.T) {
	s := NewSettings("w", "a")
	s.CommitChannel(BoundChannel{ID: -100123, Title: "News"})
	if s.Snapshot().Channel == nil {
		t.Fatal("channel not bound")
	}
	s.Disconnect()
	if s.Snapshot().Channel != nil {
		t.Error("channel still bound after Disconnect")
	}
}

func TestSettings_SnapshotIsIsolated(t *testing.T) {
	s := NewSettings("w", "a")
	s.CommitChannel(BoundChannel{ID: -1, Title: "orig"})

	view := s.Snapshot()
	view.Kinds[bus.KindText] = false
	view.Channel.Title = "mutated"

	fresh := s.Snapshot()
	if !fresh.Kinds[bus.KindText] {
		t.Error("mutating a snapshot's kinds leaked into settings")
	}
	if fresh.Channel.Title != "orig" {
		t.Error("mutating a snapshot's channel leaked into settings")
	}
}
