package relay

import (
	"sync"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
)

// EditState is the pending single-field configuration edit an administrator
// has initiated but not yet completed.
type EditState string

const (
	EditNone          EditState = ""
	EditWelcome       EditState = "awaiting_welcome"
	EditAutoReply     EditState = "awaiting_autoreply"
	EditChannel       EditState = "awaiting_channel_forward"
	EditDeleteSeconds EditState = "awaiting_delete_seconds"
)

// BoundChannel is the destination an agent relays to.
type BoundChannel struct {
	ID       int64
	Title    string
	Username string // public handle, empty for private channels
}

// Settings holds all mutable per-agent configuration. Field reads and
// writes are atomic; compound mutations (commit a value + clear the edit
// state) are applied under one lock so a concurrent toggle cannot
// interleave with an edit commit.
type Settings struct {
	mu sync.RWMutex

	welcomeText   string
	autoReplyText string
	channel       *BoundChannel
	paused        bool
	forceSub      bool
	kinds         map[bus.MessageKind]bool
	autoDeleteSec int
	editState     EditState
}

// NewSettings returns settings seeded with the platform default texts.
// All message kinds start enabled.
func NewSettings(welcomeText, autoReplyText string) *Settings {
	kinds := make(map[bus.MessageKind]bool, len(bus.MessageKinds))
	for _, k := range bus.MessageKinds {
		kinds[k] = true
	}
	return &Settings{
		welcomeText:   welcomeText,
		autoReplyText: autoReplyText,
		kinds:         kinds,
	}
}

// View is an immutable snapshot of settings for rendering and relay
// decisions.
type View struct {
	WelcomeText   string
	AutoReplyText string
	Channel       *BoundChannel
	Paused        bool
	ForceSub      bool
	Kinds         map[bus.MessageKind]bool
	AutoDeleteSec int
	EditState     EditState
}

// Snapshot returns a consistent copy of all fields.
func (s *Settings) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make(map[bus.MessageKind]bool, len(s.kinds))
	for k, v := range s.kinds {
		kinds[k] = v
	}
	var ch *BoundChannel
	if s.channel != nil {
		c := *s.channel
		ch = &c
	}
	return View{
		WelcomeText:   s.welcomeText,
		AutoReplyText: s.autoReplyText,
		Channel:       ch,
		Paused:        s.paused,
		ForceSub:      s.forceSub,
		Kinds:         kinds,
		AutoDeleteSec: s.autoDeleteSec,
		EditState:     s.editState,
	}
}

// EditState returns the pending edit, if any.
func (s *Settings) EditState() EditState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editState
}

// BeginEdit arms a single-field edit; the next qualifying admin message
// completes it.
func (s *Settings) BeginEdit(state EditState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editState = state
}

// ClearEdit abandons any pending edit.
func (s *Settings) ClearEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editState = EditNone
}

// CommitWelcome stores the new welcome text and clears the pending edit.
func (s *Settings) CommitWelcome(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.welcomeText = text
	s.editState = EditNone
}

// CommitAutoReply stores the new auto-reply text and clears the pending edit.
func (s *Settings) CommitAutoReply(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReplyText = text
	s.editState = EditNone
}

// CommitChannel binds a destination channel and clears the pending edit.
func (s *Settings) CommitChannel(ch BoundChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = &ch
	s.editState = EditNone
}

// CommitAutoDelete stores the auto-delete delay (0 disables) and clears the
// pending edit.
func (s *Settings) CommitAutoDelete(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoDeleteSec = seconds
	s.editState = EditNone
}

// Disconnect unbinds the destination channel.
func (s *Settings) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = nil
}

// TogglePause flips the pause flag and returns the new value.
func (s *Settings) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	return s.paused
}

// ToggleForceSub flips the force-subscription flag and returns the new value.
func (s *Settings) ToggleForceSub() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceSub = !s.forceSub
	return s.forceSub
}

// ToggleKind flips whether a message kind is relayed and returns the new
// value. Unknown kinds are ignored and report false.
func (s *Settings) ToggleKind(kind bus.MessageKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.kinds[kind]; !ok {
		return false
	}
	s.kinds[kind] = !s.kinds[kind]
	return s.kinds[kind]
}

// WelcomeText returns the current welcome text.
func (s *Settings) WelcomeText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.welcomeText
}

// AutoReplyText returns the current auto-reply text.
func (s *Settings) AutoReplyText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoReplyText
}
