package relay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
)

func creatorMessage(text string) bus.Event {
	return bus.Event{
		Type:      bus.EventMessage,
		Sender:    bus.Sender{ID: testCreatorID, FirstName: "Owner"},
		ChatID:    testCreatorID,
		Kind:      bus.KindText,
		MessageID: 21,
		Text:      text,
	}
}

func creatorAction(action string) bus.Event {
	return bus.Event{
		Type:       bus.EventCallback,
		Sender:     bus.Sender{ID: testCreatorID},
		ChatID:     testCreatorID,
		CallbackID: "cb1",
		Action:     action,
		MenuMsgID:  5,
	}
}

func TestHandleAction_NonCreatorDenied(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)

	ev := creatorAction(actTogglePause)
	ev.Sender.ID = testSenderID
	a.handleAction(context.Background(), ev)

	if a.settings.Snapshot().Paused {
		t.Error("non-creator toggled pause")
	}
	sent := api.sentTexts()
	if len(sent) != 1 || sent[0].text != noticeAccessDenied {
		t.Errorf("sent = %+v, want access denied notice", sent)
	}
}

func TestEditFlow_Welcome(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)
	ctx := context.Background()

	a.handleAction(ctx, creatorAction(actEditWelcome))
	if a.settings.EditState() != EditWelcome {
		t.Fatalf("EditState = %q, want %q", a.settings.EditState(), EditWelcome)
	}

	a.consumeEdit(ctx, creatorMessage("New welcome!"))
	if got := a.settings.WelcomeText(); got != "New welcome!" {
		t.Errorf("WelcomeText() = %q", got)
	}
	if a.settings.EditState() != EditNone {
		t.Error("edit state not cleared after commit")
	}
}

func TestEditFlow_EmptyTextKeepsState(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)
	ctx := context.Background()

	a.settings.BeginEdit(EditAutoReply)
	a.consumeEdit(ctx, creatorMessage(""))

	if a.settings.EditState() != EditAutoReply {
		t.Error("edit state dropped on empty value; retry must stay armed")
	}
	if got := a.settings.AutoReplyText(); got != "delivered" {
		t.Errorf("AutoReplyText() = %q, want unchanged", got)
	}
}

func TestEditFlow_DeleteSeconds(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSec    int
		wantState  EditState
		wantNotice string
	}{
		{"valid", "30", 30, EditNone, "30 seconds"},
		{"zero disables", "0", 0, EditNone, "Auto-delete disabled."},
		{"whitespace tolerated", " 15 ", 15, EditNone, "15 seconds"},
		{"garbage keeps state", "soon", 0, EditDeleteSeconds, noticeBadNumber},
		{"negative keeps state", "-5", 0, EditDeleteSeconds, noticeBadNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI("relay_bot")
			a := newTestAgent(api)
			a.settings.BeginEdit(EditDeleteSeconds)

			a.consumeEdit(context.Background(), creatorMessage(tt.input))

			if got := a.settings.Snapshot().AutoDeleteSec; got != tt.wantSec {
				t.Errorf("AutoDeleteSec = %d, want %d", got, tt.wantSec)
			}
			if got := a.settings.EditState(); got != tt.wantState {
				t.Errorf("EditState = %q, want %q", got, tt.wantState)
			}
			sent := api.sentTexts()
			if len(sent) != 1 || !strings.Contains(sent[0].text, tt.wantNotice) {
				t.Errorf("sent = %+v, want notice containing %q", sent, tt.wantNotice)
			}
		})
	}
}

func TestEditFlow_DeleteSecondsZeroCancelsPending(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)
	defer a.sched.Close()

	a.sched.Schedule(api, testFallback, 101, time.Hour)
	a.settings.BeginEdit(EditDeleteSeconds)

	a.consumeEdit(context.Background(), creatorMessage("0"))

	a.sched.mu.Lock()
	pending := len(a.sched.pending)
	a.sched.mu.Unlock()
	if pending != 0 {
		t.Errorf("pending deletions = %d after disabling, want 0", pending)
	}
}

func TestEditFlow_ChannelForward(t *testing.T) {
	api := newFakeAPI("relay_bot")
	api.memberStatus = platform.StatusAdministrator
	api.chatInfo = platform.ChatInfo{ID: -100200, Type: "channel", Title: "Fresh Title", Username: "newsfeed"}
	a := newTestAgent(api)
	a.settings.BeginEdit(EditChannel)

	ev := creatorMessage("")
	ev.Forward = &bus.ForwardOrigin{Type: "channel", ChatID: -100200, ChatTitle: "Stale Title"}
	a.consumeEdit(context.Background(), ev)

	view := a.settings.Snapshot()
	if view.Channel == nil {
		t.Fatal("channel not bound")
	}
	if view.Channel.ID != -100200 || view.Channel.Title != "Fresh Title" || view.Channel.Username != "newsfeed" {
		t.Errorf("channel = %+v, want metadata from chat lookup", view.Channel)
	}
	if view.EditState != EditNone {
		t.Error("edit state not cleared after binding")
	}
}

func TestEditFlow_ChannelForwardRejections(t *testing.T) {
	tests := []struct {
		name       string
		forward    *bus.ForwardOrigin
		status     platform.MemberStatus
		wantNotice string
	}{
		{"not a forward", nil, platform.StatusAdministrator, noticeNeedForward},
		{"forward from user", &bus.ForwardOrigin{Type: "user"}, platform.StatusAdministrator, noticeNeedForward},
		{"bot not admin", &bus.ForwardOrigin{Type: "channel", ChatID: -1}, platform.StatusMember, noticeNotAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI("relay_bot")
			api.memberStatus = tt.status
			a := newTestAgent(api)
			a.settings.BeginEdit(EditChannel)

			ev := creatorMessage("")
			ev.Forward = tt.forward
			a.consumeEdit(context.Background(), ev)

			if a.settings.Snapshot().Channel != nil {
				t.Error("rejected forward bound a channel")
			}
			if a.settings.EditState() != EditChannel {
				t.Error("edit state dropped; retry must stay armed")
			}
			sent := api.sentTexts()
			if len(sent) != 1 || sent[0].text != tt.wantNotice {
				t.Errorf("sent = %+v, want %q", sent, tt.wantNotice)
			}
		})
	}
}

func TestHandleCommand_Start(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)

	a.handleCommand(context.Background(), bus.Event{
		Type:    bus.EventCommand,
		Sender:  bus.Sender{ID: testSenderID},
		ChatID:  testSenderID,
		Command: "start",
	})

	sent := api.sentTexts()
	if len(sent) != 1 || sent[0].text != "welcome" {
		t.Errorf("sent = %+v, want welcome text", sent)
	}
}

func TestHandleCommand_SettingsCreatorOnly(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)

	a.handleCommand(context.Background(), bus.Event{
		Type:    bus.EventCommand,
		Sender:  bus.Sender{ID: testSenderID},
		ChatID:  testSenderID,
		Command: "settings",
	})

	sent := api.sentTexts()
	if len(sent) != 1 || sent[0].text != noticeAccessDenied {
		t.Errorf("sent = %+v, want access denied", sent)
	}
}

func TestHandleCommand_SettingsAbandonsEdit(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)
	a.settings.BeginEdit(EditWelcome)

	a.handleCommand(context.Background(), bus.Event{
		Type:    bus.EventCommand,
		Sender:  bus.Sender{ID: testCreatorID},
		ChatID:  testCreatorID,
		Command: "settings",
	})

	if a.settings.EditState() != EditNone {
		t.Error("/settings must abandon a pending edit")
	}
}

func TestMenuContent_KindRow(t *testing.T) {
	api := newFakeAPI("relay_bot")
	a := newTestAgent(api)
	a.settings.ToggleKind(bus.KindSticker)

	_, rows := a.menuContent()

	var kindRow []platform.Button
	for _, row := range rows {
		if len(row) == len(bus.MessageKinds) {
			kindRow = row
			break
		}
	}
	if kindRow == nil {
		t.Fatal("no kind toggle row rendered")
	}
	for _, btn := range kindRow {
		if !strings.HasPrefix(btn.Action, actToggleKind) {
			t.Errorf("kind button action = %q, want %q prefix", btn.Action, actToggleKind)
		}
		if strings.HasPrefix(btn.Text, "sticker") && !strings.HasSuffix(btn.Text, "✗") {
			t.Errorf("sticker button = %q, want disabled mark", btn.Text)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 7, "this is…"},
		{"héllo wörld", 5, "héllo…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
