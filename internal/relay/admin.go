package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
)

// Settings menu action tags (callback data).
const (
	actEditWelcome   = "st:welcome"
	actEditAutoReply = "st:autoreply"
	actEditChannel   = "st:channel"
	actEditDelSec    = "st:delsec"
	actTogglePause   = "st:pause"
	actToggleForce   = "st:forcesub"
	actDisconnect    = "st:disconnect"
	actBack          = "st:back"
	actToggleKind    = "st:type:" // + kind
)

const (
	noticeAccessDenied = "Only the owner of this bot can change its settings."
	noticePaused       = "This bot is paused right now. Please try again later."
	noticeRelayFailed  = "Could not deliver your message. Please try again later."
	noticeJoinRequired = "You need to join the channel before sending messages here."
	noticeJoinRetry    = "Could not verify your subscription. Please try again later."

	promptWelcome   = "Send the new welcome text. It will be shown when someone starts the bot."
	promptAutoReply = "Send the new auto-reply text. It confirms delivery to senders."
	promptChannel   = "Forward any post from your channel. The bot must be an administrator there with permission to post and delete messages."
	promptDelSec    = "Send the auto-delete delay in seconds. 0 turns auto-delete off."

	noticeNeedText      = "That message has no text. Send a text value, or open /settings to cancel."
	noticeNeedForward   = "That is not a channel post. Forward a post from your channel, or open /settings to cancel."
	noticeNotAdmin      = "The bot is not an administrator of that channel. Grant it post and delete permissions, then forward a post again."
	noticeChannelFailed = "Could not verify the channel. Please forward a post again."
	noticeBadNumber     = "That is not a valid number of seconds. Send a non-negative integer, 0 to disable."
)

// handleAction routes a settings menu button press. Every mutation is
// creator-only; toggles apply immediately and re-render the menu in place.
func (a *Agent) handleAction(ctx context.Context, ev bus.Event) {
	if err := a.api.AnswerCallback(ctx, ev.CallbackID); err != nil {
		slog.Debug("answer callback failed", "bot", a.Username(), "error", err)
	}

	if ev.Sender.ID != a.creatorID {
		a.send(ctx, ev.ChatID, noticeAccessDenied)
		return
	}

	switch {
	case ev.Action == actEditWelcome:
		a.settings.BeginEdit(EditWelcome)
		a.send(ctx, ev.ChatID, promptWelcome)

	case ev.Action == actEditAutoReply:
		a.settings.BeginEdit(EditAutoReply)
		a.send(ctx, ev.ChatID, promptAutoReply)

	case ev.Action == actEditChannel:
		a.settings.BeginEdit(EditChannel)
		a.send(ctx, ev.ChatID, promptChannel)

	case ev.Action == actEditDelSec:
		a.settings.BeginEdit(EditDeleteSeconds)
		a.send(ctx, ev.ChatID, promptDelSec)

	case ev.Action == actTogglePause:
		a.settings.TogglePause()
		a.editMenu(ctx, ev.ChatID, ev.MenuMsgID)

	case ev.Action == actToggleForce:
		a.settings.ToggleForceSub()
		a.editMenu(ctx, ev.ChatID, ev.MenuMsgID)

	case ev.Action == actDisconnect:
		a.settings.Disconnect()
		a.editMenu(ctx, ev.ChatID, ev.MenuMsgID)

	case ev.Action == actBack:
		a.settings.ClearEdit()
		a.editMenu(ctx, ev.ChatID, ev.MenuMsgID)

	case strings.HasPrefix(ev.Action, actToggleKind):
		kind := bus.MessageKind(strings.TrimPrefix(ev.Action, actToggleKind))
		a.settings.ToggleKind(kind)
		a.editMenu(ctx, ev.ChatID, ev.MenuMsgID)

	default:
		slog.Debug("unknown settings action", "bot", a.Username(), "action", ev.Action)
	}
}

// consumeEdit interprets the creator's next message as the value for the
// pending edit. The edit state is cleared on success and kept on a
// malformed value so the administrator can retry.
func (a *Agent) consumeEdit(ctx context.Context, ev bus.Event) {
	switch a.settings.EditState() {
	case EditWelcome:
		if ev.Text == "" {
			a.send(ctx, ev.ChatID, noticeNeedText)
			return
		}
		a.settings.CommitWelcome(ev.Text)
		a.send(ctx, ev.ChatID, "Welcome text updated.")

	case EditAutoReply:
		if ev.Text == "" {
			a.send(ctx, ev.ChatID, noticeNeedText)
			return
		}
		a.settings.CommitAutoReply(ev.Text)
		a.send(ctx, ev.ChatID, "Auto-reply text updated.")

	case EditChannel:
		a.consumeChannelForward(ctx, ev)

	case EditDeleteSeconds:
		a.consumeDeleteSeconds(ctx, ev)
	}
}

// consumeChannelForward binds the channel a forwarded post originated from,
// after confirming the bot holds administrator privileges there.
func (a *Agent) consumeChannelForward(ctx context.Context, ev bus.Event) {
	if ev.Forward == nil || ev.Forward.Type != "channel" {
		a.send(ctx, ev.ChatID, noticeNeedForward)
		return
	}

	channelID := ev.Forward.ChatID
	status, err := a.api.GetMember(ctx, channelID, a.api.Me().ID)
	if err != nil {
		slog.Warn("channel privilege check failed",
			"bot", a.Username(), "channel", channelID, "error", err)
		a.send(ctx, ev.ChatID, noticeChannelFailed)
		return
	}
	if status != platform.StatusAdministrator && status != platform.StatusCreator {
		a.send(ctx, ev.ChatID, noticeNotAdmin)
		return
	}

	ch := BoundChannel{ID: channelID, Title: ev.Forward.ChatTitle}
	if info, err := a.api.GetChat(ctx, channelID); err == nil {
		ch.Title = info.Title
		ch.Username = info.Username
	} else {
		slog.Debug("chat info lookup failed, using forward metadata",
			"bot", a.Username(), "channel", channelID, "error", err)
	}

	a.settings.CommitChannel(ch)
	a.send(ctx, ev.ChatID, fmt.Sprintf("Connected to %s. Messages will be relayed there.", ch.Title))
}

func (a *Agent) consumeDeleteSeconds(ctx context.Context, ev bus.Event) {
	seconds, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil || seconds < 0 {
		a.send(ctx, ev.ChatID, noticeBadNumber)
		return
	}

	a.settings.CommitAutoDelete(seconds)
	if seconds == 0 {
		// Disabling also cancels deletions already in flight.
		cancelled := a.sched.CancelAll()
		if cancelled > 0 {
			slog.Info("pending deletions cancelled", "bot", a.Username(), "count", cancelled)
		}
		a.send(ctx, ev.ChatID, "Auto-delete disabled.")
		return
	}
	a.send(ctx, ev.ChatID, fmt.Sprintf("Relayed messages will be deleted after %d seconds.", seconds))
}

// sendMenu renders a fresh settings menu.
func (a *Agent) sendMenu(ctx context.Context, chatID int64) {
	text, rows := a.menuContent()
	if _, err := a.api.SendMenu(ctx, chatID, text, rows); err != nil {
		slog.Warn("send settings menu failed", "bot", a.Username(), "error", err)
	}
}

// editMenu re-renders the menu in place after a toggle.
func (a *Agent) editMenu(ctx context.Context, chatID int64, messageID int) {
	text, rows := a.menuContent()
	if err := a.api.EditMenu(ctx, chatID, messageID, text, rows); err != nil {
		slog.Debug("edit settings menu failed", "bot", a.Username(), "error", err)
	}
}

func (a *Agent) menuContent() (string, [][]platform.Button) {
	view := a.settings.Snapshot()

	channelLine := "not connected"
	if view.Channel != nil {
		channelLine = view.Channel.Title
		if view.Channel.Username != "" {
			channelLine += " (@" + view.Channel.Username + ")"
		}
	}
	relayLine := "active"
	pauseLabel := "⏸ Pause"
	if view.Paused {
		relayLine = "paused"
		pauseLabel = "▶️ Resume"
	}
	forceLine := "off"
	forceLabel := "🔒 Require subscription"
	if view.ForceSub {
		forceLine = "on"
		forceLabel = "🔓 Drop requirement"
	}
	deleteLine := "off"
	if view.AutoDeleteSec > 0 {
		deleteLine = fmt.Sprintf("%ds", view.AutoDeleteSec)
	}

	text := fmt.Sprintf(
		"Settings — @%s\n\nWelcome: %s\nAuto-reply: %s\nChannel: %s\nRelay: %s\nForce subscription: %s\nAuto-delete: %s",
		a.Username(),
		truncate(view.WelcomeText, 48),
		truncate(view.AutoReplyText, 48),
		channelLine, relayLine, forceLine, deleteLine,
	)

	kindRow := make([]platform.Button, 0, len(bus.MessageKinds))
	for _, kind := range bus.MessageKinds {
		mark := "✓"
		if !view.Kinds[kind] {
			mark = "✗"
		}
		kindRow = append(kindRow, platform.Button{
			Text:   fmt.Sprintf("%s %s", string(kind), mark),
			Action: actToggleKind + string(kind),
		})
	}

	rows := [][]platform.Button{
		{
			{Text: "✏️ Welcome", Action: actEditWelcome},
			{Text: "✏️ Auto-reply", Action: actEditAutoReply},
		},
	}
	if view.Channel != nil {
		rows = append(rows, []platform.Button{
			{Text: "📡 Change channel", Action: actEditChannel},
			{Text: "❌ Disconnect", Action: actDisconnect},
		})
	} else {
		rows = append(rows, []platform.Button{
			{Text: "📡 Connect channel", Action: actEditChannel},
		})
	}
	rows = append(rows,
		[]platform.Button{
			{Text: pauseLabel, Action: actTogglePause},
			{Text: forceLabel, Action: actToggleForce},
		},
		kindRow,
		[]platform.Button{
			{Text: "🕓 Auto-delete", Action: actEditDelSec},
			{Text: "🔄 Refresh", Action: actBack},
		},
	)
	return text, rows
}

// truncate shortens a string to maxLen runes, appending an ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
