// Package builder implements the top-level builder bot: the public menu,
// the token-capture flow that creates relay agents, and the support-mode
// relay to the platform admin chat.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
	"github.com/nextlevelbuilder/anonrelay/internal/platform"
	"github.com/nextlevelbuilder/anonrelay/internal/registry"
	"github.com/nextlevelbuilder/anonrelay/internal/token"
)

// Builder menu action tags.
const (
	actStart   = "bt:start"
	actAbout   = "bt:about"
	actHelp    = "bt:help"
	actBuild   = "bt:build"
	actSupport = "bt:support"
	actCancel  = "bt:cancel"
)

// chatMode is the per-chat "awaiting next message" state.
type chatMode int

const (
	modeNone chatMode = iota
	modeAwaitToken
	modeAwaitSupport
)

// Builder is the singular token-less bot instance.
type Builder struct {
	api         platform.API
	reg         *registry.Registry
	adminChatID int64

	mu    sync.Mutex
	modes map[int64]chatMode

	runCtx context.Context
}

// New returns a builder dispatching through reg. runCtx bounds all
// platform calls made outside a request context.
func New(runCtx context.Context, api platform.API, reg *registry.Registry, adminChatID int64) *Builder {
	return &Builder{
		api:         api,
		reg:         reg,
		adminChatID: adminChatID,
		modes:       make(map[int64]chatMode),
		runCtx:      runCtx,
	}
}

// Dispatch handles one inbound event for the builder bot.
func (b *Builder) Dispatch(ev bus.Event) {
	ctx := b.runCtx
	switch ev.Type {
	case bus.EventCommand:
		b.handleCommand(ctx, ev)
	case bus.EventCallback:
		b.handleAction(ctx, ev)
	case bus.EventMessage:
		b.handleMessage(ctx, ev)
	}
}

func (b *Builder) handleCommand(ctx context.Context, ev bus.Event) {
	switch ev.Command {
	case "start":
		b.setMode(ev.ChatID, modeNone)
		b.sendMainMenu(ctx, ev.ChatID, ev.Sender, 0)
	case "help":
		b.send(ctx, ev.ChatID, helpText)
	default:
		slog.Debug("builder: unknown command ignored", "command", ev.Command)
	}
}

func (b *Builder) handleAction(ctx context.Context, ev bus.Event) {
	if err := b.api.AnswerCallback(ctx, ev.CallbackID); err != nil {
		slog.Debug("builder: answer callback failed", "error", err)
	}

	switch ev.Action {
	case actStart:
		b.setMode(ev.ChatID, modeNone)
		b.sendMainMenu(ctx, ev.ChatID, ev.Sender, ev.MenuMsgID)

	case actAbout:
		b.editMenu(ctx, ev.ChatID, ev.MenuMsgID, aboutText, backOnly())

	case actHelp:
		b.editMenu(ctx, ev.ChatID, ev.MenuMsgID, helpText, backOnly())

	case actBuild:
		b.setMode(ev.ChatID, modeAwaitToken)
		b.editMenu(ctx, ev.ChatID, ev.MenuMsgID, buildInstructions, backOnly())

	case actSupport:
		b.setMode(ev.ChatID, modeAwaitSupport)
		b.editMenu(ctx, ev.ChatID, ev.MenuMsgID, supportPrompt, [][]platform.Button{
			{{Text: "❌ Cancel", Action: actCancel}},
		})

	case actCancel:
		b.setMode(ev.ChatID, modeNone)
		b.editMenu(ctx, ev.ChatID, ev.MenuMsgID, "Request cancelled.", backOnly())

	default:
		slog.Debug("builder: unknown action", "action", ev.Action)
	}
}

func (b *Builder) handleMessage(ctx context.Context, ev bus.Event) {
	switch b.mode(ev.ChatID) {
	case modeAwaitToken:
		b.consumeToken(ctx, ev)
	case modeAwaitSupport:
		b.consumeSupport(ctx, ev)
	default:
		b.send(ctx, ev.ChatID, "Use /start to open the menu.")
	}
}

// consumeToken extracts a bot token from the message (usually a forwarded
// BotFather message) and hands it to the registry. Capture stays armed on
// failure so the creator can retry without reopening the menu.
func (b *Builder) consumeToken(ctx context.Context, ev bus.Event) {
	botToken, ok := token.Extract(ev.Text)
	if !ok {
		b.send(ctx, ev.ChatID, "No token found in that message. Forward the full message from @BotFather.")
		return
	}

	b.notifyAdmin(ctx, fmt.Sprintf("New bot request\nUser: %s\nID: %d",
		ev.Sender.DisplayName(), ev.Sender.ID))

	agent, err := b.reg.Create(ctx, botToken, ev.Sender.ID)
	if err != nil {
		b.setMode(ev.ChatID, modeNone)
		b.send(ctx, ev.ChatID, creationErrorText(err))
		return
	}

	b.setMode(ev.ChatID, modeNone)
	b.send(ctx, ev.ChatID, fmt.Sprintf(
		"✅ Your bot is live: @%s\n\nOpen a chat with it and send /settings to configure it.",
		agent.Username()))
}

// consumeSupport relays the message to the platform admin chat.
func (b *Builder) consumeSupport(ctx context.Context, ev bus.Event) {
	b.setMode(ev.ChatID, modeNone)

	header := fmt.Sprintf("Support request from %s (%d)", ev.Sender.DisplayName(), ev.Sender.ID)
	b.notifyAdmin(ctx, header)
	if _, err := b.api.Copy(ctx, b.adminChatID, ev.ChatID, ev.MessageID); err != nil {
		slog.Warn("builder: support relay failed", "sender", ev.Sender.ID, "error", err)
		b.send(ctx, ev.ChatID, "Could not deliver your message. Please try again later.")
		return
	}
	b.send(ctx, ev.ChatID, "Your message has been passed to the support team.")
}

func creationErrorText(err error) string {
	switch {
	case errors.Is(err, registry.ErrDuplicateCreator):
		return "❌ You already have an active bot. One bot per user."
	case errors.Is(err, registry.ErrInvalidToken):
		return "❌ That token does not look valid. Forward the full message from @BotFather."
	default:
		return "❌ Could not create the bot: " + err.Error()
	}
}

func (b *Builder) sendMainMenu(ctx context.Context, chatID int64, sender bus.Sender, menuMsgID int) {
	text := fmt.Sprintf(
		"Hello %s! I build anonymous relay bots — no server, no code.\n\nPick an option below to get started.",
		sender.DisplayName())
	rows := [][]platform.Button{
		{{Text: "📝 About", Action: actAbout}},
		{
			{Text: "🆘 Help", Action: actHelp},
			{Text: "🤖 Build a bot", Action: actBuild},
		},
		{{Text: "💬 Support", Action: actSupport}},
	}
	if menuMsgID != 0 {
		b.editMenu(ctx, chatID, menuMsgID, text, rows)
		return
	}
	if _, err := b.api.SendMenu(ctx, chatID, text, rows); err != nil {
		slog.Warn("builder: send menu failed", "chat_id", chatID, "error", err)
	}
}

func (b *Builder) editMenu(ctx context.Context, chatID int64, messageID int, text string, rows [][]platform.Button) {
	if err := b.api.EditMenu(ctx, chatID, messageID, text, rows); err != nil {
		slog.Debug("builder: edit menu failed", "chat_id", chatID, "error", err)
	}
}

func (b *Builder) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.SendText(ctx, chatID, text); err != nil {
		slog.Warn("builder: send failed", "chat_id", chatID, "error", err)
	}
}

func (b *Builder) notifyAdmin(ctx context.Context, text string) {
	if b.adminChatID == 0 {
		return
	}
	if _, err := b.api.SendText(ctx, b.adminChatID, text); err != nil {
		slog.Warn("builder: admin notification failed", "error", err)
	}
}

func (b *Builder) mode(chatID int64) chatMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modes[chatID]
}

func (b *Builder) setMode(chatID int64, m chatMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m == modeNone {
		delete(b.modes, chatID)
		return
	}
	b.modes[chatID] = m
}

func backOnly() [][]platform.Button {
	return [][]platform.Button{{{Text: "🔙 Back", Action: actStart}}}
}

const aboutText = "AnonRelay builds Telegram relay bots for you.\n\n" +
	"With a few steps you get your own bot without:\n" +
	"- a private server\n" +
	"- programming knowledge\n" +
	"- complicated setup\n\n" +
	"Happy building! 🚀"

const helpText = "1. Press Build a bot and follow the instructions.\n" +
	"2. Messages sent to your bot are relayed anonymously to your channel.\n" +
	"3. Send /settings to your bot to configure it.\n\n" +
	"Need more help? Use the Support button."

const buildInstructions = "How to create your bot\n\n" +
	"1. Open @BotFather and send /newbot\n" +
	"2. Follow the instructions to create a new bot\n" +
	"3. When you receive the token, forward the full BotFather message here"

const supportPrompt = "Support mode\n\nSend your message for the support team…"
