// Package platform abstracts the Telegram Bot API surface the relay core
// needs. The core calls these contracts and never talks to the wire format
// directly; the telego-backed client in this package is the only
// implementation outside of tests.
package platform

import "context"

// MemberStatus is a chat membership status as reported by the platform.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// ChatInfo is the subset of chat metadata the core needs.
type ChatInfo struct {
	ID       int64
	Type     string
	Title    string
	Username string // public handle, empty for private chats/channels
}

// BotInfo identifies a bound bot account.
type BotInfo struct {
	ID       int64
	Username string
	Name     string
}

// Button is one inline keyboard button. Exactly one of Action (callback
// data) or URL is set.
type Button struct {
	Text   string
	Action string
	URL    string
}

// API is the per-bot capability surface. All calls are bounded by the
// client's configured timeout and may fail with a RemoteError.
type API interface {
	// Me returns the bound bot's identity, resolved once at bind time.
	Me() BotInfo

	// SendText delivers a plain text message and returns its message ID.
	SendText(ctx context.Context, chatID int64, text string) (int, error)

	// SendMenu delivers text with an inline keyboard.
	SendMenu(ctx context.Context, chatID int64, text string, rows [][]Button) (int, error)

	// EditMenu rewrites a previously sent menu message in place.
	EditMenu(ctx context.Context, chatID int64, messageID int, text string, rows [][]Button) error

	// AnswerCallback acknowledges a callback query so the client stops
	// showing a progress indicator.
	AnswerCallback(ctx context.Context, callbackID string) error

	// Copy re-sends a message's content to another chat without any
	// forward attribution. Returns the destination message ID.
	Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)

	// Delete removes a previously sent message.
	Delete(ctx context.Context, chatID int64, messageID int) error

	// GetMember looks up a user's membership status in a chat.
	GetMember(ctx context.Context, chatID, userID int64) (MemberStatus, error)

	// GetChat fetches chat metadata.
	GetChat(ctx context.Context, chatID int64) (ChatInfo, error)
}

// Binder establishes the ability to act as a bot identified by token.
// Binding resolves the bot's identity and, when a webhook base is
// configured, registers the bot's webhook endpoint.
type Binder interface {
	Bind(ctx context.Context, token string) (API, error)
}
