// Package bus defines the domain events exchanged between the webhook
// transport and the bot instances (builder and relay agents).
package bus

// MessageKind classifies inbound message content. Exactly one kind is
// assigned per message, first-match-wins in the order below.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindPhoto    MessageKind = "photo"
	KindDocument MessageKind = "document"
	KindSticker  MessageKind = "sticker"
)

// MessageKinds lists all relayable kinds in classification priority order.
var MessageKinds = []MessageKind{KindText, KindPhoto, KindDocument, KindSticker}

// Sender identifies the Telegram user behind an event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns the sender's human-readable name.
func (s Sender) DisplayName() string {
	name := s.FirstName
	if s.LastName != "" {
		name += " " + s.LastName
	}
	if name == "" {
		name = s.Username
	}
	return name
}

// ForwardOrigin describes where a forwarded message originally came from.
type ForwardOrigin struct {
	Type      string // "channel", "user", "hidden_user", "chat"
	ChatID    int64  // set for channel/chat origins
	ChatTitle string
}

// Event is one inbound update addressed to a bot instance.
// Exactly one of the Command/Callback/Message shapes is populated,
// discriminated by Type.
type Event struct {
	Type EventType

	Sender Sender
	ChatID int64 // private chat the event arrived in

	// Command fields (Type == EventCommand)
	Command string // lowercase, without leading slash or @bot suffix
	Args    string

	// Callback fields (Type == EventCallback)
	CallbackID string
	Action     string
	MenuMsgID  int // message carrying the inline keyboard, for in-place edits

	// Message fields (Type == EventMessage)
	Kind      MessageKind
	MessageID int
	Text      string // text or caption
	Forward   *ForwardOrigin
}

// EventType discriminates the event variants.
type EventType string

const (
	EventCommand  EventType = "command"
	EventCallback EventType = "callback"
	EventMessage  EventType = "message"
)

// Dispatcher handles events for one bot instance.
type Dispatcher interface {
	Dispatch(event Event)
}
