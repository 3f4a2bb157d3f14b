package platform

import (
	"strings"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/anonrelay/internal/bus"
)

// EventFromUpdate maps a Telegram update to a domain event. Returns false
// for updates the core does not consume (group messages, service messages,
// edits, member updates).
func EventFromUpdate(update telego.Update) (bus.Event, bool) {
	if update.CallbackQuery != nil {
		return eventFromCallback(update.CallbackQuery)
	}
	if update.Message != nil {
		return eventFromMessage(update.Message)
	}
	return bus.Event{}, false
}

func eventFromCallback(cq *telego.CallbackQuery) (bus.Event, bool) {
	if cq.Message == nil || !cq.Message.IsAccessible() {
		return bus.Event{}, false
	}
	return bus.Event{
		Type:       bus.EventCallback,
		Sender:     senderFromUser(&cq.From),
		ChatID:     cq.Message.GetChat().ID,
		CallbackID: cq.ID,
		Action:     cq.Data,
		MenuMsgID:  cq.Message.GetMessageID(),
	}, true
}

func eventFromMessage(msg *telego.Message) (bus.Event, bool) {
	// Relay bots operate over private chats only.
	if msg.Chat.Type != telego.ChatTypePrivate || msg.From == nil {
		return bus.Event{}, false
	}

	ev := bus.Event{
		Sender:    senderFromUser(msg.From),
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}

	if cmd, args, ok := parseCommand(msg.Text); ok {
		ev.Type = bus.EventCommand
		ev.Command = cmd
		ev.Args = args
		return ev, true
	}

	kind, ok := classify(msg)
	if !ok {
		// Service message or unsupported content.
		return bus.Event{}, false
	}

	ev.Type = bus.EventMessage
	ev.Kind = kind
	ev.Text = msg.Text
	if ev.Text == "" {
		ev.Text = msg.Caption
	}
	ev.Forward = forwardOrigin(msg.ForwardOrigin)
	return ev, true
}

// classify assigns exactly one message kind, first-match-wins in the
// priority order text, photo, document, sticker.
func classify(msg *telego.Message) (bus.MessageKind, bool) {
	switch {
	case msg.Text != "":
		return bus.KindText, true
	case len(msg.Photo) > 0:
		return bus.KindPhoto, true
	case msg.Document != nil:
		return bus.KindDocument, true
	case msg.Sticker != nil:
		return bus.KindSticker, true
	}
	return "", false
}

// parseCommand extracts "/cmd args" from text, stripping any @botname
// suffix and lowercasing the command.
func parseCommand(text string) (cmd, args string, ok bool) {
	if len(text) == 0 || text[0] != '/' {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func forwardOrigin(origin telego.MessageOrigin) *bus.ForwardOrigin {
	switch o := origin.(type) {
	case nil:
		return nil
	case *telego.MessageOriginChannel:
		return &bus.ForwardOrigin{
			Type:      "channel",
			ChatID:    o.Chat.ID,
			ChatTitle: o.Chat.Title,
		}
	case *telego.MessageOriginChat:
		return &bus.ForwardOrigin{
			Type:      "chat",
			ChatID:    o.SenderChat.ID,
			ChatTitle: o.SenderChat.Title,
		}
	case *telego.MessageOriginUser:
		return &bus.ForwardOrigin{Type: "user"}
	default:
		return &bus.ForwardOrigin{Type: origin.OriginType()}
	}
}

func senderFromUser(u *telego.User) bus.Sender {
	return bus.Sender{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
