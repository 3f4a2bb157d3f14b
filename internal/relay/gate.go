package relay

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/anonrelay/internal/platform"
)

// Access is the subscription gate's verdict for one sender.
type Access struct {
	Allowed bool
	Notice  string // shown to blocked senders
	JoinURL string // join link when the channel has a public handle
}

// checkAccess enforces the force-subscription precondition. The gate is
// open when force-subscription is off or no channel is bound. Membership
// lookup failures block the sender: relaying to a gated destination without
// certainty of membership would defeat the feature.
func (a *Agent) checkAccess(ctx context.Context, senderID int64) Access {
	view := a.settings.Snapshot()
	if !view.ForceSub || view.Channel == nil {
		return Access{Allowed: true}
	}

	status, err := a.api.GetMember(ctx, view.Channel.ID, senderID)
	if err != nil {
		slog.Warn("membership lookup failed, blocking sender",
			"bot", a.Username(), "channel", view.Channel.ID, "sender", senderID, "error", err)
		return Access{Notice: noticeJoinRetry}
	}

	switch status {
	case platform.StatusLeft, platform.StatusKicked:
		acc := Access{Notice: noticeJoinRequired}
		if view.Channel.Username != "" {
			acc.JoinURL = "https://t.me/" + view.Channel.Username
		}
		return acc
	default:
		return Access{Allowed: true}
	}
}
