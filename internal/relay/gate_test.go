package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/anonrelay/internal/platform"
)

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name      string
		forceSub  bool
		channel   *BoundChannel
		status    platform.MemberStatus
		statusErr error

		wantAllowed bool
		wantNotice  string
		wantJoinURL string
	}{
		{
			name:        "force-sub off",
			channel:     &BoundChannel{ID: -1},
			status:      platform.StatusLeft,
			wantAllowed: true,
		},
		{
			name:        "no channel bound",
			forceSub:    true,
			wantAllowed: true,
		},
		{
			name:        "member passes",
			forceSub:    true,
			channel:     &BoundChannel{ID: -1},
			status:      platform.StatusMember,
			wantAllowed: true,
		},
		{
			name:        "restricted passes",
			forceSub:    true,
			channel:     &BoundChannel{ID: -1},
			status:      platform.StatusRestricted,
			wantAllowed: true,
		},
		{
			name:        "left blocked with join link",
			forceSub:    true,
			channel:     &BoundChannel{ID: -1, Username: "newsfeed"},
			status:      platform.StatusLeft,
			wantNotice:  noticeJoinRequired,
			wantJoinURL: "https://t.me/newsfeed",
		},
		{
			name:       "kicked blocked, private channel has no link",
			forceSub:   true,
			channel:    &BoundChannel{ID: -1},
			status:     platform.StatusKicked,
			wantNotice: noticeJoinRequired,
		},
		{
			name:       "lookup failure blocks",
			forceSub:   true,
			channel:    &BoundChannel{ID: -1},
			statusErr:  errors.New("api down"),
			wantNotice: noticeJoinRetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI("relay_bot")
			api.memberStatus = tt.status
			api.memberErr = tt.statusErr

			a := newTestAgent(api)
			if tt.channel != nil {
				a.settings.CommitChannel(*tt.channel)
			}
			if tt.forceSub {
				a.settings.ToggleForceSub()
			}

			acc := a.checkAccess(context.Background(), testSenderID)
			if acc.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", acc.Allowed, tt.wantAllowed)
			}
			if acc.Notice != tt.wantNotice {
				t.Errorf("Notice = %q, want %q", acc.Notice, tt.wantNotice)
			}
			if acc.JoinURL != tt.wantJoinURL {
				t.Errorf("JoinURL = %q, want %q", acc.JoinURL, tt.wantJoinURL)
			}
		})
	}
}
