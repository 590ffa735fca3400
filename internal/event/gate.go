package event

import (
	"context"
	"time"

	"github.com/chatwire/internal/logger"
)

// MembershipChecker answers whether a user currently belongs to a chat. The
// check must also fail when the chat itself no longer exists.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

// Gate is the channel authorization predicate. It is re-evaluated on every
// delivery attempt and never cached across mutations, so a removed
// participant stops receiving events on their next delivery without an
// explicit unsubscribe.
type Gate struct {
	members MembershipChecker
}

func NewGate(members MembershipChecker) *Gate {
	return &Gate{members: members}
}

// CanReceive reports whether userID may receive traffic on channel.
func (g *Gate) CanReceive(ctx context.Context, userID, channel string) bool {
	defer logger.DeferLogDuration("gate.CanReceive", time.Now())()
	scope, id := parseChannel(channel)
	switch scope {
	case scopeChat, scopePresenceChat:
		ok, err := g.members.IsParticipant(ctx, id, userID)
		if err != nil {
			logger.Errorf("gate check chat=%s user=%s: %v", id, userID, err)
			return false
		}
		return ok
	case scopeUser:
		return id == userID
	case scopePresenceOnline:
		// The global roster is open to every authenticated user.
		return true
	}
	return false
}
