package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeMembers is membership state keyed by "chatID/userID".
type fakeMembers map[string]bool

func (f fakeMembers) IsParticipant(_ context.Context, chatID, userID string) (bool, error) {
	return f[chatID+"/"+userID], nil
}

func TestGateChatChannel(t *testing.T) {
	members := fakeMembers{"c1/alice": true}
	gate := NewGate(members)
	ctx := context.Background()

	assert.True(t, gate.CanReceive(ctx, "alice", "chat.c1"))
	assert.False(t, gate.CanReceive(ctx, "bob", "chat.c1"))
	// Nonexistent chat: membership lookup finds nothing.
	assert.False(t, gate.CanReceive(ctx, "alice", "chat.gone"))
}

func TestGateRevokedWithoutUnsubscribe(t *testing.T) {
	members := fakeMembers{"c1/alice": true}
	gate := NewGate(members)
	ctx := context.Background()

	assert.True(t, gate.CanReceive(ctx, "alice", "chat.c1"))

	// Removing the participant flips the next delivery attempt, no
	// unsubscribe involved.
	members["c1/alice"] = false
	assert.False(t, gate.CanReceive(ctx, "alice", "chat.c1"))
}

func TestGateUserChannel(t *testing.T) {
	gate := NewGate(fakeMembers{})
	ctx := context.Background()

	assert.True(t, gate.CanReceive(ctx, "alice", "user.alice"))
	assert.False(t, gate.CanReceive(ctx, "bob", "user.alice"))
}

func TestGatePresenceChannels(t *testing.T) {
	members := fakeMembers{"c1/alice": true}
	gate := NewGate(members)
	ctx := context.Background()

	assert.True(t, gate.CanReceive(ctx, "alice", "presence.chat.c1"))
	assert.False(t, gate.CanReceive(ctx, "bob", "presence.chat.c1"))
	assert.True(t, gate.CanReceive(ctx, "anyone", "presence.online"))
}

func TestGateUnknownChannel(t *testing.T) {
	gate := NewGate(fakeMembers{})
	assert.False(t, gate.CanReceive(context.Background(), "alice", "weird.channel"))
}
