package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedFrame struct {
	userID string
	frame  Frame
}

type fakeTransport struct {
	mu     sync.Mutex
	online []string
	sent   []recordedFrame
}

func (t *fakeTransport) SendToUser(userID string, frame Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, recordedFrame{userID, frame})
}

func (t *fakeTransport) OnlineUserIDs() []string { return t.online }

func (t *fakeTransport) frames() []recordedFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]recordedFrame(nil), t.sent...)
}

type fakeParts map[string][]string

func (f fakeParts) ParticipantIDs(_ context.Context, chatID string) ([]string, error) {
	return f[chatID], nil
}

func (f fakeParts) asMembers() fakeMembers {
	m := fakeMembers{}
	for chat, users := range f {
		for _, u := range users {
			m[chat+"/"+u] = true
		}
	}
	return m
}

// runDispatcher publishes evs, then runs the dispatcher to completion.
func runDispatcher(t *testing.T, parts fakeParts, transport *fakeTransport, evs ...DomainEvent) {
	t.Helper()
	d := NewDispatcher(NewGate(parts.asMembers()), transport, parts)
	for _, ev := range evs {
		d.Publish(ev)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not drain")
	}
}

func TestDispatchExcludesOrigin(t *testing.T) {
	parts := fakeParts{"c1": {"alice", "bob", "carol"}}
	transport := &fakeTransport{}

	runDispatcher(t, parts, transport, MessageSent{ID: "m1", ChatID: "c1", SenderID: "alice", MessageType: "text"})

	frames := transport.frames()
	require.Len(t, frames, 2)
	for _, f := range frames {
		assert.NotEqual(t, "alice", f.userID)
		assert.Equal(t, KindMessageSent, f.frame.Type)
	}
}

func TestDispatchGateVetoesNonMembers(t *testing.T) {
	// bob appears in the candidate list but the gate's membership view has
	// moved on: he must not receive anything.
	parts := fakeParts{"c1": {"alice", "bob"}}
	transport := &fakeTransport{}
	members := parts.asMembers()
	members["c1/bob"] = false
	d := NewDispatcher(NewGate(members), transport, parts)

	d.Publish(UserTyping{UserID: "carol", ChatID: "c1", IsTyping: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	frames := transport.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "alice", frames[0].userID)
}

func TestDispatchOrderPreservedPerSubscriber(t *testing.T) {
	parts := fakeParts{"c1": {"alice", "bob"}}
	transport := &fakeTransport{}

	runDispatcher(t, parts, transport,
		MessageSent{ID: "m1", ChatID: "c1", SenderID: "bob", MessageType: "text"},
		ReactionAdded{ChatID: "c1", Reaction: ReactionPayload{ID: "r1", MessageID: "m1", UserID: "bob", Emoji: "👍"}},
	)

	var aliceKinds []Kind
	for _, f := range transport.frames() {
		if f.userID == "alice" {
			aliceKinds = append(aliceKinds, f.frame.Type)
		}
	}
	require.Equal(t, []Kind{KindMessageSent, KindReactionAdded}, aliceKinds,
		"a reaction must never arrive before the message it reacts to")
}

func TestDispatchForMeDeletionOnlyToActor(t *testing.T) {
	parts := fakeParts{"c1": {"alice", "bob"}}
	transport := &fakeTransport{}

	runDispatcher(t, parts, transport,
		MessageDeleted{MessageID: "m1", ChatID: "c1", DeleteType: "for_me", ActorID: "alice"})

	frames := transport.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "alice", frames[0].userID)
}

func TestDispatchForEveryoneDeletionToChat(t *testing.T) {
	parts := fakeParts{"c1": {"alice", "bob"}}
	transport := &fakeTransport{}

	runDispatcher(t, parts, transport,
		MessageDeleted{MessageID: "m1", ChatID: "c1", DeleteType: "for_everyone", ActorID: "alice"})

	frames := transport.frames()
	require.Len(t, frames, 2)
}

func TestDispatchFlagEventsToOwnUserChannel(t *testing.T) {
	parts := fakeParts{"c1": {"alice", "bob"}}
	transport := &fakeTransport{}

	runDispatcher(t, parts, transport, ChatPinned{ChatID: "c1", UserID: "alice", IsPinned: true})

	frames := transport.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "alice", frames[0].userID)
	assert.Equal(t, KindChatPinned, frames[0].frame.Type)
}

func TestDispatchRosterToConnectedUsers(t *testing.T) {
	transport := &fakeTransport{online: []string{"alice", "bob", "carol"}}

	runDispatcher(t, fakeParts{}, transport, UserStatus{UserID: "carol", IsOnline: true})

	frames := transport.frames()
	require.Len(t, frames, 2, "the user going online is not echoed to themselves")
	for _, f := range frames {
		assert.Equal(t, KindUserOnline, f.frame.Type)
	}
}
