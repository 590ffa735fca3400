package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/internal/event"
)

func testClient(h *Hub, userID string) *Client {
	return NewClient(h, nil, userID)
}

func TestHubTracksClientsPerUser(t *testing.T) {
	h := NewHub(nil, nil, nil, 0)

	a1 := testClient(h, "alice")
	a2 := testClient(h, "alice")
	b := testClient(h, "bob")
	h.clients["alice"] = map[*Client]struct{}{a1: {}, a2: {}}
	h.clients["bob"] = map[*Client]struct{}{b: {}}
	h.total = 3

	assert.True(t, h.IsOnline("alice"))
	assert.True(t, h.IsOnline("bob"))
	assert.False(t, h.IsOnline("carol"))
	assert.ElementsMatch(t, []string{"alice", "bob"}, h.OnlineUserIDs())
}

func TestSendToUserFansOutToAllSockets(t *testing.T) {
	h := NewHub(nil, nil, nil, 0)

	a1 := testClient(h, "alice")
	a2 := testClient(h, "alice")
	h.clients["alice"] = map[*Client]struct{}{a1: {}, a2: {}}

	frame := event.Frame{Type: event.KindMessageSent, Payload: "x"}
	h.SendToUser("alice", frame)
	h.SendToUser("nobody", frame)

	require.Len(t, a1.send, 1)
	require.Len(t, a2.send, 1)
	got := <-a1.send
	assert.Equal(t, event.KindMessageSent, got.Type)
}

func TestSendToClientClosesSlowClient(t *testing.T) {
	h := NewHub(nil, nil, nil, 0)
	c := testClient(h, "alice")

	for i := 0; i < sendBufSize; i++ {
		c.send <- event.Frame{Type: event.KindUserTyping}
	}
	h.sendToClient(c, event.Frame{Type: event.KindMessageSent})

	select {
	case <-c.done:
	default:
		t.Fatal("expected slow client to be closed")
	}
}

func TestSendErrorGoesToSingleClient(t *testing.T) {
	h := NewHub(nil, nil, nil, 0)
	c := testClient(h, "alice")

	h.sendError(c, "bad command")
	require.Len(t, c.send, 1)
	frame := <-c.send
	assert.Equal(t, event.KindError, frame.Type)
	assert.Equal(t, "bad command", frame.Payload)
}
