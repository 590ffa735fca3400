package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatArchivedActionDerived(t *testing.T) {
	assert.Equal(t, "archived", ChatArchived{IsArchived: true}.Action())
	assert.Equal(t, "unarchived", ChatArchived{IsArchived: false}.Action())
	assert.Equal(t, "pinned", ChatPinned{IsPinned: true}.Action())
	assert.Equal(t, "unpinned", ChatPinned{IsPinned: false}.Action())
}

func TestFlagEventPayloadShape(t *testing.T) {
	raw, err := json.Marshal(ChatPinned{ChatID: "c1", UserID: "u1", IsPinned: true})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "c1", got["chat_id"])
	assert.Equal(t, "u1", got["user_id"])
	assert.Equal(t, true, got["is_pinned"])
	assert.Equal(t, "pinned", got["action"])
}

func TestMessageSentPayloadOmitsEmptyRefs(t *testing.T) {
	raw, err := json.Marshal(MessageSent{
		ID: "m1", Content: "hi", SenderID: "u1", ChatID: "c1", MessageType: "text",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.NotContains(t, got, "reply_to_id")
	assert.NotContains(t, got, "forwarded_from")
	assert.NotContains(t, got, "file_url")
	assert.Equal(t, "m1", got["id"])
	assert.Equal(t, "c1", got["chat_id"])
}

func TestMessageDeletedActorNotSerialized(t *testing.T) {
	raw, err := json.Marshal(MessageDeleted{MessageID: "m1", ChatID: "c1", DeleteType: "for_me", ActorID: "u1"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "u1")
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		key   string
		scope channelScope
		id    string
	}{
		{"chat.42", scopeChat, "42"},
		{"user.7", scopeUser, "7"},
		{"presence.chat.42", scopePresenceChat, "42"},
		{"presence.online", scopePresenceOnline, ""},
		{"bogus", scopeUnknown, ""},
	}
	for _, tt := range tests {
		scope, id := parseChannel(tt.key)
		assert.Equal(t, tt.scope, scope, tt.key)
		assert.Equal(t, tt.id, id, tt.key)
	}
}
