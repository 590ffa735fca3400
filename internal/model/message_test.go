package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageVisibleTo(t *testing.T) {
	tests := []struct {
		name          string
		isDeleted     bool
		deletedForAll bool
		viewer        string
		want          bool
	}{
		{"active message, any viewer", false, false, "bob", true},
		{"soft-deleted, non-sender viewer", true, false, "bob", false},
		{"soft-deleted, sender still sees it", true, false, "alice", true},
		{"deleted for all, non-sender", false, true, "bob", false},
		{"deleted for all, sender", false, true, "alice", false},
		{"both flags, sender", true, true, "alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{SenderID: "alice", IsDeleted: tt.isDeleted, DeletedForAll: tt.deletedForAll}
			assert.Equal(t, tt.want, m.VisibleTo(tt.viewer))
		})
	}
}

func TestRefFor(t *testing.T) {
	target := &Message{ID: "m1", SenderID: "alice", Content: "hi", MessageType: MessageTypeText}

	ref := RefFor("m1", target, "bob")
	require.NotNil(t, ref)
	assert.False(t, ref.Unavailable)
	assert.Equal(t, "hi", ref.Content)

	// Deleted-for-all target renders as unavailable, the key persists.
	target.DeletedForAll = true
	ref = RefFor("m1", target, "bob")
	assert.True(t, ref.Unavailable)
	assert.Equal(t, "m1", ref.ID)
	assert.Empty(t, ref.Content)

	// Dangling key.
	ref = RefFor("gone", nil, "bob")
	assert.True(t, ref.Unavailable)
	assert.Equal(t, "gone", ref.ID)
}

func TestParticipantMutedNow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	p := &ChatParticipant{}
	assert.False(t, p.MutedNow(now))

	p.IsMuted = true
	assert.True(t, p.MutedNow(now), "indefinite mute")

	p.MutedUntil = &future
	assert.True(t, p.MutedNow(now))

	p.MutedUntil = &past
	assert.False(t, p.MutedNow(now), "expired mute counts as unmuted")
}
