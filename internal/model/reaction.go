package model

import "time"

// MessageReaction is a single user's emoji reaction to a message. Uniqueness
// on (message_id, user_id, emoji) is enforced by the store; a user can hold
// several distinct-emoji reactions on the same message.
type MessageReaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`

	User *UserPublic `json:"user,omitempty"`
}

// ReactionGroup is a per-emoji aggregate for display, in order of the
// emoji's first appearance on the message.
type ReactionGroup struct {
	Emoji            string   `json:"emoji"`
	Count            int      `json:"count"`
	Users            []string `json:"users"`
	ViewerHasReacted bool     `json:"viewer_has_reacted"`
}
