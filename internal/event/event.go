// Package event defines the closed set of domain events, the channel naming
// scheme, the per-delivery authorization gate and the dispatcher that fans a
// committed mutation out to the authorized subscribers.
package event

import "encoding/json"

// Kind names are part of the wire contract and must stay bit-exact.
type Kind string

const (
	KindChatCreated     Kind = "chat.created"
	KindMessageSent     Kind = "message.sent"
	KindMessageDeleted  Kind = "message.deleted"
	KindReactionAdded   Kind = "message.reaction.added"
	KindReactionRemoved Kind = "message.reaction.removed"
	KindUserTyping      Kind = "user.typing"
	KindChatArchived    Kind = "chat.archived"
	KindChatPinned      Kind = "chat.pinned"
	KindUserOnline      Kind = "user.online"
	KindUserOffline     Kind = "user.offline"

	// KindError is not a domain event; it is the frame type used to report
	// command failures back to a single websocket client.
	KindError Kind = "error"
)

// Frame is the envelope delivered to subscribers.
type Frame struct {
	Type    Kind `json:"type"`
	Payload any  `json:"payload"`
}

// DomainEvent is a closed sum: every state mutation produces exactly one of
// the variants below. The dispatcher switches on the concrete type to select
// channels and exclusion behavior.
type DomainEvent interface {
	EventKind() Kind
	sealed()
}

type ChatCreated struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

func (ChatCreated) EventKind() Kind { return KindChatCreated }
func (ChatCreated) sealed()         {}

type MessageSent struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	SenderID      string  `json:"sender_id"`
	ChatID        string  `json:"chat_id"`
	MessageType   string  `json:"message_type"`
	ReplyToID     *string `json:"reply_to_id,omitempty"`
	ForwardedFrom *string `json:"forwarded_from,omitempty"`
	FileURL       string  `json:"file_url,omitempty"`
}

func (MessageSent) EventKind() Kind { return KindMessageSent }
func (MessageSent) sealed()         {}

type MessageDeleted struct {
	MessageID  string `json:"message_id"`
	ChatID     string `json:"chat_id"`
	DeleteType string `json:"delete_type"`

	// ActorID routes a for_me deletion to the deleting user's own channel;
	// it is not part of the payload.
	ActorID string `json:"-"`
}

func (MessageDeleted) EventKind() Kind { return KindMessageDeleted }
func (MessageDeleted) sealed()         {}

// ReactionPayload is the nested reaction object of a ReactionAdded payload.
type ReactionPayload struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	User      any    `json:"user,omitempty"`
}

type ReactionAdded struct {
	Reaction ReactionPayload `json:"reaction"`

	// ChatID selects the chat channel; not part of the payload.
	ChatID string `json:"-"`
}

func (ReactionAdded) EventKind() Kind { return KindReactionAdded }
func (ReactionAdded) sealed()         {}

type ReactionRemoved struct {
	ReactionID string `json:"reaction_id"`
	MessageID  string `json:"message_id"`
	UserID     string `json:"user_id"`
	ChatID     string `json:"chat_id"`
}

func (ReactionRemoved) EventKind() Kind { return KindReactionRemoved }
func (ReactionRemoved) sealed()         {}

type UserTyping struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	ChatID   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

func (UserTyping) EventKind() Kind { return KindUserTyping }
func (UserTyping) sealed()         {}

type ChatArchived struct {
	ChatID     string `json:"chat_id"`
	UserID     string `json:"user_id"`
	IsArchived bool   `json:"is_archived"`
}

func (ChatArchived) EventKind() Kind { return KindChatArchived }
func (ChatArchived) sealed()         {}

// Action is derived from the boolean, never stored.
func (e ChatArchived) Action() string {
	if e.IsArchived {
		return "archived"
	}
	return "unarchived"
}

func (e ChatArchived) MarshalJSON() ([]byte, error) {
	type payload struct {
		ChatID     string `json:"chat_id"`
		UserID     string `json:"user_id"`
		IsArchived bool   `json:"is_archived"`
		Action     string `json:"action"`
	}
	return json.Marshal(payload{e.ChatID, e.UserID, e.IsArchived, e.Action()})
}

type ChatPinned struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	IsPinned bool   `json:"is_pinned"`
}

func (ChatPinned) EventKind() Kind { return KindChatPinned }
func (ChatPinned) sealed()         {}

// Action is derived from the boolean, never stored.
func (e ChatPinned) Action() string {
	if e.IsPinned {
		return "pinned"
	}
	return "unpinned"
}

func (e ChatPinned) MarshalJSON() ([]byte, error) {
	type payload struct {
		ChatID   string `json:"chat_id"`
		UserID   string `json:"user_id"`
		IsPinned bool   `json:"is_pinned"`
		Action   string `json:"action"`
	}
	return json.Marshal(payload{e.ChatID, e.UserID, e.IsPinned, e.Action()})
}

// UserStatus covers both user.online and user.offline for the global roster.
type UserStatus struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

func (e UserStatus) EventKind() Kind {
	if e.IsOnline {
		return KindUserOnline
	}
	return KindUserOffline
}
func (UserStatus) sealed() {}
