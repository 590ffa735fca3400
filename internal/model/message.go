package model

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeFile     MessageType = "file"
	MessageTypeVoice    MessageType = "voice"
	MessageTypeDocument MessageType = "document"
	MessageTypeAudio    MessageType = "audio"
)

// ValidMessageType reports whether t is one of the known message types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile,
		MessageTypeVoice, MessageTypeDocument, MessageTypeAudio:
		return true
	}
	return false
}

type DeleteScope string

const (
	DeleteForMe       DeleteScope = "for_me"
	DeleteForEveryone DeleteScope = "for_everyone"
)

// Message is immutable once created except for the two deletion flags.
// ReplyToID and ForwardedFrom are weak references: the keys persist even when
// the referenced message becomes invisible, and are resolved to a placeholder
// view at read time, never nulled.
type Message struct {
	ID            string      `json:"id"`
	ChatID        string      `json:"chat_id"`
	SenderID      string      `json:"sender_id"`
	Content       string      `json:"content"`
	MessageType   MessageType `json:"message_type"`
	FileURL       string      `json:"file_url,omitempty"`
	ReplyToID     *string     `json:"reply_to_id,omitempty"`
	ForwardedFrom *string     `json:"forwarded_from,omitempty"`
	IsDeleted     bool        `json:"is_deleted"`
	DeletedForAll bool        `json:"deleted_for_all"`
	CreatedAt     time.Time   `json:"created_at"`

	Sender  *UserPublic `json:"sender,omitempty"`
	ReplyTo *MessageRef `json:"reply_to,omitempty"`
}

// VisibleTo is the single visibility rule applied everywhere messages are
// listed: hidden from everyone once deleted for all, hidden from everyone but
// the sender once soft-deleted.
func (m *Message) VisibleTo(viewerID string) bool {
	if m.DeletedForAll {
		return false
	}
	return !m.IsDeleted || m.SenderID == viewerID
}

// MessageRef is the resolved view of a weak message reference. A dangling or
// deleted-for-all target yields Unavailable=true with no content.
type MessageRef struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"sender_id,omitempty"`
	Content     string      `json:"content,omitempty"`
	MessageType MessageType `json:"message_type,omitempty"`
	Unavailable bool        `json:"unavailable,omitempty"`
}

// RefFor resolves target as a reference view for viewerID. target may be nil
// (dangling key).
func RefFor(id string, target *Message, viewerID string) *MessageRef {
	if target == nil || !target.VisibleTo(viewerID) {
		return &MessageRef{ID: id, Unavailable: true}
	}
	return &MessageRef{
		ID:          target.ID,
		SenderID:    target.SenderID,
		Content:     target.Content,
		MessageType: target.MessageType,
	}
}
