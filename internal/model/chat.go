package model

import "time"

type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

type ParticipantRole string

const (
	RoleMember ParticipantRole = "member"
	RoleAdmin  ParticipantRole = "admin"
)

// MaxPinnedChats is the system-wide ceiling of pinned chats per user.
const MaxPinnedChats = 10

// Mute duration bounds. A nil muted_until means an indefinite mute.
const (
	MinMuteDuration = 15 * time.Minute
	MaxMuteDuration = 30 * 24 * time.Hour
)

// Chat is the shared chat entity. Name is empty for private chats and is
// resolved client-side to the other participant's name. The last-message
// columns are a denormalized cache used for chat-list ordering and previews.
type Chat struct {
	ID                  string    `json:"id"`
	ChatType            ChatType  `json:"chat_type"`
	Name                string    `json:"name"`
	AvatarURL           string    `json:"avatar_url"`
	CreatedBy           string    `json:"created_by"`
	LastMessageContent  string    `json:"last_message_content"`
	LastMessageSenderID string    `json:"last_message_sender_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ChatParticipant is the per-(chat,user) membership row. Mute, pin and
// archive are properties of the relationship, not of the Chat, so two
// participants can hold divergent views of the same chat. The row is
// physically deleted when the user leaves or is removed.
type ChatParticipant struct {
	ChatID     string          `json:"chat_id"`
	UserID     string          `json:"user_id"`
	Role       ParticipantRole `json:"role"`
	IsArchived bool            `json:"is_archived"`
	IsMuted    bool            `json:"is_muted"`
	MutedUntil *time.Time      `json:"muted_until,omitempty"`
	IsPinned   bool            `json:"is_pinned"`
	JoinedAt   time.Time       `json:"joined_at"`
}

// MutedNow reports whether the participant is muted at time now. An expired
// muted_until counts as unmuted even if is_muted is still set.
func (p *ChatParticipant) MutedNow(now time.Time) bool {
	if !p.IsMuted {
		return false
	}
	if p.MutedUntil == nil {
		return true
	}
	return p.MutedUntil.After(now)
}

// ChatListEntry is a chat joined with the viewer's membership row and member
// previews, as returned by the chat list.
type ChatListEntry struct {
	Chat       Chat            `json:"chat"`
	Role       ParticipantRole `json:"role"`
	IsArchived bool            `json:"is_archived"`
	IsMuted    bool            `json:"is_muted"`
	MutedUntil *time.Time      `json:"muted_until,omitempty"`
	IsPinned   bool            `json:"is_pinned"`
	Members    []UserPublic    `json:"members"`
}
