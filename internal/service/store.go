package service

import (
	"context"
	"time"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/model"
)

// The store interfaces mirror the repository methods the services consume.
// They exist so the services can be tested against mocks without a database.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	SetOnline(ctx context.Context, id string, online bool) error
	UpdateLastSeen(ctx context.Context, id string) error
}

type ChatStore interface {
	Create(ctx context.Context, c *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	FindOrCreatePrivate(ctx context.Context, userA, userB string) (*model.Chat, bool, error)
	AddParticipant(ctx context.Context, p *model.ChatParticipant) error
	RemoveParticipant(ctx context.Context, chatID, userID string) error
	GetParticipant(ctx context.Context, chatID, userID string) (*model.ChatParticipant, error)
	Participants(ctx context.Context, chatID string) ([]model.ChatParticipant, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	Members(ctx context.Context, chatID string) ([]model.User, error)
	SetArchived(ctx context.Context, chatID, userID string, archived bool) error
	SetMuted(ctx context.Context, chatID, userID string, muted bool, until *time.Time) error
	SetPinned(ctx context.Context, chatID, userID string, pinned bool) error
	CacheLastMessage(ctx context.Context, chatID, content, senderID string, at time.Time) error
	ListUserChats(ctx context.Context, userID string) ([]model.ChatListEntry, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	MarkDeletedForMe(ctx context.Context, id string) error
	MarkDeletedForAll(ctx context.Context, id string) error
	ListVisible(ctx context.Context, chatID, viewerID string, afterAt time.Time, afterID string, limit int) ([]model.Message, error)
}

type ReactionStore interface {
	Add(ctx context.Context, mr *model.MessageReaction) error
	GetByID(ctx context.Context, id string) (*model.MessageReaction, error)
	Get(ctx context.Context, messageID, userID, emoji string) (*model.MessageReaction, error)
	Delete(ctx context.Context, id string) error
	UpdateEmoji(ctx context.Context, id, emoji string) error
	ListByMessage(ctx context.Context, messageID string) ([]model.MessageReaction, error)
}

// Publisher is the event sink services push committed mutations into.
type Publisher interface {
	Publish(ev event.DomainEvent)
}
