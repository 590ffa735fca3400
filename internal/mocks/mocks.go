// Package mocks provides testify mocks for the service-layer store
// interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/model"
)

type UserStoreMock struct {
	mock.Mock
}

func (m *UserStoreMock) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserStoreMock) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	var u *model.User
	if val := args.Get(0); val != nil {
		u = val.(*model.User)
	}
	return u, args.Error(1)
}

func (m *UserStoreMock) SetOnline(ctx context.Context, id string, online bool) error {
	args := m.Called(ctx, id, online)
	return args.Error(0)
}

func (m *UserStoreMock) UpdateLastSeen(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ChatStoreMock struct {
	mock.Mock
}

func (m *ChatStoreMock) Create(ctx context.Context, c *model.Chat) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *ChatStoreMock) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	args := m.Called(ctx, id)
	var c *model.Chat
	if val := args.Get(0); val != nil {
		c = val.(*model.Chat)
	}
	return c, args.Error(1)
}

func (m *ChatStoreMock) FindOrCreatePrivate(ctx context.Context, userA, userB string) (*model.Chat, bool, error) {
	args := m.Called(ctx, userA, userB)
	var c *model.Chat
	if val := args.Get(0); val != nil {
		c = val.(*model.Chat)
	}
	return c, args.Bool(1), args.Error(2)
}

func (m *ChatStoreMock) AddParticipant(ctx context.Context, p *model.ChatParticipant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ChatStoreMock) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ChatStoreMock) GetParticipant(ctx context.Context, chatID, userID string) (*model.ChatParticipant, error) {
	args := m.Called(ctx, chatID, userID)
	var p *model.ChatParticipant
	if val := args.Get(0); val != nil {
		p = val.(*model.ChatParticipant)
	}
	return p, args.Error(1)
}

func (m *ChatStoreMock) Participants(ctx context.Context, chatID string) ([]model.ChatParticipant, error) {
	args := m.Called(ctx, chatID)
	var parts []model.ChatParticipant
	if val := args.Get(0); val != nil {
		parts = val.([]model.ChatParticipant)
	}
	return parts, args.Error(1)
}

func (m *ChatStoreMock) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatStoreMock) Members(ctx context.Context, chatID string) ([]model.User, error) {
	args := m.Called(ctx, chatID)
	var users []model.User
	if val := args.Get(0); val != nil {
		users = val.([]model.User)
	}
	return users, args.Error(1)
}

func (m *ChatStoreMock) SetArchived(ctx context.Context, chatID, userID string, archived bool) error {
	args := m.Called(ctx, chatID, userID, archived)
	return args.Error(0)
}

func (m *ChatStoreMock) SetMuted(ctx context.Context, chatID, userID string, muted bool, until *time.Time) error {
	args := m.Called(ctx, chatID, userID, muted, until)
	return args.Error(0)
}

func (m *ChatStoreMock) SetPinned(ctx context.Context, chatID, userID string, pinned bool) error {
	args := m.Called(ctx, chatID, userID, pinned)
	return args.Error(0)
}

func (m *ChatStoreMock) CacheLastMessage(ctx context.Context, chatID, content, senderID string, at time.Time) error {
	args := m.Called(ctx, chatID, content, senderID, at)
	return args.Error(0)
}

func (m *ChatStoreMock) ListUserChats(ctx context.Context, userID string) ([]model.ChatListEntry, error) {
	args := m.Called(ctx, userID)
	var entries []model.ChatListEntry
	if val := args.Get(0); val != nil {
		entries = val.([]model.ChatListEntry)
	}
	return entries, args.Error(1)
}

type MessageStoreMock struct {
	mock.Mock
}

func (m *MessageStoreMock) Create(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageStoreMock) GetByID(ctx context.Context, id string) (*model.Message, error) {
	args := m.Called(ctx, id)
	var msg *model.Message
	if val := args.Get(0); val != nil {
		msg = val.(*model.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageStoreMock) MarkDeletedForMe(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageStoreMock) MarkDeletedForAll(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageStoreMock) ListVisible(ctx context.Context, chatID, viewerID string, afterAt time.Time, afterID string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, chatID, viewerID, afterAt, afterID, limit)
	var msgs []model.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]model.Message)
	}
	return msgs, args.Error(1)
}

type ReactionStoreMock struct {
	mock.Mock
}

func (m *ReactionStoreMock) Add(ctx context.Context, mr *model.MessageReaction) error {
	args := m.Called(ctx, mr)
	return args.Error(0)
}

func (m *ReactionStoreMock) GetByID(ctx context.Context, id string) (*model.MessageReaction, error) {
	args := m.Called(ctx, id)
	var mr *model.MessageReaction
	if val := args.Get(0); val != nil {
		mr = val.(*model.MessageReaction)
	}
	return mr, args.Error(1)
}

func (m *ReactionStoreMock) Get(ctx context.Context, messageID, userID, emoji string) (*model.MessageReaction, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var mr *model.MessageReaction
	if val := args.Get(0); val != nil {
		mr = val.(*model.MessageReaction)
	}
	return mr, args.Error(1)
}

func (m *ReactionStoreMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ReactionStoreMock) UpdateEmoji(ctx context.Context, id, emoji string) error {
	args := m.Called(ctx, id, emoji)
	return args.Error(0)
}

func (m *ReactionStoreMock) ListByMessage(ctx context.Context, messageID string) ([]model.MessageReaction, error) {
	args := m.Called(ctx, messageID)
	var reactions []model.MessageReaction
	if val := args.Get(0); val != nil {
		reactions = val.([]model.MessageReaction)
	}
	return reactions, args.Error(1)
}

type RosterMock struct {
	mock.Mock
}

func (m *RosterMock) MarkOnline(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *RosterMock) MarkOffline(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *RosterMock) Refresh(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *RosterMock) Online(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

// PublisherMock records published events in order.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ev event.DomainEvent) {
	m.Called(ev)
}
