package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/mocks"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/repository"
)

func newReactionService() (*ReactionService, *mocks.ReactionStoreMock, *mocks.MessageStoreMock, *mocks.ChatStoreMock, *mocks.UserStoreMock, *mocks.PublisherMock) {
	reactions := new(mocks.ReactionStoreMock)
	msgs := new(mocks.MessageStoreMock)
	chats := new(mocks.ChatStoreMock)
	users := new(mocks.UserStoreMock)
	pub := new(mocks.PublisherMock)
	return NewReactionService(reactions, msgs, chats, users, pub), reactions, msgs, chats, users, pub
}

func TestAddReactionPublishesToChat(t *testing.T) {
	svc, reactions, msgs, chats, users, pub := newReactionService()
	m := &model.Message{ID: "m1", ChatID: "chat1", SenderID: "bob"}

	msgs.On("GetByID", mock.Anything, "m1").Return(m, nil).Once()
	chats.On("IsParticipant", mock.Anything, "chat1", "alice").Return(true, nil).Once()
	users.On("GetByID", mock.Anything, "alice").Return(&model.User{ID: "alice", Username: "alice"}, nil).Once()
	reactions.On("Add", mock.Anything, mock.AnythingOfType("*model.MessageReaction")).Return(nil).Once()
	pub.On("Publish", mock.Anything).Once()

	mr, err := svc.Add(context.Background(), "m1", "alice", "👍")
	require.NoError(t, err)
	assert.Equal(t, "👍", mr.Emoji)
	require.NotNil(t, mr.User)
	assert.Equal(t, "alice", mr.User.Username)

	ev := pub.Calls[0].Arguments.Get(0).(event.ReactionAdded)
	assert.Equal(t, "chat1", ev.ChatID)
	assert.Equal(t, mr.ID, ev.Reaction.ID)
	assert.Equal(t, "alice", ev.Reaction.UserID)

	// The payload carries the reactor's public profile.
	payloadUser, ok := ev.Reaction.User.(model.UserPublic)
	require.True(t, ok)
	assert.Equal(t, "alice", payloadUser.Username)
}

func TestAddReactionDuplicateTriple(t *testing.T) {
	svc, reactions, msgs, chats, users, pub := newReactionService()
	m := &model.Message{ID: "m1", ChatID: "chat1", SenderID: "bob"}

	msgs.On("GetByID", mock.Anything, "m1").Return(m, nil).Once()
	chats.On("IsParticipant", mock.Anything, "chat1", "alice").Return(true, nil).Once()
	users.On("GetByID", mock.Anything, "alice").Return(&model.User{ID: "alice", Username: "alice"}, nil).Once()
	reactions.On("Add", mock.Anything, mock.Anything).Return(repository.ErrDuplicateReaction).Once()

	_, err := svc.Add(context.Background(), "m1", "alice", "👍")
	require.ErrorIs(t, err, repository.ErrDuplicateReaction)
	pub.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestAddReactionHiddenMessage(t *testing.T) {
	svc, _, msgs, chats, _, _ := newReactionService()
	m := &model.Message{ID: "m1", ChatID: "chat1", SenderID: "bob", DeletedForAll: true}

	msgs.On("GetByID", mock.Anything, "m1").Return(m, nil).Once()
	chats.On("IsParticipant", mock.Anything, "chat1", "alice").Return(true, nil).Once()

	_, err := svc.Add(context.Background(), "m1", "alice", "👍")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRemoveReactionOwnerOnly(t *testing.T) {
	svc, reactions, msgs, _, _, pub := newReactionService()
	mr := &model.MessageReaction{ID: "r1", MessageID: "m1", UserID: "alice", Emoji: "👍"}

	reactions.On("GetByID", mock.Anything, "r1").Return(mr, nil).Twice()

	err := svc.Remove(context.Background(), "r1", "bob")
	require.ErrorIs(t, err, ErrForbidden)

	msgs.On("GetByID", mock.Anything, "m1").Return(&model.Message{ID: "m1", ChatID: "chat1"}, nil).Once()
	reactions.On("Delete", mock.Anything, "r1").Return(nil).Once()
	pub.On("Publish", mock.Anything).Once()

	require.NoError(t, svc.Remove(context.Background(), "r1", "alice"))
	ev := pub.Calls[0].Arguments.Get(0).(event.ReactionRemoved)
	assert.Equal(t, "r1", ev.ReactionID)
	assert.Equal(t, "chat1", ev.ChatID)
}

func TestUpdateReactionKeepsID(t *testing.T) {
	svc, reactions, msgs, _, users, pub := newReactionService()
	mr := &model.MessageReaction{ID: "r1", MessageID: "m1", UserID: "alice", Emoji: "👍"}

	reactions.On("GetByID", mock.Anything, "r1").Return(mr, nil).Once()
	msgs.On("GetByID", mock.Anything, "m1").Return(&model.Message{ID: "m1", ChatID: "chat1"}, nil).Once()
	reactions.On("Get", mock.Anything, "m1", "alice", "❤️").Return(nil, repository.ErrNotFound).Once()
	users.On("GetByID", mock.Anything, "alice").Return(&model.User{ID: "alice", Username: "alice"}, nil).Once()
	reactions.On("UpdateEmoji", mock.Anything, "r1", "❤️").Return(nil).Once()
	pub.On("Publish", mock.Anything).Once()

	out, err := svc.Update(context.Background(), "r1", "alice", "❤️")
	require.NoError(t, err)
	assert.Equal(t, "r1", out.ID)
	assert.Equal(t, "❤️", out.Emoji)

	ev := pub.Calls[0].Arguments.Get(0).(event.ReactionAdded)
	assert.Equal(t, "❤️", ev.Reaction.Emoji)
	payloadUser, ok := ev.Reaction.User.(model.UserPublic)
	require.True(t, ok)
	assert.Equal(t, "alice", payloadUser.Username)
}

func TestUpdateReactionEmojiCollision(t *testing.T) {
	svc, reactions, msgs, _, _, pub := newReactionService()
	mr := &model.MessageReaction{ID: "r1", MessageID: "m1", UserID: "alice", Emoji: "👍"}
	held := &model.MessageReaction{ID: "r2", MessageID: "m1", UserID: "alice", Emoji: "❤️"}

	reactions.On("GetByID", mock.Anything, "r1").Return(mr, nil).Once()
	msgs.On("GetByID", mock.Anything, "m1").Return(&model.Message{ID: "m1", ChatID: "chat1"}, nil).Once()
	reactions.On("Get", mock.Anything, "m1", "alice", "❤️").Return(held, nil).Once()

	_, err := svc.Update(context.Background(), "r1", "alice", "❤️")
	require.ErrorIs(t, err, repository.ErrDuplicateReaction)
	reactions.AssertNotCalled(t, "UpdateEmoji", mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestSummarizeGroupsByFirstAppearance(t *testing.T) {
	svc, reactions, msgs, chats, _, _ := newReactionService()
	m := &model.Message{ID: "m1", ChatID: "chat1", SenderID: "bob"}

	msgs.On("GetByID", mock.Anything, "m1").Return(m, nil).Once()
	chats.On("IsParticipant", mock.Anything, "chat1", "alice").Return(true, nil).Once()
	reactions.On("ListByMessage", mock.Anything, "m1").Return([]model.MessageReaction{
		{ID: "r1", UserID: "bob", Emoji: "👍"},
		{ID: "r2", UserID: "carol", Emoji: "❤️"},
		{ID: "r3", UserID: "alice", Emoji: "👍"},
	}, nil).Once()

	groups, err := svc.Summarize(context.Background(), "m1", "alice")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "👍", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []string{"bob", "alice"}, groups[0].Users)
	assert.True(t, groups[0].ViewerHasReacted)

	assert.Equal(t, "❤️", groups[1].Emoji)
	assert.Equal(t, 1, groups[1].Count)
	assert.False(t, groups[1].ViewerHasReacted)
}
