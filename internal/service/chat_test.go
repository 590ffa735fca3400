package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/mocks"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/repository"
)

func newChatService() (*ChatService, *mocks.ChatStoreMock, *mocks.UserStoreMock, *mocks.PublisherMock) {
	chats := new(mocks.ChatStoreMock)
	users := new(mocks.UserStoreMock)
	pub := new(mocks.PublisherMock)
	return NewChatService(chats, users, pub), chats, users, pub
}

func TestFindOrCreatePrivateChatPublishesOnlyOnCreate(t *testing.T) {
	svc, chats, users, pub := newChatService()
	chat := &model.Chat{ID: "c1", ChatType: model.ChatTypePrivate}

	users.On("GetByID", mock.Anything, "bob").Return(&model.User{ID: "bob"}, nil).Twice()
	chats.On("FindOrCreatePrivate", mock.Anything, "alice", "bob").Return(chat, true, nil).Once()
	pub.On("Publish", mock.Anything).Once()

	got, err := svc.FindOrCreatePrivateChat(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	ev := pub.Calls[0].Arguments.Get(0).(event.ChatCreated)
	assert.Equal(t, "c1", ev.ID)
	assert.Equal(t, "private", ev.Type)

	// Second call finds the existing chat and stays silent.
	chats.On("FindOrCreatePrivate", mock.Anything, "alice", "bob").Return(chat, false, nil).Once()
	got2, err := svc.FindOrCreatePrivateChat(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, got.ID, got2.ID)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestFindOrCreatePrivateChatRejectsSelf(t *testing.T) {
	svc, _, _, _ := newChatService()
	_, err := svc.FindOrCreatePrivateChat(context.Background(), "alice", "alice")
	require.ErrorIs(t, err, ErrSelfChat)
}

func TestCreateGroupChatAddsCreatorAsAdmin(t *testing.T) {
	svc, chats, users, pub := newChatService()

	chats.On("Create", mock.Anything, mock.AnythingOfType("*model.Chat")).Return(nil).Once()
	chats.On("AddParticipant", mock.Anything, mock.MatchedBy(func(p *model.ChatParticipant) bool {
		return p.UserID == "alice" && p.Role == model.RoleAdmin
	})).Return(nil).Once()
	users.On("GetByID", mock.Anything, "bob").Return(&model.User{ID: "bob"}, nil).Once()
	chats.On("AddParticipant", mock.Anything, mock.MatchedBy(func(p *model.ChatParticipant) bool {
		return p.UserID == "bob" && p.Role == model.RoleMember
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything).Once()

	chat, err := svc.CreateGroupChat(context.Background(), "alice", "team", []string{"bob", "alice"})
	require.NoError(t, err)
	assert.Equal(t, model.ChatTypeGroup, chat.ChatType)
	assert.Equal(t, "team", chat.Name)
	chats.AssertExpectations(t)
}

func TestAddMemberRequiresAdminAndGroup(t *testing.T) {
	svc, chats, users, _ := newChatService()
	group := &model.Chat{ID: "c1", ChatType: model.ChatTypeGroup}

	chats.On("GetByID", mock.Anything, "c1").Return(group, nil)
	chats.On("GetParticipant", mock.Anything, "c1", "bob").Return(
		&model.ChatParticipant{ChatID: "c1", UserID: "bob", Role: model.RoleMember}, nil).Once()

	err := svc.AddMember(context.Background(), "c1", "bob", "carol")
	require.ErrorIs(t, err, ErrForbidden)

	chats.On("GetParticipant", mock.Anything, "c1", "alice").Return(
		&model.ChatParticipant{ChatID: "c1", UserID: "alice", Role: model.RoleAdmin}, nil).Once()
	users.On("GetByID", mock.Anything, "carol").Return(&model.User{ID: "carol"}, nil).Once()
	chats.On("AddParticipant", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.AddMember(context.Background(), "c1", "alice", "carol"))

	private := &model.Chat{ID: "c2", ChatType: model.ChatTypePrivate}
	chats.On("GetByID", mock.Anything, "c2").Return(private, nil).Once()
	err = svc.AddMember(context.Background(), "c2", "alice", "carol")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRemoveMemberSelfLeaveAllowed(t *testing.T) {
	svc, chats, _, _ := newChatService()
	group := &model.Chat{ID: "c1", ChatType: model.ChatTypeGroup}

	chats.On("GetByID", mock.Anything, "c1").Return(group, nil).Once()
	chats.On("RemoveParticipant", mock.Anything, "c1", "bob").Return(nil).Once()

	require.NoError(t, svc.RemoveMember(context.Background(), "c1", "bob", "bob"))
	chats.AssertExpectations(t)
}

func TestRemoveMemberAnyParticipantRole(t *testing.T) {
	svc, chats, _, _ := newChatService()
	group := &model.Chat{ID: "c1", ChatType: model.ChatTypeGroup}

	// A plain member may remove another member; no admin role needed.
	chats.On("GetByID", mock.Anything, "c1").Return(group, nil).Twice()
	chats.On("GetParticipant", mock.Anything, "c1", "alice").Return(
		&model.ChatParticipant{ChatID: "c1", UserID: "alice", Role: model.RoleMember}, nil).Once()
	chats.On("RemoveParticipant", mock.Anything, "c1", "bob").Return(nil).Once()

	require.NoError(t, svc.RemoveMember(context.Background(), "c1", "alice", "bob"))

	// An outsider may not.
	chats.On("GetParticipant", mock.Anything, "c1", "mallory").Return(nil, repository.ErrNotFound).Once()
	err := svc.RemoveMember(context.Background(), "c1", "mallory", "bob")
	require.ErrorIs(t, err, ErrNotParticipant)
	chats.AssertExpectations(t)
}

func TestSetArchivedPublishesToOwner(t *testing.T) {
	svc, chats, _, pub := newChatService()

	chats.On("SetArchived", mock.Anything, "c1", "alice", true).Return(nil).Once()
	pub.On("Publish", mock.Anything).Once()

	require.NoError(t, svc.SetArchived(context.Background(), "c1", "alice", true))

	ev := pub.Calls[0].Arguments.Get(0).(event.ChatArchived)
	assert.Equal(t, "alice", ev.UserID)
	assert.True(t, ev.IsArchived)
	assert.Equal(t, "archived", ev.Action())
}

func TestSetPinnedPropagatesPinLimit(t *testing.T) {
	svc, chats, _, pub := newChatService()

	chats.On("SetPinned", mock.Anything, "c1", "alice", true).Return(repository.ErrPinLimitExceeded).Once()

	err := svc.SetPinned(context.Background(), "c1", "alice", true)
	require.ErrorIs(t, err, repository.ErrPinLimitExceeded)
	pub.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestSetMutedValidatesDuration(t *testing.T) {
	svc, chats, _, _ := newChatService()

	short := 5 * time.Minute
	err := svc.SetMuted(context.Background(), "c1", "alice", true, &short)
	require.ErrorIs(t, err, ErrInvalidMuteDuration)

	long := 90 * 24 * time.Hour
	err = svc.SetMuted(context.Background(), "c1", "alice", true, &long)
	require.ErrorIs(t, err, ErrInvalidMuteDuration)

	// The upper bound is excluded.
	edge := model.MaxMuteDuration
	err = svc.SetMuted(context.Background(), "c1", "alice", true, &edge)
	require.ErrorIs(t, err, ErrInvalidMuteDuration)

	ok := time.Hour
	chats.On("SetMuted", mock.Anything, "c1", "alice", true, mock.AnythingOfType("*time.Time")).Return(nil).Once()
	require.NoError(t, svc.SetMuted(context.Background(), "c1", "alice", true, &ok))

	// Indefinite mute carries no expiry.
	chats.On("SetMuted", mock.Anything, "c1", "alice", true, (*time.Time)(nil)).Return(nil).Once()
	require.NoError(t, svc.SetMuted(context.Background(), "c1", "alice", true, nil))
	chats.AssertExpectations(t)
}

func TestListChatsAttachesMembers(t *testing.T) {
	svc, chats, _, _ := newChatService()
	entries := []model.ChatListEntry{{Chat: model.Chat{ID: "c1"}, IsPinned: true}}

	chats.On("ListUserChats", mock.Anything, "alice").Return(entries, nil).Once()
	chats.On("Members", mock.Anything, "c1").Return([]model.User{{ID: "alice", Username: "alice"}, {ID: "bob", Username: "bob"}}, nil).Once()

	out, err := svc.ListChats(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Members, 2)
	assert.Equal(t, "bob", out[0].Members[1].Username)
}
