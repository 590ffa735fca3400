package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/repository"
)

type ChatService struct {
	chats  ChatStore
	users  UserStore
	events Publisher
}

func NewChatService(chats ChatStore, users UserStore, events Publisher) *ChatService {
	return &ChatService{chats: chats, users: users, events: events}
}

// FindOrCreatePrivateChat returns the private chat between the caller and
// peerID, creating it on first use. The operation is idempotent: both
// argument orders and concurrent calls resolve to the same chat.
func (s *ChatService) FindOrCreatePrivateChat(ctx context.Context, userID, peerID string) (*model.Chat, error) {
	if userID == peerID {
		return nil, ErrSelfChat
	}
	if _, err := s.users.GetByID(ctx, peerID); err != nil {
		return nil, fmt.Errorf("chatService.FindOrCreatePrivateChat peer: %w", err)
	}
	chat, created, err := s.chats.FindOrCreatePrivate(ctx, userID, peerID)
	if err != nil {
		return nil, fmt.Errorf("chatService.FindOrCreatePrivateChat: %w", err)
	}
	if created {
		s.events.Publish(event.ChatCreated{
			ID:        chat.ID,
			Type:      string(chat.ChatType),
			CreatedBy: userID,
		})
	}
	return chat, nil
}

// CreateGroupChat creates a group chat with the caller as admin plus the
// given members. Unknown member ids fail the whole call.
func (s *ChatService) CreateGroupChat(ctx context.Context, creatorID, name string, memberIDs []string) (*model.Chat, error) {
	now := time.Now().UTC()
	chat := &model.Chat{
		ID:        uuid.New().String(),
		ChatType:  model.ChatTypeGroup,
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("chatService.CreateGroupChat: %w", err)
	}
	if err := s.chats.AddParticipant(ctx, &model.ChatParticipant{
		ChatID: chat.ID, UserID: creatorID, Role: model.RoleAdmin, JoinedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("chatService.CreateGroupChat creator: %w", err)
	}
	for _, uid := range memberIDs {
		if uid == creatorID {
			continue
		}
		if _, err := s.users.GetByID(ctx, uid); err != nil {
			return nil, fmt.Errorf("chatService.CreateGroupChat member %s: %w", uid, err)
		}
		if err := s.chats.AddParticipant(ctx, &model.ChatParticipant{
			ChatID: chat.ID, UserID: uid, Role: model.RoleMember, JoinedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("chatService.CreateGroupChat member %s: %w", uid, err)
		}
	}
	s.events.Publish(event.ChatCreated{
		ID:        chat.ID,
		Type:      string(chat.ChatType),
		Name:      chat.Name,
		CreatedBy: creatorID,
	})
	return chat, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*model.Chat, error) {
	ok, err := s.chats.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("chatService.GetChat: %w", err)
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	return s.chats.GetByID(ctx, chatID)
}

// ListChats returns the caller's chats with member previews, pinned first.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.ChatListEntry, error) {
	entries, err := s.chats.ListUserChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chatService.ListChats: %w", err)
	}
	for i := range entries {
		members, err := s.chats.Members(ctx, entries[i].Chat.ID)
		if err != nil {
			return nil, fmt.Errorf("chatService.ListChats members: %w", err)
		}
		pub := make([]model.UserPublic, 0, len(members))
		for _, m := range members {
			pub = append(pub, m.ToPublic())
		}
		entries[i].Members = pub
	}
	return entries, nil
}

// AddMember adds a user to a group chat. Only admins may add members, and
// private chats are always exactly two people.
func (s *ChatService) AddMember(ctx context.Context, chatID, actorID, newMemberID string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chatService.AddMember: %w", err)
	}
	if chat.ChatType != model.ChatTypeGroup {
		return ErrForbidden
	}
	actor, err := s.chats.GetParticipant(ctx, chatID, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipant
		}
		return fmt.Errorf("chatService.AddMember actor: %w", err)
	}
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}
	if _, err := s.users.GetByID(ctx, newMemberID); err != nil {
		return fmt.Errorf("chatService.AddMember user: %w", err)
	}
	return s.chats.AddParticipant(ctx, &model.ChatParticipant{
		ChatID: chatID, UserID: newMemberID, Role: model.RoleMember, JoinedAt: time.Now().UTC(),
	})
}

// RemoveMember removes a user from a group chat. Any participant may remove
// another member regardless of role; everyone may remove themselves (leave).
func (s *ChatService) RemoveMember(ctx context.Context, chatID, actorID, memberID string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chatService.RemoveMember: %w", err)
	}
	if chat.ChatType != model.ChatTypeGroup {
		return ErrForbidden
	}
	if actorID != memberID {
		if _, err := s.chats.GetParticipant(ctx, chatID, actorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotParticipant
			}
			return fmt.Errorf("chatService.RemoveMember actor: %w", err)
		}
	}
	return s.chats.RemoveParticipant(ctx, chatID, memberID)
}

// SetArchived flips the caller's own archive flag and notifies the caller's
// other devices. It is idempotent.
func (s *ChatService) SetArchived(ctx context.Context, chatID, userID string, archived bool) error {
	if err := s.chats.SetArchived(ctx, chatID, userID, archived); err != nil {
		return fmt.Errorf("chatService.SetArchived: %w", err)
	}
	s.events.Publish(event.ChatArchived{ChatID: chatID, UserID: userID, IsArchived: archived})
	return nil
}

// SetPinned flips the caller's own pin flag, bounded by the pinned-chat
// ceiling. Pin-limit errors pass through unwrapped for the handler to map.
func (s *ChatService) SetPinned(ctx context.Context, chatID, userID string, pinned bool) error {
	if err := s.chats.SetPinned(ctx, chatID, userID, pinned); err != nil {
		if errors.Is(err, repository.ErrPinLimitExceeded) || errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("chatService.SetPinned: %w", err)
	}
	s.events.Publish(event.ChatPinned{ChatID: chatID, UserID: userID, IsPinned: pinned})
	return nil
}

// SetMuted mutes or unmutes the chat for the caller. A nil duration is an
// indefinite mute; a bounded one must fall inside [min, max), the upper
// bound excluded. Mute changes are local to the caller and publish no event.
func (s *ChatService) SetMuted(ctx context.Context, chatID, userID string, muted bool, d *time.Duration) error {
	var until *time.Time
	if muted && d != nil {
		if *d < model.MinMuteDuration || *d >= model.MaxMuteDuration {
			return ErrInvalidMuteDuration
		}
		t := time.Now().UTC().Add(*d)
		until = &t
	}
	if err := s.chats.SetMuted(ctx, chatID, userID, muted, until); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("chatService.SetMuted: %w", err)
	}
	return nil
}
