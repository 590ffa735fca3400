package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/logger"
)

// Roster tracks which users are currently online, with a liveness TTL so a
// crashed instance's users age out without an explicit disconnect.
type Roster interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) error
	Online(ctx context.Context) ([]string, error)
}

type PresenceService struct {
	users  UserStore
	chats  ChatStore
	roster Roster
	events Publisher
}

func NewPresenceService(users UserStore, chats ChatStore, roster Roster, events Publisher) *PresenceService {
	return &PresenceService{users: users, chats: chats, roster: roster, events: events}
}

// Connected marks the user online and announces it on the global presence
// channel. Called when the user's first socket attaches.
func (s *PresenceService) Connected(ctx context.Context, userID string) error {
	defer logger.DeferLogDuration("presenceService.Connected", time.Now())()

	if err := s.users.SetOnline(ctx, userID, true); err != nil {
		return fmt.Errorf("presenceService.Connected: %w", err)
	}
	if err := s.roster.MarkOnline(ctx, userID); err != nil {
		logger.Errorf("roster online user=%s: %v", userID, err)
	}
	s.events.Publish(event.UserStatus{UserID: userID, IsOnline: true})
	return nil
}

// Disconnected marks the user offline, stamping last_seen_at. Called when the
// user's last socket detaches.
func (s *PresenceService) Disconnected(ctx context.Context, userID string) error {
	defer logger.DeferLogDuration("presenceService.Disconnected", time.Now())()

	if err := s.users.SetOnline(ctx, userID, false); err != nil {
		return fmt.Errorf("presenceService.Disconnected: %w", err)
	}
	if err := s.roster.MarkOffline(ctx, userID); err != nil {
		logger.Errorf("roster offline user=%s: %v", userID, err)
	}
	s.events.Publish(event.UserStatus{UserID: userID, IsOnline: false})
	return nil
}

// Heartbeat refreshes the user's roster entry and last-seen stamp. Driven by
// the socket's pong handler.
func (s *PresenceService) Heartbeat(ctx context.Context, userID string) {
	if err := s.roster.Refresh(ctx, userID); err != nil {
		logger.Errorf("roster refresh user=%s: %v", userID, err)
	}
	if err := s.users.UpdateLastSeen(ctx, userID); err != nil {
		logger.Errorf("last seen user=%s: %v", userID, err)
	}
}

// OnlineUsers returns the current roster.
func (s *PresenceService) OnlineUsers(ctx context.Context) ([]string, error) {
	ids, err := s.roster.Online(ctx)
	if err != nil {
		return nil, fmt.Errorf("presenceService.OnlineUsers: %w", err)
	}
	return ids, nil
}

// Typing relays a typing indicator to the other chat members. It is pure
// signaling: nothing is persisted, a stale indicator simply expires on the
// client when no follow-up arrives.
func (s *PresenceService) Typing(ctx context.Context, chatID, userID string, isTyping bool) error {
	defer logger.DeferLogDuration("presenceService.Typing", time.Now())()

	ok, err := s.chats.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("presenceService.Typing: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("presenceService.Typing user: %w", err)
	}
	s.events.Publish(event.UserTyping{
		UserID:   userID,
		UserName: u.Username,
		ChatID:   chatID,
		IsTyping: isTyping,
	})
	return nil
}
