package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/repository"
)

type ReactionService struct {
	reactions ReactionStore
	messages  MessageStore
	chats     ChatStore
	users     UserStore
	events    Publisher
}

func NewReactionService(reactions ReactionStore, messages MessageStore, chats ChatStore, users UserStore, events Publisher) *ReactionService {
	return &ReactionService{reactions: reactions, messages: messages, chats: chats, users: users, events: events}
}

// targetMessage loads the message and checks the actor can see and react to
// it: participant of the chat, message still visible.
func (s *ReactionService) targetMessage(ctx context.Context, messageID, actorID string) (*model.Message, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	ok, err := s.chats.IsParticipant(ctx, m.ChatID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	if !m.VisibleTo(actorID) {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

// Add records an emoji reaction by the actor. A duplicate of the same triple
// maps to ErrDuplicateReaction; a different emoji by the same user is a
// second independent reaction.
func (s *ReactionService) Add(ctx context.Context, messageID, actorID, emoji string) (*model.MessageReaction, error) {
	defer logger.DeferLogDuration("reactionService.Add", time.Now())()

	m, err := s.targetMessage(ctx, messageID, actorID)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("reactionService.Add actor: %w", err)
	}
	pub := actor.ToPublic()
	mr := &model.MessageReaction{
		ID:        uuid.New().String(),
		MessageID: messageID,
		UserID:    actorID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
		User:      &pub,
	}
	if err := s.reactions.Add(ctx, mr); err != nil {
		if errors.Is(err, repository.ErrDuplicateReaction) {
			return nil, repository.ErrDuplicateReaction
		}
		return nil, fmt.Errorf("reactionService.Add: %w", err)
	}

	s.events.Publish(event.ReactionAdded{
		Reaction: event.ReactionPayload{
			ID:        mr.ID,
			MessageID: mr.MessageID,
			UserID:    mr.UserID,
			Emoji:     mr.Emoji,
			User:      pub,
		},
		ChatID: m.ChatID,
	})
	return mr, nil
}

// Remove deletes one of the actor's own reactions. Removing someone else's
// reaction is forbidden regardless of any chat role.
func (s *ReactionService) Remove(ctx context.Context, reactionID, actorID string) error {
	defer logger.DeferLogDuration("reactionService.Remove", time.Now())()

	mr, err := s.reactions.GetByID(ctx, reactionID)
	if err != nil {
		return err
	}
	if mr.UserID != actorID {
		return ErrForbidden
	}
	m, err := s.messages.GetByID(ctx, mr.MessageID)
	if err != nil {
		return fmt.Errorf("reactionService.Remove message: %w", err)
	}
	if err := s.reactions.Delete(ctx, reactionID); err != nil {
		return err
	}

	s.events.Publish(event.ReactionRemoved{
		ReactionID: mr.ID,
		MessageID:  mr.MessageID,
		UserID:     mr.UserID,
		ChatID:     m.ChatID,
	})
	return nil
}

// Update swaps the emoji on one of the actor's reactions in place, keeping
// the reaction id. The broadcast carries the updated reaction.
func (s *ReactionService) Update(ctx context.Context, reactionID, actorID, emoji string) (*model.MessageReaction, error) {
	defer logger.DeferLogDuration("reactionService.Update", time.Now())()

	mr, err := s.reactions.GetByID(ctx, reactionID)
	if err != nil {
		return nil, err
	}
	if mr.UserID != actorID {
		return nil, ErrForbidden
	}
	m, err := s.messages.GetByID(ctx, mr.MessageID)
	if err != nil {
		return nil, fmt.Errorf("reactionService.Update message: %w", err)
	}
	// Fail fast when the actor already holds the target emoji on this
	// message; the unique index still backs the race window.
	if existing, err := s.reactions.Get(ctx, mr.MessageID, actorID, emoji); err == nil && existing.ID != reactionID {
		return nil, repository.ErrDuplicateReaction
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("reactionService.Update lookup: %w", err)
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("reactionService.Update actor: %w", err)
	}
	if err := s.reactions.UpdateEmoji(ctx, reactionID, emoji); err != nil {
		return nil, err
	}
	pub := actor.ToPublic()
	mr.Emoji = emoji
	mr.User = &pub

	s.events.Publish(event.ReactionAdded{
		Reaction: event.ReactionPayload{
			ID:        mr.ID,
			MessageID: mr.MessageID,
			UserID:    mr.UserID,
			Emoji:     mr.Emoji,
			User:      pub,
		},
		ChatID: m.ChatID,
	})
	return mr, nil
}

// Summarize groups a message's reactions per emoji, ordered by the emoji's
// first appearance, with the per-emoji user list in reaction order.
func (s *ReactionService) Summarize(ctx context.Context, messageID, viewerID string) ([]model.ReactionGroup, error) {
	defer logger.DeferLogDuration("reactionService.Summarize", time.Now())()

	if _, err := s.targetMessage(ctx, messageID, viewerID); err != nil {
		return nil, err
	}
	reactions, err := s.reactions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("reactionService.Summarize: %w", err)
	}

	order := make([]string, 0, 4)
	groups := make(map[string]*model.ReactionGroup, 4)
	for _, mr := range reactions {
		g, ok := groups[mr.Emoji]
		if !ok {
			g = &model.ReactionGroup{Emoji: mr.Emoji}
			groups[mr.Emoji] = g
			order = append(order, mr.Emoji)
		}
		g.Count++
		g.Users = append(g.Users, mr.UserID)
		if mr.UserID == viewerID {
			g.ViewerHasReacted = true
		}
	}

	out := make([]model.ReactionGroup, 0, len(order))
	for _, emoji := range order {
		out = append(out, *groups[emoji])
	}
	return out, nil
}
