package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ErrBadCursor is returned when a pagination cursor cannot be decoded.
var ErrBadCursor = errors.New("malformed cursor")

// OfflinePush is the optional hook that pushes a new message to offline
// recipients. Implementations must not block.
type OfflinePush interface {
	MessageSent(m *model.Message)
}

type MessageService struct {
	messages MessageStore
	chats    ChatStore
	events   Publisher
	offline  OfflinePush
}

func NewMessageService(messages MessageStore, chats ChatStore, events Publisher) *MessageService {
	return &MessageService{messages: messages, chats: chats, events: events}
}

// SetOfflinePush attaches the push hook. Set once during wiring, before any
// traffic.
func (s *MessageService) SetOfflinePush(p OfflinePush) {
	s.offline = p
}

// SendInput is a message.send command after transport decoding.
type SendInput struct {
	ChatID      string
	SenderID    string
	Content     string
	MessageType model.MessageType
	FileURL     string
	ReplyToID   *string
}

// Send validates, persists and broadcasts a new message. The event is
// published only after the row committed, and never back to the sender.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*model.Message, error) {
	defer logger.DeferLogDuration("messageService.Send", time.Now())()

	if in.MessageType == "" {
		in.MessageType = model.MessageTypeText
	}
	if !model.ValidMessageType(in.MessageType) {
		return nil, ErrInvalidMessageType
	}
	if strings.TrimSpace(in.Content) == "" && in.FileURL == "" {
		return nil, ErrEmptyMessage
	}
	ok, err := s.chats.IsParticipant(ctx, in.ChatID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("messageService.Send: %w", err)
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	// A reply target must exist, belong to the same chat and still be
	// visible to the sender. Deletion after the reply was sent does not
	// invalidate it; the key stays as a weak reference.
	if in.ReplyToID != nil {
		target, err := s.messages.GetByID(ctx, *in.ReplyToID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReplyTarget
		}
		if err != nil {
			return nil, fmt.Errorf("messageService.Send reply: %w", err)
		}
		if target.ChatID != in.ChatID || !target.VisibleTo(in.SenderID) {
			return nil, ErrInvalidReplyTarget
		}
	}

	m := &model.Message{
		ID:          uuid.New().String(),
		ChatID:      in.ChatID,
		SenderID:    in.SenderID,
		Content:     in.Content,
		MessageType: in.MessageType,
		FileURL:     in.FileURL,
		ReplyToID:   in.ReplyToID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("messageService.Send: %w", err)
	}
	if err := s.chats.CacheLastMessage(ctx, m.ChatID, m.Content, m.SenderID, m.CreatedAt); err != nil {
		logger.Errorf("cache last message chat=%s: %v", m.ChatID, err)
	}

	s.events.Publish(event.MessageSent{
		ID:          m.ID,
		Content:     m.Content,
		SenderID:    m.SenderID,
		ChatID:      m.ChatID,
		MessageType: string(m.MessageType),
		ReplyToID:   m.ReplyToID,
		FileURL:     m.FileURL,
	})
	if s.offline != nil {
		s.offline.MessageSent(m)
	}
	return m, nil
}

// Forward copies a message into a target chat as a fresh message sent by the
// forwarder. forwarded_from records the source message id; the content is
// copied, replies are not carried over.
func (s *MessageService) Forward(ctx context.Context, messageID, targetChatID, forwarderID string) (*model.Message, error) {
	defer logger.DeferLogDuration("messageService.Forward", time.Now())()

	src, err := s.messages.GetByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messageService.Forward: %w", err)
	}
	if !src.VisibleTo(forwarderID) {
		return nil, ErrCannotForwardDeleted
	}
	// The forwarder must be in both the source and the target chat.
	inSrc, err := s.chats.IsParticipant(ctx, src.ChatID, forwarderID)
	if err != nil {
		return nil, fmt.Errorf("messageService.Forward source: %w", err)
	}
	inDst, err := s.chats.IsParticipant(ctx, targetChatID, forwarderID)
	if err != nil {
		return nil, fmt.Errorf("messageService.Forward target: %w", err)
	}
	if !inSrc || !inDst {
		return nil, ErrNotParticipant
	}

	fwd := src.ID
	m := &model.Message{
		ID:            uuid.New().String(),
		ChatID:        targetChatID,
		SenderID:      forwarderID,
		Content:       src.Content,
		MessageType:   src.MessageType,
		FileURL:       src.FileURL,
		ForwardedFrom: &fwd,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("messageService.Forward create: %w", err)
	}
	if err := s.chats.CacheLastMessage(ctx, m.ChatID, m.Content, m.SenderID, m.CreatedAt); err != nil {
		logger.Errorf("cache last message chat=%s: %v", m.ChatID, err)
	}

	s.events.Publish(event.MessageSent{
		ID:            m.ID,
		Content:       m.Content,
		SenderID:      m.SenderID,
		ChatID:        m.ChatID,
		MessageType:   string(m.MessageType),
		ForwardedFrom: m.ForwardedFrom,
		FileURL:       m.FileURL,
	})
	if s.offline != nil {
		s.offline.MessageSent(m)
	}
	return m, nil
}

// ForwardBatch forwards each message in order. Messages that no longer
// exist, are no longer visible, or sit in a chat the forwarder does not
// belong to are skipped silently; the result reports what was actually
// forwarded. Only the target chat is checked up front.
func (s *MessageService) ForwardBatch(ctx context.Context, messageIDs []string, targetChatID, forwarderID string) ([]model.Message, error) {
	ok, err := s.chats.IsParticipant(ctx, targetChatID, forwarderID)
	if err != nil {
		return nil, fmt.Errorf("messageService.ForwardBatch target: %w", err)
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	forwarded := make([]model.Message, 0, len(messageIDs))
	for _, id := range messageIDs {
		m, err := s.Forward(ctx, id, targetChatID, forwarderID)
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrCannotForwardDeleted) || errors.Is(err, ErrNotParticipant) {
			continue
		}
		if err != nil {
			return forwarded, err
		}
		forwarded = append(forwarded, *m)
	}
	return forwarded, nil
}

// Delete applies a deletion scope. for_me is available to any participant
// and hides the message from the actor alone; for_everyone is sender-only and
// hides the message from the whole chat. Both are idempotent.
func (s *MessageService) Delete(ctx context.Context, messageID, actorID string, scope model.DeleteScope) error {
	defer logger.DeferLogDuration("messageService.Delete", time.Now())()

	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("messageService.Delete: %w", err)
	}
	ok, err := s.chats.IsParticipant(ctx, m.ChatID, actorID)
	if err != nil {
		return fmt.Errorf("messageService.Delete: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}

	switch scope {
	case model.DeleteForMe:
		// The shared is_deleted flag only encodes the sender hiding their
		// own message. For any other participant the hide lives in the
		// event delivered on their user channel; the row stays untouched
		// so everyone else keeps seeing the message.
		if m.SenderID == actorID {
			if err := s.messages.MarkDeletedForMe(ctx, messageID); err != nil {
				return fmt.Errorf("messageService.Delete for_me: %w", err)
			}
		}
	case model.DeleteForEveryone:
		if m.SenderID != actorID {
			return ErrForbidden
		}
		if err := s.messages.MarkDeletedForAll(ctx, messageID); err != nil {
			return fmt.Errorf("messageService.Delete for_everyone: %w", err)
		}
	default:
		return fmt.Errorf("messageService.Delete: unknown scope %q", scope)
	}

	s.events.Publish(event.MessageDeleted{
		MessageID:  messageID,
		ChatID:     m.ChatID,
		DeleteType: string(scope),
		ActorID:    actorID,
	})
	return nil
}

// Page is one page of visible messages plus the cursor for the next one.
// NextCursor is empty when the page was not full.
type Page struct {
	Messages   []model.Message `json:"messages"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ListVisible returns messages of a chat visible to the viewer in ascending
// (created_at, id) order, resolving reply references to placeholder views.
func (s *MessageService) ListVisible(ctx context.Context, chatID, viewerID, cursor string, limit int) (*Page, error) {
	defer logger.DeferLogDuration("messageService.ListVisible", time.Now())()

	ok, err := s.chats.IsParticipant(ctx, chatID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("messageService.ListVisible: %w", err)
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	afterAt, afterID, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListVisible(ctx, chatID, viewerID, afterAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("messageService.ListVisible: %w", err)
	}
	for i := range msgs {
		if msgs[i].ReplyToID == nil {
			continue
		}
		target, err := s.messages.GetByID(ctx, *msgs[i].ReplyToID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("messageService.ListVisible reply: %w", err)
		}
		msgs[i].ReplyTo = model.RefFor(*msgs[i].ReplyToID, target, viewerID)
	}

	page := &Page{Messages: msgs}
	if len(msgs) == limit {
		last := msgs[len(msgs)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// The cursor is an opaque base64 of "unixnano:id". It survives deletions in
// the page gap because the keyset comparison never counts rows.
func encodeCursor(at time.Time, id string) string {
	raw := strconv.FormatInt(at.UnixNano(), 10) + ":" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Time{}, "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", ErrBadCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return time.Time{}, "", ErrBadCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, "", ErrBadCursor
	}
	return time.Unix(0, n).UTC(), id, nil
}
