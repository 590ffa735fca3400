package push

import (
	"context"
	"time"

	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
)

type ParticipantSource interface {
	Participants(ctx context.Context, chatID string) ([]model.ChatParticipant, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// OnlineChecker reports socket-level presence. An online user gets the
// message over the socket and needs no push.
type OnlineChecker interface {
	IsOnline(userID string) bool
}

// MessageNotifier pushes new messages to offline recipients, honoring each
// recipient's mute state for the chat.
type MessageNotifier struct {
	notifier *Notifier
	parts    ParticipantSource
	users    UserSource
	online   OnlineChecker
}

func NewMessageNotifier(notifier *Notifier, parts ParticipantSource, users UserSource, online OnlineChecker) *MessageNotifier {
	return &MessageNotifier{notifier: notifier, parts: parts, users: users, online: online}
}

// MessageSent fans the push out asynchronously; delivery never blocks or
// fails the send path.
func (mn *MessageNotifier) MessageSent(m *model.Message) {
	go mn.notify(m)
}

func (mn *MessageNotifier) notify(m *model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	parts, err := mn.parts.Participants(ctx, m.ChatID)
	if err != nil {
		logger.Errorf("push participants chat=%s: %v", m.ChatID, err)
		return
	}

	title := "New message"
	if sender, err := mn.users.GetByID(ctx, m.SenderID); err == nil && sender.Username != "" {
		title = sender.Username
	}
	body := m.Content
	if m.MessageType != model.MessageTypeText || body == "" {
		body = "Attachment"
	}
	if len(body) > 120 {
		body = body[:117] + "..."
	}
	data := map[string]string{"chat_id": m.ChatID, "message_id": m.ID}

	now := time.Now().UTC()
	for _, p := range parts {
		if p.UserID == m.SenderID {
			continue
		}
		if mn.online != nil && mn.online.IsOnline(p.UserID) {
			continue
		}
		if p.MutedNow(now) {
			continue
		}
		mn.notifier.Notify(ctx, p.UserID, title, body, data)
	}
}
