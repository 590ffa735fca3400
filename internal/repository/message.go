package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("message.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages
		   (id, chat_id, sender_id, content, message_type, file_url,
		    reply_to_id, forwarded_from, is_deleted, deleted_for_all, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, false, $9)`,
		m.ID, m.ChatID, m.SenderID, m.Content, m.MessageType, m.FileURL,
		m.ReplyToID, m.ForwardedFrom, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.Create: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("message.GetByID", time.Now())()
	m := &model.Message{Sender: &model.UserPublic{}}
	err := r.pool.QueryRow(ctx,
		`SELECT m.id, m.chat_id, m.sender_id, m.content, m.message_type, COALESCE(m.file_url,''),
		        m.reply_to_id, m.forwarded_from, m.is_deleted, m.deleted_for_all, m.created_at,
		        u.id, u.username, u.avatar_url
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.id = $1`, id,
	).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.MessageType, &m.FileURL,
		&m.ReplyToID, &m.ForwardedFrom, &m.IsDeleted, &m.DeletedForAll, &m.CreatedAt,
		&m.Sender.ID, &m.Sender.Username, &m.Sender.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messageRepo.GetByID: %w", err)
	}
	return m, nil
}

// MarkDeletedForMe sets the soft-delete flag. Repeating the call is a no-op,
// not an error.
func (r *MessageRepository) MarkDeletedForMe(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("message.MarkDeletedForMe", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET is_deleted = true WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.MarkDeletedForMe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MessageRepository) MarkDeletedForAll(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("message.MarkDeletedForAll", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET deleted_for_all = true WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.MarkDeletedForAll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVisible returns messages in chatID visible to viewerID, in ascending
// (created_at, id) order, strictly after the (afterAt, afterID) cursor. Pass
// the zero time and empty id to start from the beginning. The visibility
// filter runs in SQL so hidden rows never count against the limit.
func (r *MessageRepository) ListVisible(ctx context.Context, chatID, viewerID string, afterAt time.Time, afterID string, limit int) ([]model.Message, error) {
	defer logger.DeferLogDuration("message.ListVisible", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.chat_id, m.sender_id, m.content, m.message_type, COALESCE(m.file_url,''),
		        m.reply_to_id, m.forwarded_from, m.is_deleted, m.deleted_for_all, m.created_at,
		        u.id, u.username, u.avatar_url
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.chat_id = $1
		   AND m.deleted_for_all = false
		   AND (m.is_deleted = false OR m.sender_id = $2)
		   AND (m.created_at, m.id) > ($3, $4)
		 ORDER BY m.created_at, m.id
		 LIMIT $5`,
		chatID, viewerID, afterAt, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("messageRepo.ListVisible query: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0, limit)
	for rows.Next() {
		m := model.Message{Sender: &model.UserPublic{}}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.MessageType, &m.FileURL,
			&m.ReplyToID, &m.ForwardedFrom, &m.IsDeleted, &m.DeletedForAll, &m.CreatedAt,
			&m.Sender.ID, &m.Sender.Username, &m.Sender.AvatarURL); err != nil {
			return nil, fmt.Errorf("messageRepo.ListVisible scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messageRepo.ListVisible rows: %w", err)
	}
	return msgs, nil
}
