package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
)

// ErrPinLimitExceeded is returned when a pin would push a user past the
// system-wide pinned-chat ceiling.
var ErrPinLimitExceeded = errors.New("pin limit exceeded")

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) Create(ctx context.Context, c *model.Chat) error {
	defer logger.DeferLogDuration("chat.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chats (id, chat_type, name, avatar_url, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		c.ID, c.ChatType, c.Name, c.AvatarURL, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.Create: %w", err)
	}
	c.UpdatedAt = c.CreatedAt
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	c := &model.Chat{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, chat_type, COALESCE(name,''), avatar_url, created_by,
		        COALESCE(last_message_content,''), COALESCE(last_message_sender_id,''),
		        created_at, updated_at
		 FROM chats WHERE id = $1`, id,
	).Scan(&c.ID, &c.ChatType, &c.Name, &c.AvatarURL, &c.CreatedBy,
		&c.LastMessageContent, &c.LastMessageSenderID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetByID: %w", err)
	}
	return c, nil
}

// FindOrCreatePrivate returns the private chat between the two users,
// creating it (with both membership rows) when none exists. The lookup is by
// set equality of the pair, not ordering, and the whole operation is
// serialized on an advisory lock over the sorted pair so two concurrent
// creates cannot produce a duplicate.
func (r *ChatRepository) FindOrCreatePrivate(ctx context.Context, userA, userB string) (*model.Chat, bool, error) {
	defer logger.DeferLogDuration("chat.FindOrCreatePrivate", time.Now())()
	pairKey := userA + "|" + userB
	if strings.Compare(userB, userA) < 0 {
		pairKey = userB + "|" + userA
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pairKey); err != nil {
		return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate lock: %w", err)
	}

	c := &model.Chat{}
	err = tx.QueryRow(ctx,
		`SELECT c.id, c.chat_type, COALESCE(c.name,''), c.avatar_url, c.created_by,
		        COALESCE(c.last_message_content,''), COALESCE(c.last_message_sender_id,''),
		        c.created_at, c.updated_at
		 FROM chats c
		 WHERE c.chat_type = 'private'
		   AND EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = c.id AND user_id = $1)
		   AND EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = c.id AND user_id = $2)`,
		userA, userB,
	).Scan(&c.ID, &c.ChatType, &c.Name, &c.AvatarURL, &c.CreatedBy,
		&c.LastMessageContent, &c.LastMessageSenderID, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate commit: %w", err)
		}
		return c, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate find: %w", err)
	}

	now := time.Now().UTC()
	c = &model.Chat{
		ID:        uuid.New().String(),
		ChatType:  model.ChatTypePrivate,
		CreatedBy: userA,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO chats (id, chat_type, name, avatar_url, created_by, created_at, updated_at)
		 VALUES ($1, $2, NULL, '', $3, $4, $4)`,
		c.ID, c.ChatType, c.CreatedBy, now,
	); err != nil {
		return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate insert chat: %w", err)
	}
	for _, uid := range []string{userA, userB} {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, role, joined_at)
			 VALUES ($1, $2, 'member', $3)`,
			c.ID, uid, now,
		); err != nil {
			return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate insert member: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("chatRepo.FindOrCreatePrivate commit: %w", err)
	}
	return c, true, nil
}

func (r *ChatRepository) AddParticipant(ctx context.Context, p *model.ChatParticipant) error {
	defer logger.DeferLogDuration("chat.AddParticipant", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		p.ChatID, p.UserID, p.Role, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.AddParticipant: %w", err)
	}
	return nil
}

// RemoveParticipant deletes the membership row. The chat itself is kept even
// when its last participant leaves.
func (r *ChatRepository) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	defer logger.DeferLogDuration("chat.RemoveParticipant", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM chat_participants WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.RemoveParticipant: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetParticipant(ctx context.Context, chatID, userID string) (*model.ChatParticipant, error) {
	defer logger.DeferLogDuration("chat.GetParticipant", time.Now())()
	p := &model.ChatParticipant{}
	err := r.pool.QueryRow(ctx,
		`SELECT chat_id, user_id, role, is_archived, is_muted, muted_until, is_pinned, joined_at
		 FROM chat_participants WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	).Scan(&p.ChatID, &p.UserID, &p.Role, &p.IsArchived, &p.IsMuted, &p.MutedUntil, &p.IsPinned, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetParticipant: %w", err)
	}
	return p, nil
}

func (r *ChatRepository) Participants(ctx context.Context, chatID string) ([]model.ChatParticipant, error) {
	defer logger.DeferLogDuration("chat.Participants", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT chat_id, user_id, role, is_archived, is_muted, muted_until, is_pinned, joined_at
		 FROM chat_participants WHERE chat_id = $1
		 ORDER BY joined_at`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.Participants query: %w", err)
	}
	defer rows.Close()

	parts := make([]model.ChatParticipant, 0, 8)
	for rows.Next() {
		var p model.ChatParticipant
		if err := rows.Scan(&p.ChatID, &p.UserID, &p.Role, &p.IsArchived, &p.IsMuted, &p.MutedUntil, &p.IsPinned, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("chatRepo.Participants scan: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.Participants rows: %w", err)
	}
	return parts, nil
}

func (r *ChatRepository) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	defer logger.DeferLogDuration("chat.ParticipantIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ParticipantIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("chatRepo.ParticipantIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.ParticipantIDs rows: %w", err)
	}
	return ids, nil
}

// IsParticipant joins through chats so that the check also fails once the
// chat row is gone.
func (r *ChatRepository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	defer logger.DeferLogDuration("chat.IsParticipant", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
		    SELECT 1 FROM chat_participants cp
		    JOIN chats c ON c.id = cp.chat_id
		    WHERE cp.chat_id = $1 AND cp.user_id = $2)`,
		chatID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("chatRepo.IsParticipant: %w", err)
	}
	return exists, nil
}

func (r *ChatRepository) Members(ctx context.Context, chatID string) ([]model.User, error) {
	defer logger.DeferLogDuration("chat.Members", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.avatar_url, u.is_online, u.last_seen_at, u.created_at
		 FROM users u
		 JOIN chat_participants cp ON cp.user_id = u.id
		 WHERE cp.chat_id = $1
		 ORDER BY cp.joined_at`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.Members query: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, 8)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarURL, &u.IsOnline, &u.LastSeenAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatRepo.Members scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.Members rows: %w", err)
	}
	return users, nil
}

func (r *ChatRepository) SetArchived(ctx context.Context, chatID, userID string, archived bool) error {
	defer logger.DeferLogDuration("chat.SetArchived", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_participants SET is_archived = $1 WHERE chat_id = $2 AND user_id = $3`,
		archived, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.SetArchived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ChatRepository) SetMuted(ctx context.Context, chatID, userID string, muted bool, until *time.Time) error {
	defer logger.DeferLogDuration("chat.SetMuted", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_participants SET is_muted = $1, muted_until = $2 WHERE chat_id = $3 AND user_id = $4`,
		muted, until, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.SetMuted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPinned pins or unpins a chat for one user. Pinning locks the user's
// pinned rows inside a transaction so two concurrent pins race against the
// same up-to-date count: the first writer wins, the second sees the ceiling.
func (r *ChatRepository) SetPinned(ctx context.Context, chatID, userID string, pinned bool) error {
	defer logger.DeferLogDuration("chat.SetPinned", time.Now())()
	if !pinned {
		tag, err := r.pool.Exec(ctx,
			`UPDATE chat_participants SET is_pinned = false WHERE chat_id = $1 AND user_id = $2`,
			chatID, userID,
		)
		if err != nil {
			return fmt.Errorf("chatRepo.SetPinned: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chatRepo.SetPinned begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var alreadyPinned bool
	err = tx.QueryRow(ctx,
		`SELECT is_pinned FROM chat_participants
		 WHERE chat_id = $1 AND user_id = $2 FOR UPDATE`,
		chatID, userID,
	).Scan(&alreadyPinned)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("chatRepo.SetPinned lock row: %w", err)
	}
	if alreadyPinned {
		return tx.Commit(ctx)
	}

	var pinnedCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM (
		    SELECT 1 FROM chat_participants
		    WHERE user_id = $1 AND is_pinned FOR UPDATE
		 ) locked`,
		userID,
	).Scan(&pinnedCount)
	if err != nil {
		return fmt.Errorf("chatRepo.SetPinned count: %w", err)
	}
	if pinnedCount >= model.MaxPinnedChats {
		return ErrPinLimitExceeded
	}

	if _, err := tx.Exec(ctx,
		`UPDATE chat_participants SET is_pinned = true WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	); err != nil {
		return fmt.Errorf("chatRepo.SetPinned update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chatRepo.SetPinned commit: %w", err)
	}
	return nil
}

// CacheLastMessage refreshes the chat's denormalized last-message columns and
// touches updated_at so chat lists sort by recency.
func (r *ChatRepository) CacheLastMessage(ctx context.Context, chatID, content, senderID string, at time.Time) error {
	defer logger.DeferLogDuration("chat.CacheLastMessage", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE chats SET last_message_content = $1, last_message_sender_id = $2, updated_at = $3
		 WHERE id = $4`,
		content, senderID, at, chatID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.CacheLastMessage: %w", err)
	}
	return nil
}

// ListUserChats returns the user's chats joined with their own membership
// row, pinned chats first, then by recency.
func (r *ChatRepository) ListUserChats(ctx context.Context, userID string) ([]model.ChatListEntry, error) {
	defer logger.DeferLogDuration("chat.ListUserChats", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.chat_type, COALESCE(c.name,''), c.avatar_url, c.created_by,
		        COALESCE(c.last_message_content,''), COALESCE(c.last_message_sender_id,''),
		        c.created_at, c.updated_at,
		        cp.role, cp.is_archived, cp.is_muted, cp.muted_until, cp.is_pinned
		 FROM chats c
		 JOIN chat_participants cp ON cp.chat_id = c.id
		 WHERE cp.user_id = $1
		 ORDER BY cp.is_pinned DESC, c.updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListUserChats query: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ChatListEntry, 0, 16)
	for rows.Next() {
		var e model.ChatListEntry
		if err := rows.Scan(&e.Chat.ID, &e.Chat.ChatType, &e.Chat.Name, &e.Chat.AvatarURL, &e.Chat.CreatedBy,
			&e.Chat.LastMessageContent, &e.Chat.LastMessageSenderID, &e.Chat.CreatedAt, &e.Chat.UpdatedAt,
			&e.Role, &e.IsArchived, &e.IsMuted, &e.MutedUntil, &e.IsPinned); err != nil {
			return nil, fmt.Errorf("chatRepo.ListUserChats scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.ListUserChats rows: %w", err)
	}
	return entries, nil
}
