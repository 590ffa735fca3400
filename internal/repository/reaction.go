package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
)

// ErrDuplicateReaction is returned when the same (message, user, emoji)
// triple already exists.
var ErrDuplicateReaction = errors.New("duplicate reaction")

type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Add inserts a reaction row, relying on the unique index over
// (message_id, user_id, emoji) to reject duplicates.
func (r *ReactionRepository) Add(ctx context.Context, mr *model.MessageReaction) error {
	defer logger.DeferLogDuration("reaction.Add", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO message_reactions (id, message_id, user_id, emoji, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		mr.ID, mr.MessageID, mr.UserID, mr.Emoji, mr.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateReaction
	}
	if err != nil {
		return fmt.Errorf("reactionRepo.Add: %w", err)
	}
	return nil
}

func (r *ReactionRepository) GetByID(ctx context.Context, id string) (*model.MessageReaction, error) {
	defer logger.DeferLogDuration("reaction.GetByID", time.Now())()
	mr := &model.MessageReaction{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, message_id, user_id, emoji, created_at
		 FROM message_reactions WHERE id = $1`, id,
	).Scan(&mr.ID, &mr.MessageID, &mr.UserID, &mr.Emoji, &mr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.GetByID: %w", err)
	}
	return mr, nil
}

// Get returns the user's reaction with the given emoji on a message.
func (r *ReactionRepository) Get(ctx context.Context, messageID, userID, emoji string) (*model.MessageReaction, error) {
	defer logger.DeferLogDuration("reaction.Get", time.Now())()
	mr := &model.MessageReaction{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, message_id, user_id, emoji, created_at
		 FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	).Scan(&mr.ID, &mr.MessageID, &mr.UserID, &mr.Emoji, &mr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.Get: %w", err)
	}
	return mr, nil
}

func (r *ReactionRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("reaction.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM message_reactions WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("reactionRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateEmoji swaps the emoji on an existing reaction row, keeping its id and
// created_at. Colliding with another reaction by the same user maps to
// ErrDuplicateReaction.
func (r *ReactionRepository) UpdateEmoji(ctx context.Context, id, emoji string) error {
	defer logger.DeferLogDuration("reaction.UpdateEmoji", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE message_reactions SET emoji = $1 WHERE id = $2`, emoji, id,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateReaction
	}
	if err != nil {
		return fmt.Errorf("reactionRepo.UpdateEmoji: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByMessage returns all reactions on a message in insertion order, each
// joined with its reactor's public profile.
func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID string) ([]model.MessageReaction, error) {
	defer logger.DeferLogDuration("reaction.ListByMessage", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT mr.id, mr.message_id, mr.user_id, mr.emoji, mr.created_at,
		        u.id, u.username, u.avatar_url
		 FROM message_reactions mr
		 JOIN users u ON u.id = mr.user_id
		 WHERE mr.message_id = $1
		 ORDER BY mr.created_at, mr.id`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.ListByMessage query: %w", err)
	}
	defer rows.Close()

	reactions := make([]model.MessageReaction, 0, 8)
	for rows.Next() {
		mr := model.MessageReaction{User: &model.UserPublic{}}
		if err := rows.Scan(&mr.ID, &mr.MessageID, &mr.UserID, &mr.Emoji, &mr.CreatedAt,
			&mr.User.ID, &mr.User.Username, &mr.User.AvatarURL); err != nil {
			return nil, fmt.Errorf("reactionRepo.ListByMessage scan: %w", err)
		}
		reactions = append(reactions, mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactionRepo.ListByMessage rows: %w", err)
	}
	return reactions, nil
}
