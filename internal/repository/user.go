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

var ErrNotFound = errors.New("not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, avatar_url, is_online, last_seen_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.AvatarURL, u.IsOnline, u.LastSeenAt, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, avatar_url, is_online, last_seen_at, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.AvatarURL, &u.IsOnline, &u.LastSeenAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

// SetOnline flips the persisted presence flag and stamps last_seen_at when
// going offline.
func (r *UserRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	defer logger.DeferLogDuration("user.SetOnline", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET is_online = $1,
		        last_seen_at = CASE WHEN $1 THEN last_seen_at ELSE now() END
		 WHERE id = $2`,
		online, userID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.SetOnline: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateLastSeen(ctx context.Context, userID string) error {
	defer logger.DeferLogDuration("user.UpdateLastSeen", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_seen_at = now() WHERE id = $1`, userID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateLastSeen: %w", err)
	}
	return nil
}
