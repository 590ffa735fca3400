package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryRoster is the in-process roster for dev mode. Same TTL semantics as
// the redis roster, expiry checked lazily on read.
type MemoryRoster struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRoster) MarkOnline(_ context.Context, userID string) error {
	r.mu.Lock()
	r.entries[userID] = r.now().Add(TTL)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRoster) MarkOffline(_ context.Context, userID string) error {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRoster) Refresh(ctx context.Context, userID string) error {
	return r.MarkOnline(ctx, userID)
}

func (r *MemoryRoster) Online(_ context.Context) ([]string, error) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for uid, deadline := range r.entries {
		if deadline.Before(now) {
			delete(r.entries, uid)
			continue
		}
		ids = append(ids, uid)
	}
	return ids, nil
}
