package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRosterExpiry(t *testing.T) {
	r := NewMemoryRoster()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, r.MarkOnline(ctx, "alice"))
	require.NoError(t, r.MarkOnline(ctx, "bob"))

	ids, err := r.Online(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)

	// bob refreshes, alice goes stale.
	now = now.Add(TTL - time.Second)
	require.NoError(t, r.Refresh(ctx, "bob"))
	now = now.Add(2 * time.Second)

	ids, err = r.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)

	require.NoError(t, r.MarkOffline(ctx, "bob"))
	ids, err = r.Online(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
