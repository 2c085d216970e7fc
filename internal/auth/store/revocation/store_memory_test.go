package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorgate/pkg/platform/sentinel"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemory(WithClock(func() time.Time { return now }))

	t.Run("revoked until ttl elapses", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "sig-1", time.Minute))

		revoked, err := store.IsRevoked(ctx, "sig-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		now = now.Add(time.Minute)
		revoked, err = store.IsRevoked(ctx, "sig-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown key", func(t *testing.T) {
		revoked, err := store.IsRevoked(ctx, "never")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is rejected", func(t *testing.T) {
		err := store.Revoke(ctx, "sig-2", 0)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("empty key is ignored", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "", time.Minute))
		assert.Empty(t, store.entries)
	})
}
