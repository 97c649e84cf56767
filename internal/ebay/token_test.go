package ebay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_IsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Token{}.IsExpired(now))
	assert.False(t, Token{ExpiresAt: now.Add(time.Minute)}.IsExpired(now))
	assert.True(t, Token{ExpiresAt: now}.IsExpired(now))
	assert.True(t, Token{ExpiresAt: now.Add(-time.Second)}.IsExpired(now))
}

func TestMemoryTokenStore_ExpiredTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryTokenStoreWithClock(func() time.Time { return now })

	expired, err := store.IsExpired(ctx)
	require.NoError(t, err)
	assert.True(t, expired, "empty store has no usable token")

	require.NoError(t, store.Set(ctx, Token{AccessToken: "abc", ExpiresAt: now.Add(time.Hour)}))
	tok, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "abc", tok.AccessToken)

	now = now.Add(2 * time.Hour)
	tok, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)

	// Cleared, so moving the clock back does not resurrect it
	now = now.Add(-2 * time.Hour)
	tok, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestMemoryTokenStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(ctx, Token{AccessToken: "abc", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Clear(ctx))

	expired, err := store.IsExpired(ctx)
	require.NoError(t, err)
	assert.True(t, expired)
}
