package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), DeriveKey("test-passphrase"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("secret")
	require.Len(t, key, 32)

	encrypted, err := Encrypt([]byte(`{"access_token":"abc"}`), key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "abc")

	plain, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"abc"}`, string(plain))

	_, err = Decrypt(encrypted, DeriveKey("other"))
	assert.Error(t, err)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	assert.Equal(t, DeriveKey("a"), DeriveKey("a"))
	assert.NotEqual(t, DeriveKey("a"), DeriveKey("b"))
}

func TestUserTokenStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	alice := store.TokenStore(1)
	bob := store.TokenStore(2)

	expired, err := alice.IsExpired(ctx)
	require.NoError(t, err)
	assert.True(t, expired)

	require.NoError(t, alice.Set(ctx, ebay.Token{AccessToken: "alice-token", ExpiresAt: now.Add(2 * time.Hour)}))

	tok, err := alice.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "alice-token", tok.AccessToken)
	assert.True(t, now.Add(2*time.Hour).Equal(tok.ExpiresAt))

	tok, err = bob.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)

	require.NoError(t, alice.Clear(ctx))
	tok, err = alice.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestUserTokenStore_ExpiredTokenIsDeleted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	tokens := store.TokenStore(1)
	require.NoError(t, tokens.Set(ctx, ebay.Token{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}))

	now = now.Add(time.Hour)
	tokens.now = store.now
	tok, err := tokens.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)

	raw, err := store.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, raw, "expired token should be removed from the database")
}

func TestTokenIsEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveToken(ctx, 1, ebay.Token{AccessToken: "v^1.1#plain-token"}))

	var stored string
	require.NoError(t, store.db.QueryRow("SELECT encrypted_token FROM ebay_tokens WHERE telegram_id = 1").Scan(&stored))
	assert.NotContains(t, stored, "plain-token")
}

func TestOAuthState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	state, err := store.CreateOAuthState(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	id, err := store.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = store.ConsumeOAuthState(ctx, state)
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = store.ConsumeOAuthState(ctx, "made-up")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestOAuthState_Expired(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	state, err := store.CreateOAuthState(ctx, 42)
	require.NoError(t, err)

	now = now.Add(OAuthStateTTL + time.Second)
	_, err = store.ConsumeOAuthState(ctx, state)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestVisionDraftCache(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	draft, err := store.GetVisionDraft(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, draft)

	want := ebay.ListingDraft{
		Title:          "Vintage Camera",
		Description:    "Works great",
		Category:       "Electronics",
		SuggestedPrice: "$45.00",
		Condition:      "Used - Good",
		Keywords:       []string{"camera"},
	}
	require.NoError(t, store.SetVisionDraft(ctx, "abc", want))
	require.NoError(t, store.SetVisionDraft(ctx, "abc", want))

	draft, err = store.GetVisionDraft(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, want, *draft)
}

func TestPublishedListings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, title := range []string{"First", "Second", "Third"} {
		require.NoError(t, store.RecordListing(ctx, &PublishedListing{
			TelegramID: 1,
			ListingID:  title + "-id",
			ListingURL: "https://sandbox.ebay.com/itm/" + title,
			SKU:        "SKU" + title,
			Method:     ebay.StrategyInventory,
			Title:      title,
			Price:      "10.00",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.RecordListing(ctx, &PublishedListing{
		TelegramID: 2, ListingID: "other", ListingURL: "u", SKU: "s", Method: ebay.StrategyTrading, Title: "Other", Price: "1.00",
	}))

	listings, err := store.RecentListings(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Third", listings[0].Title)
	assert.Equal(t, "Second", listings[1].Title)
	assert.Empty(t, listings[0].OfferID)
}

func TestAllowedUsers(t *testing.T) {
	store := newTestStore(t)

	allowed, err := store.IsUserAllowed(5)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, store.AddAllowedUser(5, 1))
	require.NoError(t, store.AddAllowedUser(6, 1))

	allowed, err = store.IsUserAllowed(5)
	require.NoError(t, err)
	assert.True(t, allowed)

	users, err := store.GetAllowedUsers()
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, store.RemoveAllowedUser(5))
	allowed, err = store.IsUserAllowed(5)
	require.NoError(t, err)
	assert.False(t, allowed)
}
