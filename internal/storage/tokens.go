package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

// GetToken returns the stored eBay token of a Telegram user, or nil if the
// user has not authorized.
func (s *SQLiteStore) GetToken(ctx context.Context, telegramID int64) (*ebay.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	err := s.db.QueryRowContext(ctx,
		"SELECT encrypted_token FROM ebay_tokens WHERE telegram_id = ?",
		telegramID,
	).Scan(&encrypted)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	tokenJSON, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	var token ebay.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// SaveToken stores or replaces the eBay token of a Telegram user.
func (s *SQLiteStore) SaveToken(ctx context.Context, telegramID int64, token ebay.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	encrypted, err := Encrypt(tokenJSON, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ebay_tokens (telegram_id, encrypted_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, telegramID, encrypted, token.ExpiresAt.UnixMilli(), s.now())

	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// DeleteToken removes the eBay token of a Telegram user.
func (s *SQLiteStore) DeleteToken(ctx context.Context, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM ebay_tokens WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// UserTokenStore is the ebay.TokenStore of one Telegram user, backed by
// SQLiteStore.
type UserTokenStore struct {
	store      *SQLiteStore
	telegramID int64
	now        func() time.Time
}

var _ ebay.TokenStore = (*UserTokenStore)(nil)

// TokenStore returns the token store of a Telegram user.
func (s *SQLiteStore) TokenStore(telegramID int64) *UserTokenStore {
	return &UserTokenStore{store: s, telegramID: telegramID, now: s.now}
}

func (u *UserTokenStore) Get(ctx context.Context) (*ebay.Token, error) {
	token, err := u.store.GetToken(ctx, u.telegramID)
	if err != nil || token == nil {
		return nil, err
	}
	if token.IsExpired(u.now()) {
		if err := u.store.DeleteToken(ctx, u.telegramID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return token, nil
}

func (u *UserTokenStore) Set(ctx context.Context, token ebay.Token) error {
	return u.store.SaveToken(ctx, u.telegramID, token)
}

func (u *UserTokenStore) Clear(ctx context.Context) error {
	return u.store.DeleteToken(ctx, u.telegramID)
}

func (u *UserTokenStore) IsExpired(ctx context.Context) (bool, error) {
	token, err := u.Get(ctx)
	if err != nil {
		return false, err
	}
	return token == nil, nil
}
