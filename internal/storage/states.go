package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OAuthStateTTL is how long a consent link stays valid.
const OAuthStateTTL = 10 * time.Minute

var (
	ErrStateNotFound = errors.New("oauth state not found")
	ErrStateExpired  = errors.New("oauth state expired")
)

// CreateOAuthState issues a one-time state nonce that maps the OAuth
// callback back to the Telegram user who started the login.
func (s *SQLiteStore) CreateOAuthState(ctx context.Context, telegramID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	state := uuid.New().String()

	// Expired states of any user are swept on the way
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM oauth_states WHERE created_at < ?",
		now.Add(-OAuthStateTTL).UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("failed to prune oauth states: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO oauth_states (state, telegram_id, created_at) VALUES (?, ?, ?)",
		state, telegramID, now.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create oauth state: %w", err)
	}
	return state, nil
}

// ConsumeOAuthState deletes the state and returns the Telegram user it was
// issued to. A state can only be consumed once.
func (s *SQLiteStore) ConsumeOAuthState(ctx context.Context, state string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var telegramID, createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT telegram_id, created_at FROM oauth_states WHERE state = ?",
		state,
	).Scan(&telegramID, &createdAt)
	if err == sql.ErrNoRows {
		return 0, ErrStateNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query oauth state: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM oauth_states WHERE state = ?", state); err != nil {
		return 0, fmt.Errorf("failed to delete oauth state: %w", err)
	}

	if s.now().Sub(time.UnixMilli(createdAt)) > OAuthStateTTL {
		return 0, ErrStateExpired
	}
	return telegramID, nil
}
