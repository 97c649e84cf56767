package ebay

import (
	"context"
	"sync"
	"time"
)

// Token is an eBay user access token with its expiry.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired returns true if the token has an expiry time at or before now.
// A zero ExpiresAt means the expiry is unknown and the token is kept.
func (t Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// TokenStore persists the OAuth token of a single seller account.
//
// Get returns nil when there is no token or when the stored token has
// expired; an expired token is cleared as a side effect.
type TokenStore interface {
	Get(ctx context.Context) (*Token, error)
	Set(ctx context.Context, token Token) error
	Clear(ctx context.Context) error
	// IsExpired reports true when there is no usable token.
	IsExpired(ctx context.Context) (bool, error)
}

// MemoryTokenStore keeps the token in memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token *Token
	now   func() time.Time
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{now: time.Now}
}

// NewMemoryTokenStoreWithClock is used by tests to control expiry.
func NewMemoryTokenStoreWithClock(now func() time.Time) *MemoryTokenStore {
	return &MemoryTokenStore{now: now}
}

func (s *MemoryTokenStore) Get(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	if s.token.IsExpired(s.now()) {
		s.token = nil
		return nil, nil
	}
	t := *s.token
	return &t, nil
}

func (s *MemoryTokenStore) Set(ctx context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &token
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

func (s *MemoryTokenStore) IsExpired(ctx context.Context) (bool, error) {
	t, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return t == nil, nil
}
