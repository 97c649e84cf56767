package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	_ "modernc.org/sqlite"
)

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// SQLiteStore persists eBay tokens (encrypted), OAuth state nonces, the
// vision cache, published listings and the user whitelist.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
	now           func() time.Time
}

// NewSQLiteStore creates a new SQLite-based store.
// The dbPath is the path to the SQLite database file.
// The encryptionKey is used to encrypt/decrypt token data and must be 32 bytes.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// WAL mode and busy timeout for concurrent readers
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
		now:           time.Now,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to restrict database permissions: %w", err)
	}

	return store, nil
}

var schema = []struct {
	name  string
	query string
}{
	{"ebay_tokens", `
	CREATE TABLE IF NOT EXISTS ebay_tokens (
		telegram_id INTEGER PRIMARY KEY,
		encrypted_token TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);`},
	{"oauth_states", `
	CREATE TABLE IF NOT EXISTS oauth_states (
		state TEXT PRIMARY KEY,
		telegram_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`},
	{"vision_cache", `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		draft_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`},
	{"published_listings", `
	CREATE TABLE IF NOT EXISTS published_listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL,
		listing_id TEXT NOT NULL,
		listing_url TEXT NOT NULL,
		sku TEXT NOT NULL,
		offer_id TEXT,
		method TEXT NOT NULL,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`},
	{"published_listings index", `
	CREATE INDEX IF NOT EXISTS idx_published_listings_user
		ON published_listings (telegram_id, created_at);`},
	{"allowed_users", `
	CREATE TABLE IF NOT EXISTS allowed_users (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);`},
}

func (s *SQLiteStore) init() error {
	for _, t := range schema {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionDraft retrieves a cached draft by image hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVisionDraft(ctx context.Context, imageHash string) (*ebay.ListingDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var draftJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT draft_json FROM vision_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&draftJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	var draft ebay.ListingDraft
	if err := json.Unmarshal([]byte(draftJSON), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached draft: %w", err)
	}
	return &draft, nil
}

// SetVisionDraft stores a drafted listing in the cache.
func (s *SQLiteStore) SetVisionDraft(ctx context.Context, imageHash string, draft ebay.ListingDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vision_cache (image_hash, draft_json)
		VALUES (?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			draft_json = excluded.draft_json,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, string(draftJSON))

	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		var addedBy sql.NullInt64
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &addedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		user.AddedBy = addedBy.Int64
		users = append(users, user)
	}

	return users, rows.Err()
}
