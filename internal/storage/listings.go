package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PublishedListing is a listing the bot published for a user.
type PublishedListing struct {
	ID         int64
	TelegramID int64
	ListingID  string
	ListingURL string
	SKU        string
	OfferID    string
	Method     string
	Title      string
	Price      string
	CreatedAt  time.Time
}

// RecordListing stores a published listing.
func (s *SQLiteStore) RecordListing(ctx context.Context, l *PublishedListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO published_listings
			(telegram_id, listing_id, listing_url, sku, offer_id, method, title, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.TelegramID, l.ListingID, l.ListingURL, l.SKU, l.OfferID, l.Method, l.Title, l.Price, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record listing: %w", err)
	}

	l.ID, _ = res.LastInsertId()
	return nil
}

// RecentListings returns the user's most recently published listings,
// newest first.
func (s *SQLiteStore) RecentListings(ctx context.Context, telegramID int64, limit int) ([]PublishedListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_id, listing_id, listing_url, sku, offer_id, method, title, price, created_at
		FROM published_listings
		WHERE telegram_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []PublishedListing
	for rows.Next() {
		var l PublishedListing
		var offerID sql.NullString
		if err := rows.Scan(&l.ID, &l.TelegramID, &l.ListingID, &l.ListingURL, &l.SKU, &offerID, &l.Method, &l.Title, &l.Price, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.OfferID = offerID.String
		listings = append(listings, l)
	}

	return listings, rows.Err()
}
