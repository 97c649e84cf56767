package bot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog"
)

// ListingLogFile is the JSON-lines record of every published listing.
const ListingLogFile = "listing.log"

var (
	listingLogMu sync.Mutex
	listingLog   = zerolog.Nop()
)

// InitListingLog starts appending published listings to dir/listing.log.
// The returned closer closes the file.
func InitListingLog(dir string) (io.Closer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create listing log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ListingLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing log: %w", err)
	}
	setListingLogWriter(f)
	return f, nil
}

func setListingLogWriter(w io.Writer) {
	listingLogMu.Lock()
	defer listingLogMu.Unlock()
	listingLog = zerolog.New(w).With().Timestamp().Logger()
}

// logPublishedListing appends one line describing a published listing.
func logPublishedListing(userID int64, draft ebay.ListingDraft, result *ebay.PublishResult) {
	listingLogMu.Lock()
	defer listingLogMu.Unlock()
	listingLog.Log().
		Int64("userId", userID).
		Str("listingId", result.ListingID).
		Str("listingUrl", result.ListingURL).
		Str("sku", result.SKU).
		Str("offerId", result.OfferID).
		Str("method", result.Method).
		Str("title", draft.Title).
		Str("category", draft.Category).
		Str("condition", draft.Condition).
		Str("price", draft.SuggestedPrice).
		Strs("imageUrls", result.ImageURLs).
		Send()
}
