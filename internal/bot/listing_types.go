package bot

import (
	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

// maxListingPhotos is the most photos a listing can carry.
const maxListingPhotos = 12

// ListingSession is the draft a user is building in chat.
type ListingSession struct {
	Draft  ebay.ListingDraft
	Images []ebay.Image

	// Recovered is set when the vision answer was unusable and Draft holds
	// placeholder values.
	Recovered bool

	// Message showing the draft with the publish buttons; edited in place
	// after every change.
	SummaryMessageID int
}

// addImage appends a photo, keeping positions contiguous. It returns false
// when the listing is full.
func (l *ListingSession) addImage(img ebay.Image) bool {
	if len(l.Images) >= maxListingPhotos {
		return false
	}
	img.Position = len(l.Images)
	l.Images = append(l.Images, img)
	return true
}
