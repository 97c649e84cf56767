package ebay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingAccessToken = errors.New("token response has no access_token")
	errMissingOfferID     = errors.New("offer response has no offerId")
	errMissingListingID   = errors.New("publish response has no listingId")
)

// ConfigurationError is returned when credentials or settings needed for a
// call are missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}

// FieldError describes a single listing field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned before any network call when a listing draft
// does not meet the minimum constraints.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid listing: " + strings.Join(parts, "; ")
}

// UpstreamError is a non-2xx response from an external API. Body holds the
// raw response so that eBay's own message can be shown to the user.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Operation, e.StatusCode, e.Body)
}

// ParseError is returned when a model response cannot be decoded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AuthExpiredError means there is no usable access token and the user has to
// authorize again.
type AuthExpiredError struct{}

func (e *AuthExpiredError) Error() string {
	return "ebay authorization missing or expired"
}

// UploadError is returned when no image could be uploaded to the media host.
type UploadError struct {
	Attempted int
	Errs      []error
}

func (e *UploadError) Error() string {
	if len(e.Errs) == 0 {
		return fmt.Sprintf("no images uploaded (attempted %d)", e.Attempted)
	}
	return fmt.Sprintf("no images uploaded (attempted %d): %v", e.Attempted, e.Errs[len(e.Errs)-1])
}

func (e *UploadError) Unwrap() []error {
	return e.Errs
}
