package ebay

import (
	"context"
	"fmt"
)

// ListingService abstracts the eBay operations the bot uses.
// This interface allows for easy mocking in tests.
type ListingService interface {
	// AuthURL returns the consent page URL carrying the given state.
	AuthURL(state string) (string, error)

	// ExchangeCode converts an authorization code to a stored token.
	ExchangeCode(ctx context.Context, code string) (*Token, error)

	// IsAuthorized reports whether a usable token is stored.
	IsAuthorized(ctx context.Context) (bool, error)

	// Logout forgets the stored token.
	Logout(ctx context.Context) error

	// Publish runs the full listing pipeline.
	Publish(ctx context.Context, draft ListingDraft, images []Image) (*PublishResult, error)

	// SetupAccount creates the inventory location and default policies.
	SetupAccount(ctx context.Context) (*SetupResult, error)

	// GetLeafCategories lists common leaf categories.
	GetLeafCategories(ctx context.Context) ([]LeafCategory, error)

	// GetShippingServices lists shipping service codes valid for selling.
	GetShippingServices(ctx context.Context) ([]string, error)
}

// Service implements ListingService for one seller.
type Service struct {
	*Client
	publisher *Publisher
}

// Ensure Service implements ListingService
var _ ListingService = (*Service)(nil)

// NewService wires a client, its publish strategies and the image uploader.
func NewService(cfg Config, tokens TokenStore, uploader ImageUploader) (*Service, error) {
	client := NewClient(cfg, tokens)
	strategies, err := NewStrategies(client, cfg.PublishOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to build publish strategies: %w", err)
	}
	return &Service{
		Client:    client,
		publisher: NewPublisher(client, uploader, strategies),
	}, nil
}

func (s *Service) Publish(ctx context.Context, draft ListingDraft, images []Image) (*PublishResult, error) {
	return s.publisher.Publish(ctx, draft, images)
}

func (s *Service) IsAuthorized(ctx context.Context) (bool, error) {
	expired, err := s.tokens.IsExpired(ctx)
	if err != nil {
		return false, err
	}
	return !expired, nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.tokens.Clear(ctx)
}
