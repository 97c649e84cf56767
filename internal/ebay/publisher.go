package ebay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Strategy names accepted in the publish order.
const (
	StrategyInventory = "inventory"
	StrategyTrading   = "trading"
)

// Image is a photo to be hosted before listing. Position 0 is the primary
// image.
type Image struct {
	Data     []byte
	MimeType string
	Position int
}

// ImageUploader hosts an image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, img Image) (string, error)
}

// PublishRequest is what every strategy receives once the inventory item and
// offer exist.
type PublishRequest struct {
	Draft     ListingDraft
	SKU       string
	OfferID   string
	ImageURLs []string
}

// StrategyResult is the uniform outcome of a publish strategy.
type StrategyResult struct {
	Strategy  string
	ListingID string
	Err       error
}

func (r StrategyResult) OK() bool {
	return r.Err == nil && r.ListingID != ""
}

// PublishStrategy is one way of turning a prepared listing into a live one.
type PublishStrategy interface {
	Name() string
	Publish(ctx context.Context, req PublishRequest) StrategyResult
}

// PublishResult describes a live listing.
type PublishResult struct {
	ListingID  string
	ListingURL string
	Method     string
	SKU        string
	OfferID    string
	ImageURLs  []string
	Policies   BusinessPolicyIDs
	Attempts   []StrategyResult
}

// InventoryStrategy publishes the offer created through the Inventory API.
type InventoryStrategy struct {
	client *Client
}

func (s *InventoryStrategy) Name() string { return StrategyInventory }

func (s *InventoryStrategy) Publish(ctx context.Context, req PublishRequest) StrategyResult {
	id, err := s.client.PublishOffer(ctx, req.OfferID)
	return StrategyResult{Strategy: StrategyInventory, ListingID: id, Err: err}
}

// TradingStrategy lists the item through the Trading API AddFixedPriceItem
// call. A listing id returned here is canonical; the offer is left
// unpublished.
type TradingStrategy struct {
	client *Client
}

func (s *TradingStrategy) Name() string { return StrategyTrading }

func (s *TradingStrategy) Publish(ctx context.Context, req PublishRequest) StrategyResult {
	id, err := s.client.AddFixedPriceItem(ctx, AddItemInput{
		Draft:     req.Draft,
		SKU:       req.SKU,
		ImageURLs: req.ImageURLs,
	})
	return StrategyResult{Strategy: StrategyTrading, ListingID: id, Err: err}
}

// NewStrategies builds the strategies named in order.
func NewStrategies(client *Client, order []string) ([]PublishStrategy, error) {
	if len(order) == 0 {
		order = []string{StrategyInventory, StrategyTrading}
	}
	strategies := make([]PublishStrategy, 0, len(order))
	for _, name := range order {
		switch name {
		case StrategyInventory:
			strategies = append(strategies, &InventoryStrategy{client: client})
		case StrategyTrading:
			strategies = append(strategies, &TradingStrategy{client: client})
		default:
			return nil, fmt.Errorf("unknown publish strategy %q", name)
		}
	}
	return strategies, nil
}

// Publisher runs the listing pipeline: upload images, create the inventory
// item and offer, then try publish strategies in order.
type Publisher struct {
	client     *Client
	uploader   ImageUploader
	strategies []PublishStrategy
	now        func() time.Time
}

func NewPublisher(client *Client, uploader ImageUploader, strategies []PublishStrategy) *Publisher {
	return &Publisher{
		client:     client,
		uploader:   uploader,
		strategies: strategies,
		now:        time.Now,
	}
}

// Publish validates the draft and runs every pipeline step. Policy lookups
// never abort; every other failure is returned as-is without retrying.
func (p *Publisher) Publish(ctx context.Context, draft ListingDraft, images []Image) (*PublishResult, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	price, err := NormalizePrice(draft.SuggestedPrice)
	if err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "suggestedPrice", Message: err.Error()}}}
	}
	if len(p.strategies) == 0 {
		return nil, &ConfigurationError{Missing: []string{"EBAY_PUBLISH_ORDER"}}
	}

	if _, err := p.client.accessToken(ctx); err != nil {
		return nil, err
	}

	imageURLs, err := p.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	locationKey := p.client.cfg.locationKey()
	sku := GenerateSKU(draft.Title, p.now())
	logger := log.With().Str("sku", sku).Logger()

	item := InventoryItem{
		Product: InventoryProduct{
			Title:       TruncateTitle(draft.Title),
			Description: ClampDescription(draft.Description),
			ImageURLs:   imageURLs,
			Aspects:     keywordAspects(draft.Keywords),
		},
		Condition: MapCondition(draft.Condition).Enum,
		Availability: Availability{
			ShipToLocationAvailability: ShipToLocationAvailability{Quantity: 1},
		},
	}
	if err := p.client.CreateOrReplaceInventoryItem(ctx, sku, item); err != nil {
		return nil, err
	}

	policies := p.client.GetBusinessPolicies(ctx)

	offerID, err := p.client.CreateOffer(ctx, Offer{
		SKU:                 sku,
		MarketplaceID:       MarketplaceUS,
		Format:              "FIXED_PRICE",
		AvailableQuantity:   1,
		CategoryID:          CategoryID(draft.Category),
		MerchantLocationKey: locationKey,
		ListingDescription:  ClampDescription(draft.Description),
		PricingSummary:      PricingSummary{Price: Amount{Value: price, Currency: currencyUSD}},
		ListingPolicies:     policies.ListingPolicies(),
	})
	if err != nil {
		return nil, err
	}

	req := PublishRequest{Draft: draft, SKU: sku, OfferID: offerID, ImageURLs: imageURLs}
	var attempts []StrategyResult
	for _, strategy := range p.strategies {
		res := strategy.Publish(ctx, req)
		attempts = append(attempts, res)
		if res.OK() {
			logger.Info().Str("method", res.Strategy).Str("listingId", res.ListingID).Msg("listing published")
			return &PublishResult{
				ListingID:  res.ListingID,
				ListingURL: ListingURL(res.ListingID, p.client.Sandbox()),
				Method:     res.Strategy,
				SKU:        sku,
				OfferID:    offerID,
				ImageURLs:  imageURLs,
				Policies:   policies,
				Attempts:   attempts,
			}, nil
		}
		logger.Warn().Err(res.Err).Str("method", res.Strategy).Msg("publish strategy failed")
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &PublishError{Attempts: attempts}
}

func (p *Publisher) uploadImages(ctx context.Context, images []Image) ([]string, error) {
	if p.uploader == nil {
		return nil, &ConfigurationError{Missing: []string{"MEDIA_PROVIDER"}}
	}

	var urls []string
	var errs []error
	for _, img := range images {
		url, err := p.uploader.UploadImage(ctx, img)
		if err != nil {
			log.Warn().Err(err).Int("position", img.Position).Msg("image upload failed")
			errs = append(errs, err)
			continue
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		return nil, &UploadError{Attempted: len(images), Errs: errs}
	}

	log.Info().Int("uploaded", len(urls)).Int("attempted", len(images)).Msg("images uploaded")
	return urls, nil
}

func keywordAspects(keywords []string) map[string][]string {
	var cleaned []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return map[string][]string{"Keywords": cleaned}
}

// PublishError is returned when every strategy failed. It unwraps to the
// individual strategy errors.
type PublishError struct {
	Attempts []StrategyResult
}

func (e *PublishError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Strategy, a.Err)
	}
	return "all publish strategies failed: " + strings.Join(parts, "; ")
}

func (e *PublishError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Last returns the error of the last strategy tried.
func (e *PublishError) Last() error {
	if len(e.Attempts) == 0 {
		return errors.New("no publish strategy attempted")
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
