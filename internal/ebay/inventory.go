package ebay

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// InventoryItem is the body of PUT /sell/inventory/v1/inventory_item/{sku}.
type InventoryItem struct {
	Product      InventoryProduct `json:"product"`
	Condition    string           `json:"condition"`
	Availability Availability     `json:"availability"`
}

type InventoryProduct struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ImageURLs   []string            `json:"imageUrls"`
	Aspects     map[string][]string `json:"aspects,omitempty"`
}

type Availability struct {
	ShipToLocationAvailability ShipToLocationAvailability `json:"shipToLocationAvailability"`
}

type ShipToLocationAvailability struct {
	Quantity int `json:"quantity"`
}

// Offer is the body of POST /sell/inventory/v1/offer.
type Offer struct {
	SKU                 string           `json:"sku"`
	MarketplaceID       string           `json:"marketplaceId"`
	Format              string           `json:"format"`
	AvailableQuantity   int              `json:"availableQuantity"`
	CategoryID          string           `json:"categoryId"`
	MerchantLocationKey string           `json:"merchantLocationKey"`
	ListingDescription  string           `json:"listingDescription,omitempty"`
	PricingSummary      PricingSummary   `json:"pricingSummary"`
	ListingPolicies     *ListingPolicies `json:"listingPolicies,omitempty"`
}

type PricingSummary struct {
	Price Amount `json:"price"`
}

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type ListingPolicies struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId,omitempty"`
	PaymentPolicyID     string `json:"paymentPolicyId,omitempty"`
	ReturnPolicyID      string `json:"returnPolicyId,omitempty"`
}

// BusinessPolicyIDs holds the seller's policy ids. Empty fields mean the
// lookup failed or the seller has no policy of that kind.
type BusinessPolicyIDs struct {
	FulfillmentPolicyID string
	PaymentPolicyID     string
	ReturnPolicyID      string
}

// ListingPolicies returns the offer representation, or nil when no policy
// id was resolved.
func (p BusinessPolicyIDs) ListingPolicies() *ListingPolicies {
	if p.FulfillmentPolicyID == "" && p.PaymentPolicyID == "" && p.ReturnPolicyID == "" {
		return nil
	}
	return &ListingPolicies{
		FulfillmentPolicyID: p.FulfillmentPolicyID,
		PaymentPolicyID:     p.PaymentPolicyID,
		ReturnPolicyID:      p.ReturnPolicyID,
	}
}

type createOfferResponse struct {
	OfferID string `json:"offerId"`
}

type publishOfferResponse struct {
	ListingID string `json:"listingId"`
}

type fulfillmentPoliciesResponse struct {
	FulfillmentPolicies []struct {
		FulfillmentPolicyID string `json:"fulfillmentPolicyId"`
		Name                string `json:"name"`
	} `json:"fulfillmentPolicies"`
}

type paymentPoliciesResponse struct {
	PaymentPolicies []struct {
		PaymentPolicyID string `json:"paymentPolicyId"`
		Name            string `json:"name"`
	} `json:"paymentPolicies"`
}

type returnPoliciesResponse struct {
	ReturnPolicies []struct {
		ReturnPolicyID string `json:"returnPolicyId"`
		Name           string `json:"name"`
	} `json:"returnPolicies"`
}

// CreateOrReplaceInventoryItem stores the item under the given SKU.
func (c *Client) CreateOrReplaceInventoryItem(ctx context.Context, sku string, item InventoryItem) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	res, err := c.req(ctx, token, nil).
		SetPathParam("sku", sku).
		SetBody(item).
		Put("/sell/inventory/v1/inventory_item/{sku}")
	_, err = handleError("create inventory item", res, err)
	if err != nil {
		return err
	}

	log.Info().Str("sku", sku).Msg("inventory item created")
	return nil
}

// CreateOffer creates an unpublished offer and returns its id.
func (c *Client) CreateOffer(ctx context.Context, offer Offer) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	result := &createOfferResponse{}
	res, err := c.req(ctx, token, result).
		SetBody(offer).
		Post("/sell/inventory/v1/offer")
	_, err = handleError("create offer", res, err)
	if err != nil {
		return "", err
	}
	if result.OfferID == "" {
		return "", &ParseError{Err: errMissingOfferID}
	}

	log.Info().Str("sku", offer.SKU).Str("offerId", result.OfferID).Msg("offer created")
	return result.OfferID, nil
}

// PublishOffer publishes an offer and returns the eBay listing id.
func (c *Client) PublishOffer(ctx context.Context, offerID string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	result := &publishOfferResponse{}
	res, err := c.req(ctx, token, result).
		SetPathParam("offerId", offerID).
		Post("/sell/inventory/v1/offer/{offerId}/publish")
	_, err = handleError("publish offer", res, err)
	if err != nil {
		return "", err
	}
	if result.ListingID == "" {
		return "", &ParseError{Err: errMissingListingID}
	}

	log.Info().Str("offerId", offerID).Str("listingId", result.ListingID).Msg("offer published")
	return result.ListingID, nil
}

// GetBusinessPolicies looks up the seller's fulfillment, payment and return
// policies concurrently. Lookups are best-effort: a failure is logged and the
// corresponding id is left empty.
func (c *Client) GetBusinessPolicies(ctx context.Context) BusinessPolicyIDs {
	var ids BusinessPolicyIDs

	token, err := c.accessToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("skipping business policy lookup")
		return ids
	}

	lookup := func(kind string, result any) error {
		res, err := c.req(ctx, token, result).
			SetQueryParam("marketplace_id", MarketplaceUS).
			Get("/sell/account/v1/" + kind)
		_, err = handleError("get "+kind, res, err)
		if err != nil {
			log.Warn().Err(err).Str("policy", kind).Msg("business policy lookup failed")
		}
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		res := &fulfillmentPoliciesResponse{}
		if lookup("fulfillment_policy", res) == nil && len(res.FulfillmentPolicies) > 0 {
			ids.FulfillmentPolicyID = res.FulfillmentPolicies[0].FulfillmentPolicyID
		}
		return nil
	})
	g.Go(func() error {
		res := &paymentPoliciesResponse{}
		if lookup("payment_policy", res) == nil && len(res.PaymentPolicies) > 0 {
			ids.PaymentPolicyID = res.PaymentPolicies[0].PaymentPolicyID
		}
		return nil
	})
	g.Go(func() error {
		res := &returnPoliciesResponse{}
		if lookup("return_policy", res) == nil && len(res.ReturnPolicies) > 0 {
			ids.ReturnPolicyID = res.ReturnPolicies[0].ReturnPolicyID
		}
		return nil
	})
	_ = g.Wait()

	log.Info().
		Str("fulfillmentPolicyId", ids.FulfillmentPolicyID).
		Str("paymentPolicyId", ids.PaymentPolicyID).
		Str("returnPolicyId", ids.ReturnPolicyID).
		Msg("business policies resolved")

	return ids
}

// inventoryLocation is the body of POST /sell/inventory/v1/location/{key}.
type inventoryLocation struct {
	Name          string          `json:"name"`
	Location      locationAddress `json:"location"`
	LocationTypes []string        `json:"locationTypes"`
	Status        string          `json:"merchantLocationStatus"`
}

type locationAddress struct {
	Address address `json:"address"`
}

type address struct {
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CreateInventoryLocation creates the merchant location used by offers. A
// 409 response means the location already exists and is not an error.
func (c *Client) CreateInventoryLocation(ctx context.Context, key string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	res, err := c.req(ctx, token, nil).
		SetPathParam("key", key).
		SetBody(inventoryLocation{
			Name:          "Default Store Location",
			Location:      locationAddress{Address: address{PostalCode: c.cfg.postalCode(), Country: "US"}},
			LocationTypes: []string{"WAREHOUSE"},
			Status:        "ENABLED",
		}).
		Post("/sell/inventory/v1/location/{key}")
	if err == nil && res.StatusCode() == http.StatusConflict {
		log.Info().Str("locationKey", key).Msg("inventory location already exists")
		return nil
	}
	if _, err := handleError("create inventory location", res, err); err != nil {
		return err
	}

	log.Info().Str("locationKey", key).Msg("inventory location created")
	return nil
}
