package ebay

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const tradingNamespace = "urn:ebay:apis:eBLBaseComponents"

// Trading API acknowledgement values.
const (
	AckSuccess = "Success"
	AckWarning = "Warning"
	AckFailure = "Failure"
)

// TradingError is one entry of the Errors list in a Trading API response.
type TradingError struct {
	ShortMessage string `xml:"ShortMessage"`
	LongMessage  string `xml:"LongMessage"`
	ErrorCode    string `xml:"ErrorCode"`
	SeverityCode string `xml:"SeverityCode"`
}

// tradingResponse holds the fields every Trading API response carries.
type tradingResponse struct {
	Ack    string         `xml:"Ack"`
	Errors []TradingError `xml:"Errors"`
}

func (r tradingResponse) succeeded() bool {
	return r.Ack == AckSuccess || r.Ack == AckWarning
}

// errorMessage joins the long messages of all errors with severity Error.
func (r tradingResponse) errorMessage() string {
	var msgs []string
	for _, e := range r.Errors {
		if e.SeverityCode == "Warning" {
			continue
		}
		msg := e.LongMessage
		if msg == "" {
			msg = e.ShortMessage
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return "Unknown error"
	}
	return strings.Join(msgs, "; ")
}

type tradingItem struct {
	Title                  string                 `xml:"Title"`
	Description            string                 `xml:"Description"`
	PrimaryCategory        primaryCategory        `xml:"PrimaryCategory"`
	StartPrice             string                 `xml:"StartPrice"`
	CategoryMappingAllowed bool                   `xml:"CategoryMappingAllowed"`
	ConditionID            int                    `xml:"ConditionID"`
	Country                string                 `xml:"Country"`
	Currency               string                 `xml:"Currency"`
	DispatchTimeMax        int                    `xml:"DispatchTimeMax"`
	ListingDuration        string                 `xml:"ListingDuration"`
	ListingType            string                 `xml:"ListingType"`
	PictureDetails         pictureDetails         `xml:"PictureDetails"`
	PostalCode             string                 `xml:"PostalCode"`
	Quantity               int                    `xml:"Quantity"`
	SKU                    string                 `xml:"SKU,omitempty"`
	ReturnPolicy           tradingReturnPolicy    `xml:"ReturnPolicy"`
	ShippingDetails        tradingShippingDetails `xml:"ShippingDetails"`
	Site                   string                 `xml:"Site"`
}

type primaryCategory struct {
	CategoryID string `xml:"CategoryID"`
}

type pictureDetails struct {
	PictureURL []string `xml:"PictureURL"`
}

type tradingReturnPolicy struct {
	ReturnsAcceptedOption    string `xml:"ReturnsAcceptedOption"`
	RefundOption             string `xml:"RefundOption"`
	ReturnsWithinOption      string `xml:"ReturnsWithinOption"`
	ShippingCostPaidByOption string `xml:"ShippingCostPaidByOption"`
}

type tradingShippingDetails struct {
	ShippingType           string                  `xml:"ShippingType"`
	ShippingServiceOptions []shippingServiceOption `xml:"ShippingServiceOptions"`
}

type shippingServiceOption struct {
	ShippingServicePriority int    `xml:"ShippingServicePriority"`
	ShippingService         string `xml:"ShippingService"`
	ShippingServiceCost     string `xml:"ShippingServiceCost"`
}

type addFixedPriceItemRequest struct {
	XMLName       xml.Name    `xml:"urn:ebay:apis:eBLBaseComponents AddFixedPriceItemRequest"`
	ErrorLanguage string      `xml:"ErrorLanguage"`
	WarningLevel  string      `xml:"WarningLevel"`
	Item          tradingItem `xml:"Item"`
	Version       string      `xml:"Version"`
}

type addFixedPriceItemResponse struct {
	XMLName xml.Name `xml:"AddFixedPriceItemResponse"`
	tradingResponse
	ItemID string `xml:"ItemID"`
}

type getCategoriesRequest struct {
	XMLName        xml.Name `xml:"urn:ebay:apis:eBLBaseComponents GetCategoriesRequest"`
	CategorySiteID string   `xml:"CategorySiteID"`
	DetailLevel    string   `xml:"DetailLevel"`
	LevelLimit     int      `xml:"LevelLimit"`
	ViewAllNodes   bool     `xml:"ViewAllNodes"`
	Version        string   `xml:"Version"`
}

type getCategoriesResponse struct {
	XMLName xml.Name `xml:"GetCategoriesResponse"`
	tradingResponse
	Categories []tradingCategory `xml:"CategoryArray>Category"`
}

type tradingCategory struct {
	CategoryID       string `xml:"CategoryID"`
	CategoryName     string `xml:"CategoryName"`
	CategoryLevel    int    `xml:"CategoryLevel"`
	CategoryParentID string `xml:"CategoryParentID"`
	LeafCategory     bool   `xml:"LeafCategory"`
}

type geteBayDetailsRequest struct {
	XMLName    xml.Name `xml:"urn:ebay:apis:eBLBaseComponents GeteBayDetailsRequest"`
	DetailName string   `xml:"DetailName"`
	Version    string   `xml:"Version"`
}

type geteBayDetailsResponse struct {
	XMLName xml.Name `xml:"GeteBayDetailsResponse"`
	tradingResponse
	ShippingServiceDetails []shippingServiceDetail `xml:"ShippingServiceDetails"`
}

type shippingServiceDetail struct {
	ShippingService      string `xml:"ShippingService"`
	Description          string `xml:"Description"`
	InternationalService bool   `xml:"InternationalService"`
	ValidForSellingFlow  bool   `xml:"ValidForSellingFlow"`
}

// LeafCategory is a category that listings can be placed in.
type LeafCategory struct {
	ID   string
	Name string
}

// AddItemInput describes a fixed price listing for the Trading API.
type AddItemInput struct {
	Draft     ListingDraft
	SKU       string
	ImageURLs []string
}

// AddFixedPriceItem lists an item through the Trading API and returns the
// new item id. The call fails unless Ack is Success or Warning and an ItemID
// is present.
func (c *Client) AddFixedPriceItem(ctx context.Context, in AddItemInput) (string, error) {
	price, err := NormalizePrice(in.Draft.SuggestedPrice)
	if err != nil {
		return "", &ValidationError{Fields: []FieldError{{Field: "suggestedPrice", Message: err.Error()}}}
	}

	req := addFixedPriceItemRequest{
		ErrorLanguage: "en_US",
		WarningLevel:  "High",
		Version:       tradingCompatLevel,
		Item: tradingItem{
			Title:                  TruncateTitle(in.Draft.Title),
			Description:            ClampDescription(in.Draft.Description),
			PrimaryCategory:        primaryCategory{CategoryID: CategoryID(in.Draft.Category)},
			StartPrice:             price,
			CategoryMappingAllowed: true,
			ConditionID:            MapCondition(in.Draft.Condition).ID,
			Country:                "US",
			Currency:               currencyUSD,
			DispatchTimeMax:        1,
			ListingDuration:        "GTC",
			ListingType:            "FixedPriceItem",
			PictureDetails:         pictureDetails{PictureURL: in.ImageURLs},
			PostalCode:             c.cfg.postalCode(),
			Quantity:               1,
			SKU:                    in.SKU,
			ReturnPolicy: tradingReturnPolicy{
				ReturnsAcceptedOption:    "ReturnsAccepted",
				RefundOption:             "MoneyBack",
				ReturnsWithinOption:      "Days_30",
				ShippingCostPaidByOption: "Buyer",
			},
			ShippingDetails: tradingShippingDetails{
				ShippingType: "Flat",
				ShippingServiceOptions: []shippingServiceOption{
					{ShippingServicePriority: 1, ShippingService: "USPSFirstClass", ShippingServiceCost: "4.99"},
					{ShippingServicePriority: 2, ShippingService: "USPSPriority", ShippingServiceCost: "7.99"},
				},
			},
			Site: "US",
		},
	}

	resp := &addFixedPriceItemResponse{}
	if err := c.tradingCall(ctx, "AddFixedPriceItem", req, resp); err != nil {
		return "", err
	}
	if !resp.succeeded() || resp.ItemID == "" {
		return "", &UpstreamError{Operation: "AddFixedPriceItem", StatusCode: 200, Body: resp.errorMessage()}
	}

	log.Info().Str("itemId", resp.ItemID).Str("ack", resp.Ack).Msg("trading api listing created")
	return resp.ItemID, nil
}

// commonCategoryWords selects familiar leaf categories out of the full tree.
var commonCategoryWords = []string{"collectibles", "antiques", "art", "books", "toys", "sports", "electronics", "clothing"}

// GetLeafCategories returns leaf categories of the US site, narrowed to
// common top-level areas. When none match, the first ten leaves are returned.
func (c *Client) GetLeafCategories(ctx context.Context) ([]LeafCategory, error) {
	req := getCategoriesRequest{
		CategorySiteID: tradingSiteID,
		DetailLevel:    "ReturnAll",
		LevelLimit:     3,
		ViewAllNodes:   true,
		Version:        tradingCompatLevel,
	}

	resp := &getCategoriesResponse{}
	if err := c.tradingCall(ctx, "GetCategories", req, resp); err != nil {
		return nil, err
	}
	if !resp.succeeded() {
		return nil, &UpstreamError{Operation: "GetCategories", StatusCode: 200, Body: resp.errorMessage()}
	}

	var leaves, common []LeafCategory
	for _, cat := range resp.Categories {
		if !cat.LeafCategory {
			continue
		}
		leaf := LeafCategory{ID: cat.CategoryID, Name: cat.CategoryName}
		leaves = append(leaves, leaf)
		name := strings.ToLower(cat.CategoryName)
		for _, w := range commonCategoryWords {
			if strings.Contains(name, w) {
				common = append(common, leaf)
				break
			}
		}
	}

	log.Info().Int("leafCount", len(leaves)).Int("commonCount", len(common)).Msg("fetched ebay categories")

	if len(common) > 0 {
		return common, nil
	}
	if len(leaves) > 10 {
		leaves = leaves[:10]
	}
	return leaves, nil
}

// preferredShippingWords picks the domestic services most sellers use.
var preferredShippingWords = []string{"USPS", "Standard", "Ground", "Priority"}

// GetShippingServices returns up to five shipping service codes valid for
// listing, preferring USPS, standard, ground and priority services.
func (c *Client) GetShippingServices(ctx context.Context) ([]string, error) {
	req := geteBayDetailsRequest{
		DetailName: "ShippingServiceDetails",
		Version:    tradingCompatLevel,
	}

	resp := &geteBayDetailsResponse{}
	if err := c.tradingCall(ctx, "GeteBayDetails", req, resp); err != nil {
		return nil, err
	}
	if !resp.succeeded() {
		return nil, &UpstreamError{Operation: "GeteBayDetails", StatusCode: 200, Body: resp.errorMessage()}
	}

	var all, preferred []string
	for _, svc := range resp.ShippingServiceDetails {
		if !svc.ValidForSellingFlow || svc.ShippingService == "" {
			continue
		}
		all = append(all, svc.ShippingService)
		for _, w := range preferredShippingWords {
			if strings.Contains(svc.ShippingService, w) {
				preferred = append(preferred, svc.ShippingService)
				break
			}
		}
	}

	services := preferred
	if len(services) == 0 {
		services = all
	}
	if len(services) > 5 {
		services = services[:5]
	}
	return services, nil
}

// tradingCall posts an XML request to ws/api.dll and decodes the response.
// HTTP level failures become UpstreamError with the raw body; the caller
// inspects Ack for call level failures.
func (c *Client) tradingCall(ctx context.Context, callName string, request, response any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := xml.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", callName, err)
	}

	res, err := c.httpClient.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"Content-Type":                   "text/xml",
			"Accept":                         "text/xml",
			"X-EBAY-API-CALL-NAME":           callName,
			"X-EBAY-API-COMPATIBILITY-LEVEL": tradingCompatLevel,
			"X-EBAY-API-SITEID":              tradingSiteID,
			"X-EBAY-API-APP-NAME":            c.cfg.ClientID,
			"X-EBAY-API-DEV-NAME":            c.cfg.DevID,
			"X-EBAY-API-CERT-NAME":           c.cfg.ClientSecret,
			"X-EBAY-API-IAF-TOKEN":           token,
		}).
		SetBody(append([]byte(xml.Header), body...)).
		Post("/ws/api.dll")
	res, err = handleError(callName, res, err)
	if err != nil {
		return err
	}

	if err := xml.Unmarshal(res.Body(), response); err != nil {
		return &ParseError{Raw: res.String(), Err: err}
	}
	return nil
}
