package ebay

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SetupStep is the outcome of one account setup call.
type SetupStep struct {
	Name string
	ID   string // Created id, "existing" when eBay reported a conflict
	Err  error
}

// SetupResult lists the outcome of every setup step in order.
type SetupResult struct {
	Steps []SetupStep
}

// OK reports whether every step succeeded.
func (r *SetupResult) OK() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return false
		}
	}
	return true
}

type policyCreated struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId"`
	PaymentPolicyID     string `json:"paymentPolicyId"`
	ReturnPolicyID      string `json:"returnPolicyId"`
}

type categoryType struct {
	Name string `json:"name"`
}

type timeDuration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type paymentPolicyRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	MarketplaceID string         `json:"marketplaceId"`
	CategoryTypes []categoryType `json:"categoryTypes"`
	ImmediatePay  bool           `json:"immediatePay"`
}

type shippingService struct {
	ServiceCode            string `json:"shippingServiceCode"`
	ShippingCost           Amount `json:"shippingCost"`
	AdditionalShippingCost Amount `json:"additionalShippingCost"`
	SortOrder              int    `json:"sortOrder"`
}

type shippingOption struct {
	OptionType       string            `json:"optionType"`
	CostType         string            `json:"costType"`
	ShippingServices []shippingService `json:"shippingServices"`
}

type fulfillmentPolicyRequest struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	MarketplaceID   string           `json:"marketplaceId"`
	CategoryTypes   []categoryType   `json:"categoryTypes"`
	HandlingTime    timeDuration     `json:"handlingTime"`
	ShippingOptions []shippingOption `json:"shippingOptions"`
}

type returnPolicyRequest struct {
	Name                    string         `json:"name"`
	Description             string         `json:"description"`
	MarketplaceID           string         `json:"marketplaceId"`
	CategoryTypes           []categoryType `json:"categoryTypes"`
	ReturnsAccepted         bool           `json:"returnsAccepted"`
	ReturnPeriod            timeDuration   `json:"returnPeriod"`
	ReturnShippingCostPayer string         `json:"returnShippingCostPayer"`
	RefundMethod            string         `json:"refundMethod"`
}

var allExcludingMotors = []categoryType{{Name: "ALL_EXCLUDING_MOTORS_VEHICLES"}}

// SetupAccount prepares a seller account for listing: an inventory location
// and default payment, fulfillment and return policies. Steps are
// best-effort and an existing resource (409) counts as success.
func (c *Client) SetupAccount(ctx context.Context) (*SetupResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	result := &SetupResult{}

	locationKey := c.cfg.locationKey()
	locStep := SetupStep{Name: "inventory location", ID: locationKey}
	if err := c.CreateInventoryLocation(ctx, locationKey); err != nil {
		locStep.Err = err
	}
	result.Steps = append(result.Steps, locStep)

	result.Steps = append(result.Steps, c.createPolicy(ctx, token, "payment policy", "payment_policy", paymentPolicyRequest{
		Name:          "Default Payment Policy",
		Description:   "Default payment policy for listings",
		MarketplaceID: MarketplaceUS,
		CategoryTypes: allExcludingMotors,
		ImmediatePay:  true,
	}, func(p policyCreated) string { return p.PaymentPolicyID }))

	result.Steps = append(result.Steps, c.createPolicy(ctx, token, "fulfillment policy", "fulfillment_policy", fulfillmentPolicyRequest{
		Name:          "Default Fulfillment Policy",
		Description:   "Default shipping policy for listings",
		MarketplaceID: MarketplaceUS,
		CategoryTypes: allExcludingMotors,
		HandlingTime:  timeDuration{Value: 1, Unit: "DAY"},
		ShippingOptions: []shippingOption{{
			OptionType: "DOMESTIC",
			CostType:   "FLAT_RATE",
			ShippingServices: []shippingService{{
				ServiceCode:            "USPSGround",
				ShippingCost:           Amount{Value: "5.99", Currency: currencyUSD},
				AdditionalShippingCost: Amount{Value: "2.99", Currency: currencyUSD},
				SortOrder:              1,
			}},
		}},
	}, func(p policyCreated) string { return p.FulfillmentPolicyID }))

	result.Steps = append(result.Steps, c.createPolicy(ctx, token, "return policy", "return_policy", returnPolicyRequest{
		Name:                    "Default Return Policy",
		Description:             "Default return policy for listings",
		MarketplaceID:           MarketplaceUS,
		CategoryTypes:           allExcludingMotors,
		ReturnsAccepted:         true,
		ReturnPeriod:            timeDuration{Value: 30, Unit: "DAY"},
		ReturnShippingCostPayer: "BUYER",
		RefundMethod:            "MONEY_BACK",
	}, func(p policyCreated) string { return p.ReturnPolicyID }))

	for _, s := range result.Steps {
		ev := log.Info()
		if s.Err != nil {
			ev = log.Warn().Err(s.Err)
		}
		ev.Str("step", s.Name).Str("id", s.ID).Msg("account setup step")
	}

	return result, nil
}

func (c *Client) createPolicy(ctx context.Context, token, name, kind string, body any, id func(policyCreated) string) SetupStep {
	step := SetupStep{Name: name}
	created := policyCreated{}

	res, err := c.req(ctx, token, &created).
		SetBody(body).
		Post("/sell/account/v1/" + kind)
	if err == nil && res.StatusCode() == http.StatusConflict {
		step.ID = "existing"
		return step
	}
	if _, err := handleError("create "+name, res, err); err != nil {
		step.Err = err
		return step
	}

	step.ID = id(created)
	return step
}
