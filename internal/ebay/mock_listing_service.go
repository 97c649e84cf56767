package ebay

import (
	"context"
	"sync"
	"time"
)

var fixedMockTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// MockListingService is a test double for ListingService.
// Each method can be overridden with a custom function.
// If not overridden, methods return sensible defaults.
// Thread-safe for use in concurrent tests.
type MockListingService struct {
	AuthURLFunc             func(state string) (string, error)
	ExchangeCodeFunc        func(ctx context.Context, code string) (*Token, error)
	IsAuthorizedFunc        func(ctx context.Context) (bool, error)
	LogoutFunc              func(ctx context.Context) error
	PublishFunc             func(ctx context.Context, draft ListingDraft, images []Image) (*PublishResult, error)
	SetupAccountFunc        func(ctx context.Context) (*SetupResult, error)
	GetLeafCategoriesFunc   func(ctx context.Context) ([]LeafCategory, error)
	GetShippingServicesFunc func(ctx context.Context) ([]string, error)

	mu sync.Mutex

	// Calls tracks all method invocations for assertions
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

// Ensure MockListingService implements ListingService
var _ ListingService = (*MockListingService)(nil)

func (m *MockListingService) record(method string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallCount returns how many times a method was invoked.
func (m *MockListingService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockListingService) AuthURL(state string) (string, error) {
	m.record("AuthURL", state)
	if m.AuthURLFunc != nil {
		return m.AuthURLFunc(state)
	}
	return "https://auth.sandbox.ebay.com/oauth2/authorize?state=" + state, nil
}

func (m *MockListingService) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	m.record("ExchangeCode", code)
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return &Token{AccessToken: "mock-access-token"}, nil
}

func (m *MockListingService) IsAuthorized(ctx context.Context) (bool, error) {
	m.record("IsAuthorized")
	if m.IsAuthorizedFunc != nil {
		return m.IsAuthorizedFunc(ctx)
	}
	return true, nil
}

func (m *MockListingService) Logout(ctx context.Context) error {
	m.record("Logout")
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockListingService) Publish(ctx context.Context, draft ListingDraft, images []Image) (*PublishResult, error) {
	m.record("Publish", draft, len(images))
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, draft, images)
	}
	return &PublishResult{
		ListingID:  "110000000001",
		ListingURL: ListingURL("110000000001", true),
		Method:     StrategyInventory,
		SKU:        GenerateSKU(draft.Title, fixedMockTime),
		OfferID:    "mock-offer-id",
	}, nil
}

func (m *MockListingService) SetupAccount(ctx context.Context) (*SetupResult, error) {
	m.record("SetupAccount")
	if m.SetupAccountFunc != nil {
		return m.SetupAccountFunc(ctx)
	}
	return &SetupResult{Steps: []SetupStep{
		{Name: "inventory location", ID: DefaultLocationKey},
		{Name: "payment policy", ID: "existing"},
		{Name: "fulfillment policy", ID: "existing"},
		{Name: "return policy", ID: "existing"},
	}}, nil
}

func (m *MockListingService) GetLeafCategories(ctx context.Context) ([]LeafCategory, error) {
	m.record("GetLeafCategories")
	if m.GetLeafCategoriesFunc != nil {
		return m.GetLeafCategoriesFunc(ctx)
	}
	return []LeafCategory{{ID: "99", Name: "Collectibles"}}, nil
}

func (m *MockListingService) GetShippingServices(ctx context.Context) ([]string, error) {
	m.record("GetShippingServices")
	if m.GetShippingServicesFunc != nil {
		return m.GetShippingServicesFunc(ctx)
	}
	return []string{"USPSPriority", "USPSFirstClass"}, nil
}
