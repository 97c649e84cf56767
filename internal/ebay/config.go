package ebay

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	productionAuthBaseURL = "https://auth.ebay.com"
	sandboxAuthBaseURL    = "https://auth.sandbox.ebay.com"
	productionAPIBaseURL  = "https://api.ebay.com"
	sandboxAPIBaseURL     = "https://api.sandbox.ebay.com"

	MarketplaceUS      = "EBAY_US"
	DefaultLocationKey = "default_location"
	DefaultPostalCode  = "95125"
	tradingCompatLevel = "1193"
	tradingSiteID      = "0"
	contentLanguage    = "en-US"
	currencyUSD        = "USD"
)

// DefaultScopes are the OAuth scopes needed to create and publish listings.
var DefaultScopes = []string{
	"https://api.ebay.com/oauth/api_scope",
	"https://api.ebay.com/oauth/api_scope/sell.inventory",
	"https://api.ebay.com/oauth/api_scope/sell.account",
}

// Config holds the eBay application credentials and listing defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	DevID        string
	// RedirectURI is the RuName registered for the application.
	RedirectURI string
	Sandbox     bool

	// Base URL overrides, used by tests.
	AuthBaseURL string
	APIBaseURL  string

	LocationKey  string
	PostalCode   string
	PublishOrder []string
	Scopes       []string
}

// ConfigFromEnv reads the eBay configuration from EBAY_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ClientID:     os.Getenv("EBAY_CLIENT_ID"),
		ClientSecret: os.Getenv("EBAY_CLIENT_SECRET"),
		DevID:        os.Getenv("EBAY_DEV_ID"),
		RedirectURI:  os.Getenv("EBAY_REDIRECT_URI"),
		LocationKey:  os.Getenv("EBAY_LOCATION_KEY"),
		PostalCode:   os.Getenv("EBAY_POSTAL_CODE"),
	}

	if v := strings.TrimSpace(os.Getenv("EBAY_SANDBOX")); v != "" {
		sandbox, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid EBAY_SANDBOX %q: %w", v, err)
		}
		cfg.Sandbox = sandbox
	}

	order, err := ParsePublishOrder(os.Getenv("EBAY_PUBLISH_ORDER"))
	if err != nil {
		return cfg, err
	}
	cfg.PublishOrder = order
	return cfg, nil
}

// ParsePublishOrder parses a comma separated list of strategy names. An
// empty string yields the default order: inventory first, trading second.
func ParsePublishOrder(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{StrategyInventory, StrategyTrading}, nil
	}

	var order []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if name != StrategyInventory && name != StrategyTrading {
			return nil, fmt.Errorf("unknown publish strategy %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("publish order %q names no strategies", s)
	}
	return order, nil
}

// missingCredentials returns the names of credentials required for OAuth and
// the Trading API that are not set.
func (c Config) missingCredentials() []string {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "EBAY_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "EBAY_CLIENT_SECRET")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "EBAY_REDIRECT_URI")
	}
	return missing
}

func (c Config) authBaseURL() string {
	if c.AuthBaseURL != "" {
		return c.AuthBaseURL
	}
	if c.Sandbox {
		return sandboxAuthBaseURL
	}
	return productionAuthBaseURL
}

func (c Config) apiBaseURL() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	if c.Sandbox {
		return sandboxAPIBaseURL
	}
	return productionAPIBaseURL
}

func (c Config) locationKey() string {
	if c.LocationKey != "" {
		return c.LocationKey
	}
	return DefaultLocationKey
}

func (c Config) postalCode() string {
	if c.PostalCode != "" {
		return c.PostalCode
	}
	return DefaultPostalCode
}

func (c Config) scopes() []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return DefaultScopes
}
