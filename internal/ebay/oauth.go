package ebay

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	TokenType             string `json:"token_type"`
}

// AuthURL returns the consent page URL the seller opens to authorize the
// application. The state is echoed back to the redirect URI.
func (c *Client) AuthURL(state string) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.RedirectURI == "" {
		var missing []string
		if c.cfg.ClientID == "" {
			missing = append(missing, "EBAY_CLIENT_ID")
		}
		if c.cfg.RedirectURI == "" {
			missing = append(missing, "EBAY_REDIRECT_URI")
		}
		return "", &ConfigurationError{Missing: missing}
	}

	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.cfg.scopes(), " "))
	q.Set("prompt", "login")
	if state != "" {
		q.Set("state", state)
	}
	return c.cfg.authBaseURL() + "/oauth2/authorize?" + q.Encode(), nil
}

// ExchangeCode converts an authorization code into an access token and
// stores it. The expiry is computed as now + expires_in.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "code", Message: "is required"}}}
	}
	if missing := c.cfg.missingCredentials(); len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	result := &tokenResponse{}
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{
			"grant_type":   "authorization_code",
			"code":         code,
			"redirect_uri": c.cfg.RedirectURI,
		}).
		SetResult(result).
		Post("/identity/v1/oauth2/token")
	_, err = handleError("exchange authorization code", res, err)
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, &ParseError{Err: errMissingAccessToken}
	}

	token := Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	// A zero ExpiresAt never expires
	if result.ExpiresIn > 0 {
		token.ExpiresAt = c.now().Add(time.Duration(result.ExpiresIn) * time.Second)
	}
	if err := c.tokens.Set(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	log.Info().Time("expiresAt", token.ExpiresAt).Bool("sandbox", c.cfg.Sandbox).Msg("ebay token stored")
	return &token, nil
}
