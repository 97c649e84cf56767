package ebay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the eBay identity, Inventory, Account and Trading APIs on
// behalf of one seller whose token lives in the TokenStore.
type Client struct {
	cfg        Config
	tokens     TokenStore
	httpClient *resty.Client
	now        func() time.Time
}

func NewClient(cfg Config, tokens TokenStore) *Client {
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		now:    time.Now,
		httpClient: resty.New().
			SetDebug(false).
			SetBaseURL(cfg.apiBaseURL()).
			SetTimeout(30 * time.Second).
			SetHeaders(map[string]string{
				"Accept":           "application/json",
				"Content-Language": contentLanguage,
			}),
	}
}

// Sandbox reports whether the client targets the eBay sandbox.
func (c *Client) Sandbox() bool {
	return c.cfg.Sandbox
}

// accessToken returns the stored access token or AuthExpiredError.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if token == nil || token.AccessToken == "" {
		return "", &AuthExpiredError{}
	}
	return token.AccessToken, nil
}

func (c *Client) req(ctx context.Context, accessToken string, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetAuthToken(accessToken)

	if result != nil {
		request.SetResult(result)
	}

	return request
}

// handleError turns failing responses (>399 status code) into UpstreamError
// carrying the raw body. Without this, failing responses would have nil error.
func handleError(op string, res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, fmt.Errorf("failed to %s: %w", op, err)
	}
	if res.IsError() {
		return res, &UpstreamError{
			Operation:  op,
			StatusCode: res.StatusCode(),
			Body:       res.String(),
		}
	}
	return res, nil
}
