package meli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/selleropsapp/sellerops-backend/pkg/config"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
)

const (
	defaultAPIBaseURL  = "https://api.mercadolibre.com"
	defaultAuthBaseURL = "https://auth.mercadolivre.com.br"
	oauthScopes        = "read write offline_access read_finance read_reputation"

	responseBodyReadLimit int64 = 2048
)

var (
	errClientIDRequired = errors.New("mercado livre client id is required")

	// ErrNotFound signals an upstream 404 for endpoints where callers degrade
	// instead of failing (shipping performance modes the seller never used).
	ErrNotFound = errors.New("mercado livre resource not found")
)

// Client wraps the Mercado Livre REST API used by the dashboard.
type Client struct {
	httpClient   *http.Client
	apiBaseURL   string
	authBaseURL  string
	clientID     string
	clientSecret string
	redirectURI  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIBaseURL overrides the configured API base URL.
func WithAPIBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.apiBaseURL = trimmed
		}
	}
}

// NewClient builds the Mercado Livre client from configuration.
func NewClient(cfg config.MercadoLivreConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errClientIDRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		apiBaseURL:   strings.TrimSpace(cfg.APIBaseURL),
		authBaseURL:  strings.TrimSpace(cfg.AuthBaseURL),
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		redirectURI:  strings.TrimSpace(cfg.RedirectURI),
	}
	if client.apiBaseURL == "" {
		client.apiBaseURL = defaultAPIBaseURL
	}
	if client.authBaseURL == "" {
		client.authBaseURL = defaultAuthBaseURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// AuthorizationURL returns the URL the operator visits to authorize the app.
func (c *Client) AuthorizationURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", oauthScopes)
	return fmt.Sprintf("%s/authorization?%s", c.authBaseURL, q.Encode())
}

// ExchangeCode trades an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.postToken(ctx, form)
}

// RefreshToken trades a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "refresh token is required")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", refreshToken)
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	endpoint := c.apiBaseURL + "/oauth/token"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	var token TokenResponse
	if err := c.do(httpReq, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// WhoAmI resolves the authenticated seller via /users/me.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (*Seller, error) {
	var seller Seller
	if err := c.getJSON(ctx, accessToken, "/users/me", nil, &seller); err != nil {
		return nil, err
	}
	return &seller, nil
}

// SearchOrders pages through /orders/search for the given update window.
func (c *Client) SearchOrders(ctx context.Context, accessToken string, params SearchParams) (*SearchResult, error) {
	q := url.Values{}
	q.Set("seller", strconv.FormatInt(params.SellerID, 10))
	q.Set("sort", "date_desc")
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	q.Set("limit", strconv.Itoa(limit))
	if !params.UpdatedFrom.IsZero() {
		q.Set("order.last_updated.from", params.UpdatedFrom.UTC().Format(time.RFC3339))
	}
	if !params.UpdatedTo.IsZero() {
		q.Set("order.last_updated.to", params.UpdatedTo.UTC().Format(time.RFC3339))
	}

	var result SearchResult
	if err := c.getJSON(ctx, accessToken, "/orders/search", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder fetches the full order detail.
func (c *Client) GetOrder(ctx context.Context, accessToken string, orderID int64) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/orders/%d", orderID)
	if err := c.getJSON(ctx, accessToken, path, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SellerReputation fetches the raw reputation payload for the seller.
func (c *Client) SellerReputation(ctx context.Context, accessToken string, sellerID int64) (Reputation, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/users/%d/seller_reputation", sellerID)
	if err := c.getJSON(ctx, accessToken, path, nil, &raw); err != nil {
		return nil, err
	}
	return Reputation(raw), nil
}

// AccountBalanceSummary fetches the Mercado Pago balance for the seller.
func (c *Client) AccountBalanceSummary(ctx context.Context, accessToken string, sellerID int64) (AccountBalance, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/users/%d/mercadopago_account/balance", sellerID)
	if err := c.getJSON(ctx, accessToken, path, nil, &raw); err != nil {
		return nil, err
	}
	return AccountBalance(raw), nil
}

// GetShippingPerformance fetches shipping performance for the given mode
// ("flex" or "me2"). Returns ErrNotFound on upstream 404.
func (c *Client) GetShippingPerformance(ctx context.Context, accessToken string, sellerID int64, mode string) (*ShippingPerformance, error) {
	q := url.Values{}
	q.Set("mode", mode)
	path := fmt.Sprintf("/users/%d/shipping_performance", sellerID)

	var raw json.RawMessage
	if err := c.getJSON(ctx, accessToken, path, q, &raw); err != nil {
		return nil, err
	}

	var perf ShippingPerformance
	if err := json.Unmarshal(raw, &perf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shipping performance")
	}
	perf.Raw = raw
	return &perf, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mercado livre client not configured")
	}
	endpoint := c.apiBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mercado livre request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if strings.TrimSpace(accessToken) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.do(httpReq, out)
}

func (c *Client) do(httpReq *http.Request, out any) error {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mercado livre request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"mercado livre request failed",
		)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mercado livre response")
	}
	return nil
}
