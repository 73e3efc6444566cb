package bling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/selleropsapp/sellerops-backend/pkg/config"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
)

const (
	defaultBaseURL = "https://bling.com.br/Api/v2"

	responseBodyReadLimit int64 = 2048
)

// ErrNotConfigured signals that no API key was provisioned; callers skip the
// Bling call instead of failing.
var ErrNotConfigured = errors.New("bling api key not configured")

// Client wraps the Bling v2 order API. Authentication is an apikey query
// parameter; order updates are an XML document sent as a query parameter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
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

// WithBaseURL overrides the configured Bling base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Bling client. An empty API key is allowed; calls then
// return ErrNotConfigured so the notifier can record the skip.
func NewClient(cfg config.BlingConfig, opts ...Option) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client
}

// Configured reports whether an API key was provisioned.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// UpdateOrderStatus pushes a new situation for the order identified by
// blingOrderID (the Bling id when known, the marketplace order id otherwise).
func (c *Client) UpdateOrderStatus(ctx context.Context, blingOrderID, situacao string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(blingOrderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "bling order id is required")
	}
	if strings.TrimSpace(situacao) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "situacao is required")
	}

	xmlPayload := fmt.Sprintf("<pedido><id>%s</id><situacao>%s</situacao></pedido>", blingOrderID, situacao)

	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("xml", xmlPayload)
	endpoint := fmt.Sprintf("%s/pedido/%s/json?%s", c.baseURL, url.PathEscape(blingOrderID), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build bling request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute bling request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"bling request failed",
		)
	}

	// Bling v2 reports application errors in a 200 body.
	if err := checkAPIErrors(body); err != nil {
		return err
	}
	return nil
}

func checkAPIErrors(body []byte) error {
	var envelope struct {
		Retorno struct {
			Erros json.RawMessage `json:"erros"`
		} `json:"retorno"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Non-JSON bodies pass through; the status code already vouched for them.
		return nil
	}
	if len(envelope.Retorno.Erros) > 0 && string(envelope.Retorno.Erros) != "null" {
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("bling erros: %s", strings.TrimSpace(string(envelope.Retorno.Erros))),
			"bling rejected order update",
		)
	}
	return nil
}
