package meli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/selleropsapp/sellerops-backend/pkg/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.MercadoLivreConfig {
	return config.MercadoLivreConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://example.com/callback",
		APIBaseURL:   "http://ml.test",
		AuthBaseURL:  "http://auth.ml.test",
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestAuthorizationURL(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	raw := client.AuthorizationURL()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if parsed.Path != "/authorization" {
		t.Fatalf("unexpected path %q", parsed.Path)
	}
	q := parsed.Query()
	if q.Get("response_type") != "code" {
		t.Fatalf("unexpected response_type %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "client-id" {
		t.Fatalf("unexpected client_id %q", q.Get("client_id"))
	}
	if !strings.Contains(q.Get("scope"), "offline_access") {
		t.Fatalf("scope missing offline_access: %q", q.Get("scope"))
	}
}

func TestRefreshToken_sendsFormAndParsesResponse(t *testing.T) {
	respBody := `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":21600,"user_id":42}`

	var capturedForm url.Values
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/oauth/token" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Fatalf("unexpected content type %q", got)
		}
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		capturedForm, err = url.ParseQuery(string(body))
		if err != nil {
			t.Fatalf("parse form: %v", err)
		}
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := newTestClient(t, rt)
	token, err := client.RefreshToken(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if capturedForm.Get("grant_type") != "refresh_token" {
		t.Fatalf("unexpected grant type %q", capturedForm.Get("grant_type"))
	}
	if capturedForm.Get("refresh_token") != "old-refresh" {
		t.Fatalf("unexpected refresh token %q", capturedForm.Get("refresh_token"))
	}
	if token.AccessToken != "new-access" || token.ExpiresIn != 21600 {
		t.Fatalf("unexpected token %+v", token)
	}
}

func TestSearchOrders_buildsWindowQuery(t *testing.T) {
	respBody := `{"results":[{"id":100001,"status":"paid"},{"id":100002,"status":"shipped"}],"paging":{"total":2}}`

	var capturedQuery url.Values
	var capturedAuth string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/orders/search" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		capturedQuery = req.URL.Query()
		capturedAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := newTestClient(t, rt)
	from := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	result, err := client.SearchOrders(context.Background(), "token-1", SearchParams{
		SellerID:    42,
		UpdatedFrom: from,
		UpdatedTo:   from.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if capturedAuth != "Bearer token-1" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if capturedQuery.Get("seller") != "42" {
		t.Fatalf("unexpected seller %q", capturedQuery.Get("seller"))
	}
	if capturedQuery.Get("limit") != "50" {
		t.Fatalf("expected default limit 50, got %q", capturedQuery.Get("limit"))
	}
	if capturedQuery.Get("order.last_updated.from") != "2025-06-01T10:00:00Z" {
		t.Fatalf("unexpected window start %q", capturedQuery.Get("order.last_updated.from"))
	}
	if len(result.Results) != 2 || result.Results[0].ID != 100001 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGetShippingPerformance_notFound(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"not found"}`), nil
	})

	client := newTestClient(t, rt)
	_, err := client.GetShippingPerformance(context.Background(), "token-1", 42, "flex")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrder_parsesDetail(t *testing.T) {
	respBody := `{
		"id": 100001,
		"status": "ready_to_ship",
		"date_created": "2025-06-01T09:00:00.000-03:00",
		"total_amount": 149.9,
		"buyer": {"id": 7, "first_name": "Ana", "last_name": "Silva", "email": "ana@example.com", "phone": {"number": "11999999999"}},
		"order_items": [{"item": {"id": "MLB123", "title": "Cabo USB", "category_id": "MLB5726"}, "quantity": 2, "unit_price": 74.95}],
		"shipping": {"id": 555, "tracking_number": "TRK123", "shipping_option": {"name": "Flex"}}
	}`

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/orders/100001" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := newTestClient(t, rt)
	order, err := client.GetOrder(context.Background(), "token-1", 100001)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != "ready_to_ship" {
		t.Fatalf("unexpected status %q", order.Status)
	}
	if order.Buyer.FirstName != "Ana" || order.Buyer.Phone == nil {
		t.Fatalf("unexpected buyer %+v", order.Buyer)
	}
	if len(order.OrderItems) != 1 || order.OrderItems[0].Item.CategoryID != "MLB5726" {
		t.Fatalf("unexpected items %+v", order.OrderItems)
	}
	if order.Shipping == nil || order.Shipping.TrackingNumber != "TRK123" {
		t.Fatalf("unexpected shipping %+v", order.Shipping)
	}
}

func TestDo_non200SurfacesStatus(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `{"message":"upstream down"}`), nil
	})

	client := newTestClient(t, rt)
	_, err := client.WhoAmI(context.Background(), "token-1")
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
