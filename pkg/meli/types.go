package meli

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TokenResponse is the OAuth token payload returned by /oauth/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// Seller is the identity returned by /users/me.
type Seller struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	SiteID   string `json:"site_id"`
}

// SearchParams narrows the /orders/search query to a trailing update window.
type SearchParams struct {
	SellerID    int64
	UpdatedFrom time.Time
	UpdatedTo   time.Time
	Limit       int
}

// OrderSummary is the slim order shape returned by /orders/search results.
type OrderSummary struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// SearchResult wraps the /orders/search response page.
type SearchResult struct {
	Results []OrderSummary `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging"`
}

// Order is the full order detail returned by /orders/{id}.
type Order struct {
	ID          int64           `json:"id"`
	Status      string          `json:"status"`
	DateCreated time.Time       `json:"date_created"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Buyer       Buyer           `json:"buyer"`
	OrderItems  []OrderItem     `json:"order_items"`
	Shipping    *OrderShipping  `json:"shipping"`
	Seller      struct {
		ID int64 `json:"id"`
	} `json:"seller"`
}

// Buyer is the purchaser block inside an order detail.
type Buyer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     *struct {
		Number string `json:"number"`
	} `json:"phone"`
}

// OrderItem is one purchased listing inside an order.
type OrderItem struct {
	Item struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		CategoryID string `json:"category_id"`
	} `json:"item"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderShipping is the shipment block inside an order detail.
type OrderShipping struct {
	ID             int64  `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	ShippingOption *struct {
		Name string `json:"name"`
	} `json:"shipping_option"`
}

// Reputation is the raw seller reputation payload, passed through to clients.
type Reputation = json.RawMessage

// AccountBalance is the raw Mercado Pago balance payload, passed through to clients.
type AccountBalance = json.RawMessage

// ShippingPerformance is the raw shipping performance payload for one mode.
type ShippingPerformance struct {
	Status  string `json:"status"`
	Metrics *struct {
		LateShippingRate *struct {
			CurrentPeriod *struct {
				Rate *float64 `json:"rate"`
			} `json:"current_period"`
			ComparisonPeriod *struct {
				Rate *float64 `json:"rate"`
			} `json:"comparison_period"`
		} `json:"late_shipping_rate"`
	} `json:"metrics"`
	Raw json.RawMessage `json:"-"`
}
