package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the buyer snapshot denormalized onto an order at sync
// time. It is never refreshed after the first sync that captured it.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// OrderItem is one line of an order exactly as it was placed.
type OrderItem struct {
	ExternalItemID string          `json:"externalItemId"`
	Title          string          `json:"title"`
	CategoryID     string          `json:"categoryId,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
}

// Total returns quantity × unit price for the line.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Shipping holds the opportunistically-populated shipment data.
type Shipping struct {
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	LabelURL       string `json:"labelUrl,omitempty"`
}

// ScanRecord is the audit of the most recent physical scan of an order.
type ScanRecord struct {
	ScannedBy string    `json:"scannedBy"`
	ScannedAt time.Time `json:"scannedAt"`
	Value     string    `json:"value"`
}
