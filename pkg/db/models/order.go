package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/types"
)

// Order is the canonical marketplace order record. The primary key is the
// Mercado Livre order id rendered as a string, which keeps merge writes from
// the sync engine idempotent.
type Order struct {
	ID             string            `gorm:"column:id;primaryKey"`
	MLOrderID      int64             `gorm:"column:ml_order_id;not null;uniqueIndex"`
	SellerID       int64             `gorm:"column:seller_id;not null;index"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	StatusRaw      string            `gorm:"column:status_raw;not null"`
	TotalAmount    decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Customer       types.Customer    `gorm:"column:customer;type:jsonb;serializer:json"`
	Items          []types.OrderItem `gorm:"column:items;type:jsonb;serializer:json"`
	Shipping       types.Shipping    `gorm:"column:shipping;type:jsonb;serializer:json"`
	LastScan       *types.ScanRecord `gorm:"column:last_scan;type:jsonb;serializer:json"`
	BlingID        *string           `gorm:"column:bling_id"`
	BlingSyncError *string           `gorm:"column:bling_sync_error"`
	PlacedAt       time.Time         `gorm:"column:placed_at;not null;index"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
