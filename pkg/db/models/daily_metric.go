package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetric is the rolled-up sales snapshot for one calendar day in the
// seller's local timezone. Date is the YYYY-MM-DD key the rollup writes under.
type DailyMetric struct {
	Date          string                     `gorm:"column:date;primaryKey"`
	TotalSales    decimal.Decimal            `gorm:"column:total_sales;type:numeric(14,2);not null"`
	TotalOrders   int                        `gorm:"column:total_orders;not null"`
	AverageTicket decimal.Decimal            `gorm:"column:average_ticket;type:numeric(14,2);not null"`
	ByCategory    map[string]decimal.Decimal `gorm:"column:by_category;type:jsonb;serializer:json"`
	ComputedAt    time.Time                  `gorm:"column:computed_at;not null"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (DailyMetric) TableName() string { return "daily_metrics" }
