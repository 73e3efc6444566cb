package salesmetrics

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

const (
	dateKeyLayout         = "2006-01-02"
	uncategorizedCategory = "uncategorized"
)

// rollupStatuses are the order states that count as realized sales. Pending
// orders may still fall through and cancelled ones never sold.
var rollupStatuses = map[enums.OrderStatus]struct{}{
	enums.OrderStatusReadyToShip: {},
	enums.OrderStatusShipped:     {},
	enums.OrderStatusDelivered:   {},
}

type orderLister interface {
	ListPlacedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

// ServiceParams groups dependencies for the rollup service.
type ServiceParams struct {
	Logger   *logger.Logger
	Orders   orderLister
	Metrics  Repository
	Location *time.Location
}

// Service computes the daily sales rollup in the seller's local timezone.
type Service struct {
	logg     *logger.Logger
	orders   orderLister
	metrics  Repository
	location *time.Location
	now      func() time.Time
}

// NewService builds the rollup service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders lister is required")
	}
	if params.Metrics == nil {
		return nil, errors.New("metrics repository is required")
	}
	if params.Location == nil {
		return nil, errors.New("timezone location is required")
	}
	return &Service{
		logg:     params.Logger,
		orders:   params.Orders,
		metrics:  params.Metrics,
		location: params.Location,
		now:      time.Now,
	}, nil
}

// RollupYesterday aggregates the previous local calendar day.
func (s *Service) RollupYesterday(ctx context.Context) (*models.DailyMetric, error) {
	yesterday := s.now().In(s.location).AddDate(0, 0, -1)
	return s.RollupDay(ctx, yesterday)
}

// RollupDay aggregates one local calendar day and stores the snapshot under
// its YYYY-MM-DD key. Days with no realized sales store nothing and return nil.
func (s *Service) RollupDay(ctx context.Context, day time.Time) (*models.DailyMetric, error) {
	local := day.In(s.location)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	endOfDay := startOfDay.AddDate(0, 0, 1)
	dateKey := startOfDay.Format(dateKeyLayout)

	logCtx := s.logg.WithField(ctx, "date", dateKey)

	orders, err := s.orders.ListPlacedBetween(ctx, startOfDay.UTC(), endOfDay.UTC())
	if err != nil {
		return nil, err
	}

	totalSales := decimal.Zero
	totalOrders := 0
	byCategory := map[string]decimal.Decimal{}

	for _, order := range orders {
		if _, ok := rollupStatuses[order.Status]; !ok {
			continue
		}
		totalOrders++

		orderTotal := decimal.Zero
		for _, item := range order.Items {
			lineTotal := item.Total()
			orderTotal = orderTotal.Add(lineTotal)

			category := item.CategoryID
			if category == "" {
				category = uncategorizedCategory
			}
			byCategory[category] = byCategory[category].Add(lineTotal)
		}
		totalSales = totalSales.Add(orderTotal)
	}

	if totalOrders == 0 {
		s.logg.Info(logCtx, "no realized sales for day; skipping rollup")
		return nil, nil
	}

	metric := &models.DailyMetric{
		Date:          dateKey,
		TotalSales:    totalSales.Round(2),
		TotalOrders:   totalOrders,
		AverageTicket: totalSales.Div(decimal.NewFromInt(int64(totalOrders))).Round(2),
		ByCategory:    byCategory,
		ComputedAt:    s.now().UTC(),
	}
	if err := s.metrics.Upsert(ctx, metric); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(logCtx, "total_orders", totalOrders), "daily metrics stored")
	return metric, nil
}
