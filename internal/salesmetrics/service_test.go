package salesmetrics

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/types"
)

// Brazil retired DST in 2019, so a fixed -3 offset matches America/Sao_Paulo.
var saoPaulo = time.FixedZone("America/Sao_Paulo", -3*60*60)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE orders (
			id text PRIMARY KEY,
			ml_order_id integer NOT NULL UNIQUE,
			seller_id integer NOT NULL,
			status text NOT NULL DEFAULT 'pending',
			status_raw text NOT NULL,
			total_amount numeric NOT NULL DEFAULT 0,
			customer text,
			items text,
			shipping text,
			last_scan text,
			bling_id text,
			bling_sync_error text,
			placed_at datetime NOT NULL,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE daily_metrics (
			date text PRIMARY KEY,
			total_sales numeric NOT NULL,
			total_orders integer NOT NULL,
			average_ticket numeric NOT NULL,
			by_category text,
			computed_at datetime NOT NULL,
			created_at datetime,
			updated_at datetime
		)`,
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func seedOrder(t *testing.T, repo orders.Repository, mlOrderID int64, status enums.OrderStatus, placedAt time.Time, items []types.OrderItem) {
	t.Helper()
	err := repo.UpsertFromSync(context.Background(), &models.Order{
		ID:          fmt.Sprintf("%d", mlOrderID),
		MLOrderID:   mlOrderID,
		SellerID:    42,
		Status:      status,
		StatusRaw:   string(status),
		TotalAmount: decimal.Zero,
		Items:       items,
		PlacedAt:    placedAt.UTC(),
	})
	if err != nil {
		t.Fatalf("seed order %d: %v", mlOrderID, err)
	}
}

func item(category string, quantity int, price float64) types.OrderItem {
	return types.OrderItem{
		ExternalItemID: "MLB-item",
		Title:          "Item",
		CategoryID:     category,
		Quantity:       quantity,
		UnitPrice:      decimal.NewFromFloat(price),
	}
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(ServiceParams{
		Logger:   logg,
		Orders:   orders.NewRepository(db),
		Metrics:  NewRepository(db),
		Location: saoPaulo,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRollupDay_aggregatesRealizedSales(t *testing.T) {
	db := newTestDB(t)
	repo := orders.NewRepository(db)
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, saoPaulo)

	seedOrder(t, repo, 100001, enums.OrderStatusShipped, day, []types.OrderItem{
		item("MLB5726", 2, 50.00),
	})
	seedOrder(t, repo, 100002, enums.OrderStatusReadyToShip, day.Add(2*time.Hour), []types.OrderItem{
		item("MLB5726", 1, 30.00),
		item("", 1, 20.00),
	})
	// Pending and cancelled orders never count as realized sales.
	seedOrder(t, repo, 100003, enums.OrderStatusPending, day, []types.OrderItem{
		item("MLB5726", 1, 999.00),
	})
	seedOrder(t, repo, 100004, enums.OrderStatusCancelled, day, []types.OrderItem{
		item("MLB5726", 1, 999.00),
	})

	svc := newTestService(t, db)
	metric, err := svc.RollupDay(context.Background(), day)
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if metric == nil {
		t.Fatal("expected a metric")
	}

	if metric.Date != "2025-06-01" {
		t.Fatalf("unexpected date key %q", metric.Date)
	}
	if metric.TotalOrders != 2 {
		t.Fatalf("expected 2 orders, got %d", metric.TotalOrders)
	}
	if !metric.TotalSales.Equal(decimal.NewFromFloat(150.00)) {
		t.Fatalf("unexpected total sales %s", metric.TotalSales)
	}
	if !metric.AverageTicket.Equal(decimal.NewFromFloat(75.00)) {
		t.Fatalf("unexpected average ticket %s", metric.AverageTicket)
	}
	if !metric.ByCategory["MLB5726"].Equal(decimal.NewFromFloat(130.00)) {
		t.Fatalf("unexpected category total %s", metric.ByCategory["MLB5726"])
	}
	if !metric.ByCategory["uncategorized"].Equal(decimal.NewFromFloat(20.00)) {
		t.Fatalf("unexpected uncategorized total %s", metric.ByCategory["uncategorized"])
	}

	stored, err := NewRepository(db).Get(context.Background(), "2025-06-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil || stored.TotalOrders != 2 {
		t.Fatalf("snapshot not stored: %+v", stored)
	}
}

func TestRollupDay_usesLocalDayBoundaries(t *testing.T) {
	db := newTestDB(t)
	repo := orders.NewRepository(db)

	// 02:30 UTC on June 2nd is 23:30 on June 1st in Sao Paulo.
	seedOrder(t, repo, 100001, enums.OrderStatusShipped,
		time.Date(2025, 6, 2, 2, 30, 0, 0, time.UTC),
		[]types.OrderItem{item("MLB5726", 1, 10.00)})
	// 02:00 UTC on June 1st belongs to May 31st locally.
	seedOrder(t, repo, 100002, enums.OrderStatusShipped,
		time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC),
		[]types.OrderItem{item("MLB5726", 1, 10.00)})

	svc := newTestService(t, db)
	metric, err := svc.RollupDay(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, saoPaulo))
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if metric == nil || metric.TotalOrders != 1 {
		t.Fatalf("expected exactly the late-evening order, got %+v", metric)
	}
}

func TestRollupDay_emptyDayStoresNothing(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	metric, err := svc.RollupDay(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, saoPaulo))
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if metric != nil {
		t.Fatalf("empty day must not produce a metric: %+v", metric)
	}

	stored, err := NewRepository(db).Get(context.Background(), "2025-06-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored != nil {
		t.Fatalf("empty day must not store a row: %+v", stored)
	}
}

func TestRollupDay_rerunReplacesSnapshot(t *testing.T) {
	db := newTestDB(t)
	repo := orders.NewRepository(db)
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, saoPaulo)

	seedOrder(t, repo, 100001, enums.OrderStatusShipped, day, []types.OrderItem{
		item("MLB5726", 1, 10.00),
	})

	svc := newTestService(t, db)
	ctx := context.Background()
	if _, err := svc.RollupDay(ctx, day); err != nil {
		t.Fatalf("first rollup: %v", err)
	}

	seedOrder(t, repo, 100002, enums.OrderStatusShipped, day, []types.OrderItem{
		item("MLB5726", 1, 30.00),
	})
	if _, err := svc.RollupDay(ctx, day); err != nil {
		t.Fatalf("second rollup: %v", err)
	}

	var count int64
	if err := db.Model(&models.DailyMetric{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single snapshot row, got %d", count)
	}

	stored, err := NewRepository(db).Get(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TotalOrders != 2 || !stored.TotalSales.Equal(decimal.NewFromFloat(40.00)) {
		t.Fatalf("snapshot not replaced: %+v", stored)
	}
}
