package ordersync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
)

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) ValidAccessToken(ctx context.Context) (string, error) {
	return f.token, f.err
}

type fakeMarketplace struct {
	seller     *meli.Seller
	sellerErr  error
	search     *meli.SearchResult
	searchErr  error
	lastParams meli.SearchParams
	details    map[int64]*meli.Order
	detailErrs map[int64]error
}

func (f *fakeMarketplace) WhoAmI(ctx context.Context, accessToken string) (*meli.Seller, error) {
	if f.sellerErr != nil {
		return nil, f.sellerErr
	}
	return f.seller, nil
}

func (f *fakeMarketplace) SearchOrders(ctx context.Context, accessToken string, params meli.SearchParams) (*meli.SearchResult, error) {
	f.lastParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search, nil
}

func (f *fakeMarketplace) GetOrder(ctx context.Context, accessToken string, orderID int64) (*meli.Order, error) {
	if err, ok := f.detailErrs[orderID]; ok {
		return nil, err
	}
	detail, ok := f.details[orderID]
	if !ok {
		return nil, fmt.Errorf("no detail for %d", orderID)
	}
	return detail, nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

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
		`CREATE TABLE outbox_events (
			id text PRIMARY KEY,
			event_type text NOT NULL,
			aggregate_type text NOT NULL,
			aggregate_id text NOT NULL,
			payload text NOT NULL,
			created_at datetime,
			published_at datetime,
			attempt_count integer NOT NULL DEFAULT 0,
			last_error text
		)`,
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func mlOrder(id int64, status string) *meli.Order {
	order := &meli.Order{
		ID:          id,
		Status:      status,
		DateCreated: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromFloat(149.90),
	}
	order.Seller.ID = 42
	order.Buyer = meli.Buyer{FirstName: "Ana", LastName: "Silva", Email: "ana@example.com"}
	item := meli.OrderItem{Quantity: 1, UnitPrice: decimal.NewFromFloat(149.90)}
	item.Item.ID = "MLB123"
	item.Item.Title = "Cabo USB"
	item.Item.CategoryID = "MLB5726"
	order.OrderItems = []meli.OrderItem{item}
	order.Shipping = &meli.OrderShipping{ID: 555, TrackingNumber: fmt.Sprintf("TRK-%d", id)}
	return order
}

func newTestEngine(t *testing.T, db *gorm.DB, marketplace *fakeMarketplace) *Engine {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	repo := orders.NewRepository(db)
	svc := outbox.NewService(outbox.NewRepository(db), nil)

	engine, err := NewEngine(EngineParams{
		Logger:      logg,
		Tokens:      &fakeTokens{token: "token-1"},
		Marketplace: marketplace,
		DB:          &gormTxRunner{db: db},
		Orders:      repo,
		Outbox:      svc,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestRun_partialDetailFailureReducesBatch(t *testing.T) {
	db := newTestDB(t)
	marketplace := &fakeMarketplace{
		seller: &meli.Seller{ID: 42},
		search: &meli.SearchResult{Results: []meli.OrderSummary{
			{ID: 100001, Status: "paid"},
			{ID: 100002, Status: "paid"},
			{ID: 100003, Status: "paid"},
		}},
		details: map[int64]*meli.Order{
			100001: mlOrder(100001, "paid"),
			100003: mlOrder(100003, "shipped"),
		},
		detailErrs: map[int64]error{
			100002: errors.New("upstream 500"),
		},
	}

	engine := newTestEngine(t, db, marketplace)
	count, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 merged orders, got %d", count)
	}

	var stored int64
	if err := db.Model(&models.Order{}).Count(&stored).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if stored != 2 {
		t.Fatalf("expected 2 rows, got %d", stored)
	}
}

func TestRun_sellerLookupFailureAborts(t *testing.T) {
	db := newTestDB(t)
	marketplace := &fakeMarketplace{sellerErr: errors.New("401")}

	engine := newTestEngine(t, db, marketplace)
	_, err := engine.Run(context.Background())
	if !errors.Is(err, ErrSellerLookup) {
		t.Fatalf("expected ErrSellerLookup, got %v", err)
	}
}

func TestRun_searchUsesTrailingWindowAndLimit(t *testing.T) {
	db := newTestDB(t)
	marketplace := &fakeMarketplace{
		seller: &meli.Seller{ID: 42},
		search: &meli.SearchResult{},
	}

	engine := newTestEngine(t, db, marketplace)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	count, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 0 {
		t.Fatalf("empty search must report 0 merged orders, got %d", count)
	}

	var stored int64
	if err := db.Model(&models.Order{}).Count(&stored).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if stored != 0 {
		t.Fatalf("empty search must not write rows, got %d", stored)
	}

	params := marketplace.lastParams
	if params.SellerID != 42 {
		t.Fatalf("unexpected seller %d", params.SellerID)
	}
	if params.Limit != defaultPageLimit {
		t.Fatalf("unexpected limit %d", params.Limit)
	}
	if !params.UpdatedTo.Equal(now) || !params.UpdatedFrom.Equal(now.Add(-defaultWindow)) {
		t.Fatalf("unexpected window %s..%s", params.UpdatedFrom, params.UpdatedTo)
	}
}

func TestRun_statusChangeEmitsOutboxEvent(t *testing.T) {
	db := newTestDB(t)
	repo := orders.NewRepository(db)
	ctx := context.Background()

	seeded := MapOrder(mlOrder(100001, "paid"))
	if err := repo.UpsertFromSync(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	marketplace := &fakeMarketplace{
		seller: &meli.Seller{ID: 42},
		search: &meli.SearchResult{Results: []meli.OrderSummary{{ID: 100001, Status: "ready_to_ship"}}},
		details: map[int64]*meli.Order{
			100001: mlOrder(100001, "ready_to_ship"),
		},
	}

	engine := newTestEngine(t, db, marketplace)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	var rows []models.OutboxEvent
	if err := db.Where("event_type = ?", enums.EventOrderStatusChanged).Find(&rows).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 status change event, got %d", len(rows))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data outbox.OrderStatusChangedData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.FromStatus != enums.OrderStatusPending.String() || data.ToStatus != enums.OrderStatusReadyToShip.String() {
		t.Fatalf("unexpected transition %s -> %s", data.FromStatus, data.ToStatus)
	}

	got, err := repo.FindByID(ctx, "100001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != enums.OrderStatusReadyToShip {
		t.Fatalf("status not updated: %s", got.Status)
	}
}

func TestRun_resyncSameOrderIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	marketplace := &fakeMarketplace{
		seller:  &meli.Seller{ID: 42},
		search:  &meli.SearchResult{Results: []meli.OrderSummary{{ID: 100001, Status: "paid"}}},
		details: map[int64]*meli.Order{100001: mlOrder(100001, "paid")},
	}

	engine := newTestEngine(t, db, marketplace)
	for i := 0; i < 2; i++ {
		if _, err := engine.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var stored int64
	if err := db.Model(&models.Order{}).Count(&stored).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if stored != 1 {
		t.Fatalf("expected a single document, got %d", stored)
	}

	var changes int64
	if err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderStatusChanged).
		Count(&changes).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if changes != 0 {
		t.Fatalf("same-status re-sync must not emit status changes, got %d", changes)
	}
}
