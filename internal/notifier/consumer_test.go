package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/bling"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
)

type blingCall struct {
	orderID  string
	situacao string
}

type fakeBling struct {
	configured bool
	err        error
	calls      []blingCall
}

func (f *fakeBling) Configured() bool {
	return f.configured
}

func (f *fakeBling) UpdateOrderStatus(ctx context.Context, blingOrderID, situacao string) error {
	if !f.configured {
		return bling.ErrNotConfigured
	}
	f.calls = append(f.calls, blingCall{orderID: blingOrderID, situacao: situacao})
	return f.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	createSQL := `CREATE TABLE orders (
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
	)`
	if err := conn.Exec(createSQL).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn
}

func seedOrder(t *testing.T, repo orders.Repository, id string, mlOrderID int64, blingID *string) {
	t.Helper()
	err := repo.UpsertFromSync(context.Background(), &models.Order{
		ID:          id,
		MLOrderID:   mlOrderID,
		SellerID:    42,
		Status:      enums.OrderStatusReadyToShip,
		StatusRaw:   "ready_to_ship",
		TotalAmount: decimal.NewFromFloat(149.90),
		BlingID:     blingID,
		PlacedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func newTestConsumer(t *testing.T, repo orders.Repository, client *fakeBling) *Consumer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	consumer, err := NewConsumer(ConsumerParams{Logger: logg, Orders: repo, Bling: client})
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return consumer
}

func statusChangeEnvelope(t *testing.T, orderID string, mlOrderID int64, from, to enums.OrderStatus) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(outbox.OrderStatusChangedData{
		OrderID:    orderID,
		MLOrderID:  mlOrderID,
		FromStatus: from.String(),
		ToStatus:   to.String(),
	})
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "11111111-1111-1111-1111-111111111111",
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Data:       data,
	}
}

func TestProcess_readyToShipPushesEmAndamento(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	blingID := "bling-789"
	seedOrder(t, repo, "100001", 100001, &blingID)
	client := &fakeBling{configured: true}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "100001", 100001, enums.OrderStatusPending, enums.OrderStatusReadyToShip)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(client.calls) != 1 {
		t.Fatalf("expected 1 bling call, got %d", len(client.calls))
	}
	if client.calls[0].orderID != "bling-789" || client.calls[0].situacao != "Em andamento" {
		t.Fatalf("unexpected call %+v", client.calls[0])
	}
}

func TestProcess_shippedPushesAtendidoWithOrderIDFallback(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	seedOrder(t, repo, "100002", 100002, nil)
	client := &fakeBling{configured: true}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "100002", 100002, enums.OrderStatusPending, enums.OrderStatusShipped)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(client.calls) != 1 {
		t.Fatalf("expected 1 bling call, got %d", len(client.calls))
	}
	if client.calls[0].orderID != "100002" || client.calls[0].situacao != "Atendido" {
		t.Fatalf("unexpected call %+v", client.calls[0])
	}
}

func TestProcess_nonPendingOriginIsIgnored(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	seedOrder(t, repo, "100003", 100003, nil)
	client := &fakeBling{configured: true}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "100003", 100003, enums.OrderStatusReadyToShip, enums.OrderStatusShipped)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(client.calls) != 0 {
		t.Fatalf("expected no bling calls, got %d", len(client.calls))
	}
}

func TestProcess_failureLeavesMarkerAndAcks(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	seedOrder(t, repo, "100004", 100004, nil)
	client := &fakeBling{configured: true, err: errors.New("bling erros: [{\"erro\":{\"cod\":14}}]")}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "100004", 100004, enums.OrderStatusPending, enums.OrderStatusReadyToShip)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("bling failure must not propagate: %v", err)
	}

	got, err := repo.FindByID(context.Background(), "100004")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.BlingSyncError == nil || *got.BlingSyncError == "" {
		t.Fatal("expected bling sync error marker")
	}
}

func TestProcess_successKeepsStaleMarker(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	seedOrder(t, repo, "100005", 100005, nil)
	if err := repo.SetBlingSyncError(context.Background(), "100005", "old failure"); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	client := &fakeBling{configured: true}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "100005", 100005, enums.OrderStatusPending, enums.OrderStatusShipped)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := repo.FindByID(context.Background(), "100005")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.BlingSyncError == nil || *got.BlingSyncError != "old failure" {
		t.Fatalf("marker must stay until an operator clears it: %v", got.BlingSyncError)
	}
}

func TestProcess_notConfiguredSkipsWithoutMarker(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	seedOrder(t, repo, "100006", 100006, nil)
	client := &fakeBling{configured: false}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "100006", 100006, enums.OrderStatusPending, enums.OrderStatusReadyToShip)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := repo.FindByID(context.Background(), "100006")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.BlingSyncError != nil {
		t.Fatalf("skip must not leave a marker: %v", *got.BlingSyncError)
	}
}

func TestProcess_syncedEventIsIgnored(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	client := &fakeBling{configured: true}
	consumer := newTestConsumer(t, repo, client)

	data, _ := json.Marshal(outbox.OrderSyncedData{OrderID: "100007", MLOrderID: 100007, Status: "pending", IsNew: true})
	envelope := outbox.PayloadEnvelope{Version: 1, EventID: "22222222-2222-2222-2222-222222222222", Data: data}

	if err := consumer.Process(context.Background(), enums.EventOrderSynced, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no bling calls, got %d", len(client.calls))
	}
}

func TestProcess_unknownOrderIsDropped(t *testing.T) {
	repo := orders.NewRepository(newTestDB(t))
	client := &fakeBling{configured: true}
	consumer := newTestConsumer(t, repo, client)

	envelope := statusChangeEnvelope(t, "999999", 999999, enums.OrderStatusPending, enums.OrderStatusShipped)
	if err := consumer.Process(context.Background(), enums.EventOrderStatusChanged, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no bling calls, got %d", len(client.calls))
	}
}

func TestMapBlingStatus(t *testing.T) {
	cases := []struct {
		status enums.OrderStatus
		want   string
	}{
		{enums.OrderStatusReadyToShip, "Em andamento"},
		{enums.OrderStatusShipped, "Atendido"},
		{enums.OrderStatusPending, "Em aberto"},
		{enums.OrderStatusCancelled, "Em aberto"},
	}
	for _, tc := range cases {
		if got := MapBlingStatus(tc.status); got != tc.want {
			t.Errorf("MapBlingStatus(%s) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
