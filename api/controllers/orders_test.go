package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

type fakeOrdersRepo struct {
	orders.Repository
	list     []models.Order
	gotQuery orders.ListQuery
}

func (f *fakeOrdersRepo) List(_ context.Context, query orders.ListQuery) ([]models.Order, error) {
	f.gotQuery = query
	return f.list, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func TestOrderList_defaultsAndViewShape(t *testing.T) {
	repo := &fakeOrdersRepo{list: []models.Order{{
		ID:          "2000001",
		MLOrderID:   2000001,
		Status:      enums.OrderStatusPending,
		StatusRaw:   "paid",
		TotalAmount: decimal.RequireFromString("120.50"),
		PlacedAt:    time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}}}
	handler := OrderList(repo, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if repo.gotQuery.Limit != 50 || repo.gotQuery.Offset != 0 || repo.gotQuery.Status != nil {
		t.Fatalf("unexpected default query: %+v", repo.gotQuery)
	}

	var envelope struct {
		Data []orderView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != "2000001" || envelope.Data[0].Status != "pending" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestOrderList_statusFilterParsed(t *testing.T) {
	repo := &fakeOrdersRepo{}
	handler := OrderList(repo, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=ready_to_ship&limit=10&offset=20", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if repo.gotQuery.Status == nil || *repo.gotQuery.Status != enums.OrderStatusReadyToShip {
		t.Fatalf("status filter not applied: %+v", repo.gotQuery)
	}
	if repo.gotQuery.Limit != 10 || repo.gotQuery.Offset != 20 {
		t.Fatalf("paging not applied: %+v", repo.gotQuery)
	}
}

func TestOrderList_unknownStatusRejected(t *testing.T) {
	handler := OrderList(&fakeOrdersRepo{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=bogus", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
