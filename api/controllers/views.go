package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/types"
)

// userView is the operator account shape returned by the API. The password
// hash never leaves the service layer.
type userView struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newUserView(user *models.User) userView {
	return userView{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func newUserViews(users []models.User) []userView {
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	return views
}

type taskView struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	AssigneeID    *uuid.UUID `json:"assigneeId,omitempty"`
	DueAt         time.Time  `json:"dueAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CompletedBy   *uuid.UUID `json:"completedBy,omitempty"`
	AttachmentURL *string    `json:"attachmentUrl,omitempty"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy    *uuid.UUID `json:"verifiedBy,omitempty"`
	CreatedBy     uuid.UUID  `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func newTaskView(task *models.Task) taskView {
	return taskView{
		ID:            task.ID,
		Title:         task.Title,
		Description:   task.Description,
		Type:          string(task.Type),
		Status:        string(task.Status),
		AssigneeID:    task.AssigneeID,
		DueAt:         task.DueAt,
		CompletedAt:   task.CompletedAt,
		CompletedBy:   task.CompletedBy,
		AttachmentURL: task.AttachmentURL,
		VerifiedAt:    task.VerifiedAt,
		VerifiedBy:    task.VerifiedBy,
		CreatedBy:     task.CreatedBy,
		CreatedAt:     task.CreatedAt,
	}
}

func newTaskViews(tasks []models.Task) []taskView {
	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, newTaskView(&tasks[i]))
	}
	return views
}

type orderView struct {
	ID             string            `json:"id"`
	MLOrderID      int64             `json:"mlOrderId"`
	Status         string            `json:"status"`
	StatusRaw      string            `json:"statusRaw"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	Customer       types.Customer    `json:"customer"`
	Items          []types.OrderItem `json:"items"`
	Shipping       types.Shipping    `json:"shipping"`
	LastScan       *types.ScanRecord `json:"lastScan,omitempty"`
	BlingID        *string           `json:"blingId,omitempty"`
	BlingSyncError *string           `json:"blingSyncError,omitempty"`
	PlacedAt       time.Time         `json:"placedAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func newOrderView(order *models.Order) orderView {
	return orderView{
		ID:             order.ID,
		MLOrderID:      order.MLOrderID,
		Status:         string(order.Status),
		StatusRaw:      order.StatusRaw,
		TotalAmount:    order.TotalAmount,
		Customer:       order.Customer,
		Items:          order.Items,
		Shipping:       order.Shipping,
		LastScan:       order.LastScan,
		BlingID:        order.BlingID,
		BlingSyncError: order.BlingSyncError,
		PlacedAt:       order.PlacedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

func newOrderViews(orders []models.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i]))
	}
	return views
}

type metricView struct {
	Date          string                     `json:"date"`
	TotalSales    decimal.Decimal            `json:"totalSales"`
	TotalOrders   int                        `json:"totalOrders"`
	AverageTicket decimal.Decimal            `json:"averageTicket"`
	ByCategory    map[string]decimal.Decimal `json:"byCategory"`
	ComputedAt    time.Time                  `json:"computedAt"`
}

func newMetricView(metric *models.DailyMetric) metricView {
	return metricView{
		Date:          metric.Date,
		TotalSales:    metric.TotalSales,
		TotalOrders:   metric.TotalOrders,
		AverageTicket: metric.AverageTicket,
		ByCategory:    metric.ByCategory,
		ComputedAt:    metric.ComputedAt,
	}
}

func newMetricViews(metrics []models.DailyMetric) []metricView {
	views := make([]metricView, 0, len(metrics))
	for i := range metrics {
		views = append(views, newMetricView(&metrics[i]))
	}
	return views
}
