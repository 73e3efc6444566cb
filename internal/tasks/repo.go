package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
)

// Repository handles task persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, query ListQuery) ([]models.Task, error)
	Complete(ctx context.Context, id, by uuid.UUID, attachmentURL string, at time.Time) error
	Verify(ctx context.Context, id, by uuid.UUID, at time.Time) error
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ListQuery narrows task listings for the dashboard.
type ListQuery struct {
	Status     *enums.TaskStatus
	AssigneeID *uuid.UUID
	Limit      int
	Offset     int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a task repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Task, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Order("due_at ASC").
		Limit(limit).
		Offset(query.Offset)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *query.AssigneeID)
	}
	var rows []models.Task
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) Complete(ctx context.Context, id, by uuid.UUID, attachmentURL string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.TaskStatusCompleted,
			"completed_at":   at,
			"completed_by":   by,
			"attachment_url": attachmentURL,
			"updated_at":     at,
		}).Error
}

func (r *repository) Verify(ctx context.Context, id, by uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verified_at": at,
			"verified_by": by,
			"updated_at":  at,
		}).Error
}

// MarkOverdue flips every pending task whose due date has passed and returns
// how many rows changed.
func (r *repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("status = ? AND due_at < ?", enums.TaskStatusPending, now).
		Updates(map[string]any{
			"status":     enums.TaskStatusOverdue,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
