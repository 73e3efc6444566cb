package salesmetrics

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
)

var rollupColumns = []string{
	"total_sales", "total_orders", "average_ticket",
	"by_category", "computed_at", "updated_at",
}

// Repository persists daily metric snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, metric *models.DailyMetric) error
	Get(ctx context.Context, date string) (*models.DailyMetric, error)
	ListRange(ctx context.Context, fromDate, toDate string) ([]models.DailyMetric, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a metrics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert writes the snapshot for its date key; re-running a rollup replaces
// the previous numbers.
func (r *repository) Upsert(ctx context.Context, metric *models.DailyMetric) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns(rollupColumns),
		}).
		Create(metric).Error
}

func (r *repository) Get(ctx context.Context, date string) (*models.DailyMetric, error) {
	var metric models.DailyMetric
	if err := r.db.WithContext(ctx).First(&metric, "date = ?", date).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &metric, nil
}

// ListRange returns snapshots between two YYYY-MM-DD keys, inclusive.
func (r *repository) ListRange(ctx context.Context, fromDate, toDate string) ([]models.DailyMetric, error) {
	var rows []models.DailyMetric
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", fromDate, toDate).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}
