package orders

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/types"
)

// syncColumns are the columns the sync engine owns. Operational columns set by
// other flows (bling_id, bling_sync_error, last_scan) are deliberately absent
// so a re-sync never clobbers them.
var syncColumns = []string{
	"ml_order_id", "seller_id", "status", "status_raw", "total_amount",
	"customer", "items", "shipping", "placed_at", "updated_at",
}

// Repository handles order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertFromSync(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByMLOrderID(ctx context.Context, mlOrderID int64) (*models.Order, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	StatusesByIDs(ctx context.Context, ids []string) (map[string]enums.OrderStatus, error)
	TransitionStatus(ctx context.Context, id string, from, to enums.OrderStatus, scan *types.ScanRecord) (bool, error)
	SetBlingSyncError(ctx context.Context, id string, marker string) error
	ListPlacedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
}

// ListQuery narrows order listings for the dashboard.
type ListQuery struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertFromSync merges a synced order. Inserts create the row; conflicts
// update only the sync-owned columns.
func (r *repository) UpsertFromSync(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(syncColumns),
		}).
		Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByMLOrderID(ctx context.Context, mlOrderID int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "ml_order_id = ?", mlOrderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("shipping ->> 'trackingNumber' = ?", trackingNumber).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) StatusesByIDs(ctx context.Context, ids []string) (map[string]enums.OrderStatus, error) {
	statuses := make(map[string]enums.OrderStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	var rows []struct {
		ID     string
		Status enums.OrderStatus
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("id", "status").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		statuses[row.ID] = row.Status
	}
	return statuses, nil
}

// TransitionStatus flips the order status only when the stored status still
// matches `from`. Returns false when another writer got there first.
func (r *repository) TransitionStatus(ctx context.Context, id string, from, to enums.OrderStatus, scan *types.ScanRecord) (bool, error) {
	assign := models.Order{
		Status:    to,
		LastScan:  scan,
		UpdatedAt: time.Now().UTC(),
	}
	columns := []string{"status", "updated_at"}
	if scan != nil {
		columns = append(columns, "last_scan")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Select(columns).
		Updates(assign)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetBlingSyncError persists the passive failure marker. The marker stays
// until an operator clears it; nothing retries off the back of it.
func (r *repository) SetBlingSyncError(ctx context.Context, id string, marker string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("bling_sync_error", marker).Error
}

func (r *repository) ListPlacedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("placed_at >= ? AND placed_at < ?", from, to).
		Order("placed_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Order, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Order("placed_at DESC").
		Limit(limit).
		Offset(query.Offset)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	var rows []models.Order
	err := q.Find(&rows).Error
	return rows, err
}
