package integrations

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
)

// credentialColumns are overwritten on every save; the row is keyed by
// provider, so a refresh replaces the token pair in place.
var credentialColumns = []string{
	"access_token", "refresh_token", "expires_in", "scope",
	"external_user_id", "status", "updated_at",
}

// Repository persists integration credentials.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, provider enums.IntegrationProvider) (*models.IntegrationCredential, error)
	Save(ctx context.Context, credential *models.IntegrationCredential) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credential repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, provider enums.IntegrationProvider) (*models.IntegrationCredential, error) {
	var credential models.IntegrationCredential
	err := r.db.WithContext(ctx).
		First(&credential, "provider = ?", provider).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &credential, nil
}

func (r *repository) Save(ctx context.Context, credential *models.IntegrationCredential) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}},
			DoUpdates: clause.AssignmentColumns(credentialColumns),
		}).
		Create(credential).Error
}
