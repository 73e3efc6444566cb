package models

import (
	"time"

	"github.com/selleropsapp/sellerops-backend/pkg/enums"
)

// IntegrationCredential holds the OAuth token pair for an external provider.
// One row per provider; refreshes overwrite it in place.
type IntegrationCredential struct {
	Provider     enums.IntegrationProvider `gorm:"column:provider;primaryKey"`
	AccessToken  string                    `gorm:"column:access_token;not null"`
	RefreshToken string                    `gorm:"column:refresh_token;not null"`
	ExpiresIn    int                       `gorm:"column:expires_in;not null"`
	Scope        *string                   `gorm:"column:scope"`
	ExternalUser *int64                    `gorm:"column:external_user_id"`
	Status       enums.IntegrationStatus   `gorm:"column:status;not null;default:'active'"`
	CreatedAt    time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                 `gorm:"column:updated_at"`
}

func (IntegrationCredential) TableName() string { return "integration_credentials" }

// ExpiresAt derives the absolute expiry from UpdatedAt plus the token TTL.
func (c IntegrationCredential) ExpiresAt() time.Time {
	return c.UpdatedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
}
