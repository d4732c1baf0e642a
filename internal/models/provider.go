package models

import (
	"time"

	"gorm.io/datatypes"
)

// Provider is a configured third-party link-shortening service.
type Provider struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name   string `gorm:"type:text;not null;uniqueIndex"` // Display name.
	APIURL string `gorm:"type:text;not null"`             // Shorten endpoint.
	APIKey string `gorm:"type:text;not null"`             // API token.

	RatePer1000 int64          `gorm:"not null;default:0"`    // Payout per 1000 views, informational.
	Extra       datatypes.JSON `gorm:"type:jsonb"`            // Provider-specific parameters.
	IsEnabled   bool           `gorm:"not null;default:true"` // Whether new missions may use it.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
