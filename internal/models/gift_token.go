package models

import "time"

// GiftToken is a redeemable coin code ("giftcode") with a global use cap.
type GiftToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code      string `gorm:"type:text;not null;uniqueIndex"` // Redemption code.
	CoinValue int64  `gorm:"not null"`                       // Xu credited per redemption.

	MaxUses   int64 `gorm:"not null;default:1"` // Redemption cap.
	UsedCount int64 `gorm:"not null;default:0"` // Redemptions so far, never exceeds MaxUses.

	ExpiresAt *time.Time // Expiry, nil = never.
	IsEnabled bool       `gorm:"not null;default:true"` // Whether the token can be redeemed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// GiftTokenUsage records one redemption. The unique (token, user) index
// limits each user to a single claim per token.
type GiftTokenUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TokenID uint64 `gorm:"not null;uniqueIndex:idx_gift_token_usages_token_user"` // Redeemed token.
	UserID  uint64 `gorm:"not null;uniqueIndex:idx_gift_token_usages_token_user"` // Redeeming user.

	Coins int64 `gorm:"not null"` // Xu credited by this redemption.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Redemption timestamp.
}
