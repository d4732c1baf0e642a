package models

import "time"

// Card transaction statuses, matching the gateway's status codes.
const (
	// CardStatusFailed marks a rejected card.
	CardStatusFailed = 0
	// CardStatusSuccess marks a card credited at its declared value.
	CardStatusSuccess = 1
	// CardStatusWrongValue marks a valid card with a mismatched declared value.
	CardStatusWrongValue = 2
	// CardStatusPending marks a card awaiting the gateway callback.
	CardStatusPending = 99
)

// CardTransaction tracks one card top-up submission through the gateway
// callback. A row transitions from pending to a terminal status at most
// once; coins are credited only on that transition.
type CardTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID string `gorm:"type:text;not null;uniqueIndex"` // Idempotency key shared with the gateway.

	UserID uint64 `gorm:"not null;index"`      // Submitting user.
	User   *User  `gorm:"foreignKey:UserID"`   // Submitting user record.

	Telco  string `gorm:"type:text;not null"` // Telco enum: VIETTEL, VINAPHONE, MOBIFONE.
	Code   string `gorm:"type:text;not null"` // Scratch card code.
	Serial string `gorm:"type:text;not null"` // Scratch card serial.

	DeclaredValue int64 `gorm:"not null"`           // Face value claimed by the user, VND.
	ResolvedValue int64 `gorm:"not null;default:0"` // Value resolved by the gateway, VND.
	CoinsCredited int64 `gorm:"not null;default:0"` // Xu credited after rate conversion.

	Status  int    `gorm:"not null;default:99;index"` // CardStatus* value.
	Message string `gorm:"type:text"`                 // Gateway-reported reason.

	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Submission timestamp.
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime"` // Last update timestamp.
	SettledAt *time.Time // Callback settlement time, if terminal.
}
