package models

import "time"

// User roles.
const (
	// RoleUser is a regular platform user.
	RoleUser = "user"
	// RoleBanned marks a user locked out of coin-earning operations.
	RoleBanned = "banned"
)

// User represents a platform user account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text"`                      // Optional contact email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Coins int64  `gorm:"not null;default:0"`               // Xu balance, never negative.
	Role  string `gorm:"type:text;not null;default:user"`  // user or banned.
	IP    string `gorm:"type:text"`                        // Last seen client IP.

	ReferralCode string  `gorm:"type:text;not null;uniqueIndex"` // Code shared with invitees.
	ReferredByID *uint64 `gorm:"index"`                          // Referring user, if any.
	ReferredBy   *User   `gorm:"foreignKey:ReferredByID"`        // Referring user record.

	CheckinStreak int        `gorm:"not null;default:0"` // Consecutive check-in days.
	LastCheckinAt *time.Time // Last successful check-in time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
