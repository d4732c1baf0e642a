package models

import "time"

// CheckIn records one daily check-in. The unique (user, day) index caps
// check-ins at one per local calendar day.
type CheckIn struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex:idx_check_ins_user_day"`           // Checking-in user.
	Day    string `gorm:"type:text;not null;uniqueIndex:idx_check_ins_user_day"` // Local calendar day, YYYY-MM-DD.

	Coins  int64 `gorm:"not null"` // Xu credited.
	Streak int   `gorm:"not null"` // Streak length after this check-in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Check-in timestamp.
}
