package models

import "time"

// Mission represents a coin-earning task behind an affiliate-shortened link.
type Mission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null"` // Display name.
	Description string `gorm:"type:text"`          // Instructions shown to users.

	ProviderID *uint64   `gorm:"index"`                  // Shortener provider used for this mission.
	Provider   *Provider `gorm:"foreignKey:ProviderID"`  // Shortener provider record.
	TargetURL  string    `gorm:"type:text;not null"`     // Destination URL before shortening.
	ShortURL   string    `gorm:"type:text"`              // Shortened URL users are sent through.

	Reward int64 `gorm:"not null"` // Xu credited on verified completion.

	RequiresCode bool   `gorm:"not null;default:false"` // Whether verify needs a confirmation code.
	Code         string `gorm:"type:text"`              // Expected confirmation code, exact match.
	PublicCode   bool   `gorm:"not null;default:false"` // Whether the code is pre-shared on the mission page.

	MaxUses int64 `gorm:"not null;default:0"` // Global completion cap, 0 = unlimited.
	Uses    int64 `gorm:"not null;default:0"` // Global completion counter.

	IsActive bool `gorm:"not null;default:true"` // Whether the mission is listed and verifiable.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// MissionLock records a completed mission for one user within one local
// calendar day. The composite unique index is the exactly-once guard for
// reward crediting.
type MissionLock struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64 `gorm:"not null;uniqueIndex:idx_mission_locks_user_mission_day"` // Completing user.
	MissionID uint64 `gorm:"not null;uniqueIndex:idx_mission_locks_user_mission_day"` // Completed mission.
	Day       string `gorm:"type:text;not null;uniqueIndex:idx_mission_locks_user_mission_day"` // Local calendar day, YYYY-MM-DD.

	IP string `gorm:"type:text"` // Client IP at completion time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Completion timestamp.
}

// MissionStart is the anti-replay marker created when a user starts a
// mission. Verify requires an unexpired marker; the marker itself grants
// nothing.
type MissionStart struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64 `gorm:"not null;uniqueIndex:idx_mission_starts_user_mission"` // Starting user.
	MissionID uint64 `gorm:"not null;uniqueIndex:idx_mission_starts_user_mission"` // Started mission.
	IP        string `gorm:"type:text"`                                           // Client IP at start time.

	StartedAt time.Time `gorm:"not null"` // Start or refresh time.
}
