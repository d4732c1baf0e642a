package models

import "time"

// Tài/Xỉu choices.
const (
	// ChoiceTai covers dice sums 11 through 18.
	ChoiceTai = "tai"
	// ChoiceXiu covers dice sums 3 through 10.
	ChoiceXiu = "xiu"
)

// MinigameRound records one resolved Tài/Xỉu round.
type MinigameRound struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Betting user.
	User   *User  `gorm:"foreignKey:UserID"` // Betting user record.

	Bet    int64  `gorm:"not null"`           // Xu staked.
	Choice string `gorm:"type:text;not null"` // tai or xiu.

	Die1 int `gorm:"not null"` // First die, 1-6.
	Die2 int `gorm:"not null"` // Second die, 1-6.
	Die3 int `gorm:"not null"` // Third die, 1-6.

	Outcome string `gorm:"type:text;not null"` // tai or xiu, from the dice sum.
	Won     bool   `gorm:"not null"`           // Whether the bet matched the outcome.
	Payout  int64  `gorm:"not null;default:0"` // Xu credited on a win.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Round timestamp.
}
