package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

// Migrate creates or updates the schema for all platform tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Provider{},
		&models.Mission{},
		&models.MissionStart{},
		&models.MissionLock{},
		&models.CardTransaction{},
		&models.GiftToken{},
		&models.GiftTokenUsage{},
		&models.Account{},
		&models.CheckIn{},
		&models.MinigameRound{},
		&models.CoinLedger{},
		&models.Setting{},
	)
}
