package config

import (
	"fmt"

	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the payment database and migrates the schema
func InitDB(config *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.PaymentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	utils.LogInfo("Connected to database %s on %s:%s", config.DBName, config.DBHost, config.DBPort)
	return db, nil
}
