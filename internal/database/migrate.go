package database

import (
	"fmt"

	"storefront/internal/model"
	"storefront/pkg/log"
)

// AutoMigrate runs GORM auto-migration for all storefront models
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&model.User{},
		&model.Brand{},
		&model.Category{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Order{},
		&model.OrderItem{},
		&model.Refund{},
		&model.ChatMessage{},
		&model.Subscriber{},
	)
	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	log.Info("Database migration completed")
	return nil
}
