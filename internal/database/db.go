package database

import (
	"fmt"
	"log"

	"supplychain/internal/config"
	"supplychain/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewConnection opens the configured database using GORM and migrates the schema
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate creates or updates the planning and costing tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Partner{},
		&model.Product{},
		&model.Order{},
		&model.OrderLine{},
		&model.ReorderPolicy{},
		&model.MRPRun{},
		&model.MRPRequirement{},
		&model.LandedCostHeader{},
		&model.LandedCostLine{},
		&model.LandedCostAllocation{},
		&model.ProductCostChange{},
		&model.AuditLog{},
	)
}
