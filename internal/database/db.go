package database

import (
	"fmt"

	"sabitax/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Partial unique indexes back the lifecycle invariants even if two processes race.
var lifecycleIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_tax_filings_active
		ON tax_filings (user_id, tax_type, tax_year)
		WHERE status IN ('submitted', 'accepted')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_tin_applications_open
		ON tin_applications (user_id)
		WHERE status IN ('submitted', 'processing')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_tin_applications_verified
		ON tin_applications (user_id)
		WHERE status = 'verified'`,
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, logger zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Transactions are owned by the ledger service but migrated here for local setups.
	err = db.AutoMigrate(
		&model.Transaction{},
		&model.TaxFiling{},
		&model.TinApplication{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	for _, stmt := range lifecycleIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to create lifecycle index: %w", err)
		}
	}

	return db, nil
}
