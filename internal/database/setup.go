package database

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
)

// Setup opens the postgres pool, applies any pending schema migrations and
// returns the wrapped handle the repositories use. Runs once at startup,
// before the review queue takes traffic.
func Setup(logger ectologger.Logger, cfg ConnectConfig) (DB, error) {
	pool, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(pool.DB, &postgres.Config{DatabaseName: cfg.DatabaseName})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := NewMigrationService(logger, &MigrationConfig{
		MigrationFolderPath: cfg.MigrationFolderPath,
		Version:             cfg.MigrationVersion,
		Force:               cfg.MigrationForce,
		AutoRollback:        cfg.MigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		pool.Close()
		return nil, err
	}

	return NewDatabaseInstance(pool, logger), nil
}
