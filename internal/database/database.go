package database

import (
	"fmt"
	"log"

	"sympep-tracker/internal/config"
	"sympep-tracker/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the database selected by the configuration and keeps the
// handle for GetDB.
func Connect(cfg *config.Config) error {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = OpenPostgres(cfg.GetDSN())
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.Database.SQLitePath)
	default:
		err = fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return err
	}

	DB = db
	log.Printf("Database connection established successfully (%s)", cfg.Database.Driver)
	return nil
}

// OpenPostgres connects to PostgreSQL
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database. SQLite allows a single writer, so the
// pool is capped at one connection; every transaction then owns the database
// for its duration.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// AutoMigrate runs automatic migrations for all models on the global handle
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations for all models
func Migrate(db *gorm.DB) error {
	proposalModels := []interface{}{
		&models.Proposal{},
		&models.Champion{},
		&models.Discussion{},
		&models.StatusChange{},
	}

	for _, model := range proposalModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	registryModels := []interface{}{
		&models.NumberCounter{},
		&models.RegistryNotification{},
	}

	for _, model := range registryModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
