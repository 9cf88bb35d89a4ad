// Package store opens the Postgres database that keeps runs and their records.
package store

import (
	"errors"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BlakeDonn/inven/models"
)

var ErrNoDSN = errors.New("db dsn not set (INVEN_DB_DSN or DB_DSN)")

// Open connects to dsn. gorm's own logger only reports errors.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Error)})
}

// Migrate creates or updates the runs and records tables. Runs go first so the
// records foreign key can be applied.
func Migrate(db *gorm.DB, l *log.Logger) error {
	if l == nil {
		l = log.Default()
	}
	if err := db.AutoMigrate(&models.Run{}); err != nil {
		l.Printf("ERROR migration runs: %v", err)
		return err
	}
	if err := db.AutoMigrate(&models.Record{}); err != nil {
		l.Printf("ERROR migration records: %v", err)
		return err
	}
	return nil
}
