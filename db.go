package main

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/store"
)

// openDB connects and, unless db.auto_migrate is off, migrates the schema.
// Migration errors are logged and ignored so a read-only role can still serve.
func openDB(cfg *config.Config, logger *log.Logger) (*gorm.DB, error) {
	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres database: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := store.Migrate(db, logger); err != nil {
			logger.Printf("WARN migration: %v", err)
		}
	}
	return db, nil
}
