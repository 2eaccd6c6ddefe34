// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations, and default settings seeding.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// OpenSQLite opens (or creates) the SQLite database and applies PRAGMAs.
// WAL keeps concurrent readers off the writer's back; the 30s busy timeout
// covers worst-case workbook exports holding read transactions.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=30000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all persisted entities.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Ingredient{},
		&domain.Purchase{},
		&domain.Product{},
		&domain.RecipeLine{},
		&domain.OrderStepGroup{},
		&domain.OrderStepItem{},
		&domain.Customer{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.OrderEvent{},
		&domain.Setting{},
		&domain.KeywordRule{},
		&domain.BugReport{},
		&domain.RequestLog{},
	)
}

// defaultSettings is the seed applied on first run. Values are editable at
// runtime through the settings table and re-read on every dispatch.
var defaultSettings = map[string]string{
	domain.SettingCompanyName:     "Nucleo Lanches",
	domain.SettingBotPauseMinutes: "15",
	domain.SettingDefaultVoice:    "nova",
	domain.SettingHandoffMessage:  "Certo! Um atendente vai falar com você em instantes.",
	domain.SettingPauseMessage:    "Um atendente assumiu a conversa. O assistente volta em [TEMPO] minutos.",
}

// SeedDefaultSettings inserts missing default settings without touching
// values an operator already changed.
func SeedDefaultSettings(db *gorm.DB) error {
	for k, v := range defaultSettings {
		var count int64
		if err := db.Model(&domain.Setting{}).Where("key = ?", k).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&domain.Setting{Key: k, Value: v, UpdatedAt: time.Now().UTC()}).Error; err != nil {
			return err
		}
	}
	return nil
}
