package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bidforecast/server/internal/history"
	"bidforecast/server/internal/models"
)

// Database is the sqlite-backed listing history store
type Database struct {
	db *gorm.DB
}

// NewDatabase opens (and creates if needed) the sqlite file at dbPath
func NewDatabase(dbPath string) (*Database, error) {
	if dbPath != ":memory:" && !isURI(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite3", DSN: dbPath}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; one connection keeps transactions from
	// failing with "database is locked" and queues them instead.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// NewTestDB opens a private in-memory database with the schema applied
func NewTestDB() (*Database, error) {
	d, err := NewDatabase(fmt.Sprintf("file:history-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}
	if err := d.RunMigrations(); err != nil {
		return nil, err
	}
	return d, nil
}

func isURI(path string) bool {
	return len(path) > 5 && path[:5] == "file:"
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers within the context deadline
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Get returns the stored history of one listing
func (d *Database) Get(ctx context.Context, listingID string) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	err := d.db.WithContext(ctx).Where("listing_id = ?", listingID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.StoreUnavailable("failed to read listing history", err)
	}
	return &entry, nil
}

// Update reads, modifies and writes one listing's history inside a transaction
func (d *Database) Update(ctx context.Context, listingID string, fn history.UpdateFunc) (*models.HistoryEntry, error) {
	var (
		result *models.HistoryEntry
		fnErr  error
	)

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current *models.HistoryEntry
		var entry models.HistoryEntry
		err := tx.Where("listing_id = ?", listingID).Take(&entry).Error
		switch {
		case err == nil:
			current = &entry
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		if err := UpsertHistory(tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})

	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, models.StoreUnavailable("failed to update listing history", err)
	}
	return result, nil
}

// UpsertHistory inserts an entry or overwrites the stored row with the same listing ID
func UpsertHistory(tx *gorm.DB, entry *models.HistoryEntry) error {
	entry.UpdatedAt = time.Now()
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"main_category", "round1_price", "round2_price", "round3_price", "round4_price", "round5_price", "first_seen_at", "last_current_round", "updated_at"}),
	}).Create(entry).Error
}

// CountHistory returns the number of listings with stored history
func (d *Database) CountHistory(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.HistoryEntry{}).Count(&count).Error
	return count, err
}
