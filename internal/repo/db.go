// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, tracing instrumentation, and
// schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// sqlitePragmas are applied to every pooled connection through the DSN.
// Setting them with Exec would only affect whichever connection ran it.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// Open connects to the configured driver ("sqlite" or "postgres").
// For sqlite, dsn is a file path.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database with WAL, FKs, and a busy timeout.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	dsn := path + "?_pragma=" + strings.Join(sqlitePragmas, "&_pragma=")
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres connects to PostgreSQL using a libpq-style DSN or URL.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// Instrument attaches the OpenTelemetry tracing plugin so every query
// becomes a child span of the request or job that issued it.
func Instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// activeSlotIndex serializes bookings per (provider, hour) among active rows.
// Both SQLite and PostgreSQL support partial indexes with this syntax.
const activeSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_appointments_active_slot
	ON appointments (provider_id, date) WHERE canceled_at IS NULL`

// AutoMigrate creates or updates all tables and the active-slot index.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.File{},
		&domain.User{},
		&domain.Appointment{},
		&domain.Notification{},
		&domain.Job{},
		&domain.Idempotency{},
	); err != nil {
		return err
	}
	return db.Exec(activeSlotIndex).Error
}
