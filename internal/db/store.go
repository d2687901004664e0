// Package db provides GORM-based transcript persistence for nova.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver with FTS5 support
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store represents the database connection used for conversation transcripts.
type Store struct {
	DB     *gorm.DB
	sqlDB  *sql.DB
	driver string
}

// Config holds database configuration.
type Config struct {
	Driver   string          // "sqlite" (default) or "postgres"
	Path     string          // Path to SQLite database file
	DSN      string          // Postgres connection string
	MaxConns int             // Maximum number of open connections (default: 4)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
}

// NewStore opens the database, runs migrations, and tunes the connection.
// For SQLite, WAL mode and foreign keys are enabled for concurrent reads.
// SQLite builds need the fts5 build tag or the search migration fails.
func NewStore(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	logLevel := cfg.LogLevel
	if logLevel == 0 {
		logLevel = logger.Silent
	}

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// PrepareStmt enables prepared statement caching for performance
		PrepareStmt: true,
	}

	var (
		db    *gorm.DB
		sqlDB *sql.DB
		err   error
	)

	switch driver {
	case DriverSQLite:
		// Open raw connection with mattn/go-sqlite3 (has FTS5 support),
		// foreign keys enabled in the DSN
		sqlDB, err = sql.Open("sqlite3", cfg.Path+"?_foreign_keys=ON")
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}

		db, err = gorm.Open(sqlite.Dialector{Conn: sqlDB}, gormCfg)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("open gorm: %w", err)
		}

	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		sqlDB, err = db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{
		DB:     db,
		sqlDB:  sqlDB,
		driver: driver,
	}

	// Run migrations FIRST (before PRAGMA commands)
	if err := runMigrations(db, driver); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if driver == DriverSQLite {
		// Set WAL mode and synchronous mode via raw SQL.
		// Use raw sqlDB to avoid GORM transaction issues.
		if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := sqlDB.Exec("PRAGMA synchronous=NORMAL"); err != nil {
			return nil, fmt.Errorf("set synchronous mode: %w", err)
		}
		// Busy timeout lets SQLite retry when the database is locked
		// instead of failing immediately on concurrent writes
		if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.sqlDB.Ping()
}

// Driver returns the active driver name ("sqlite" or "postgres").
func (s *Store) Driver() string {
	return s.driver
}

// GetRawDB returns the underlying *sql.DB for operations GORM can't handle,
// such as FTS5 MATCH queries.
func (s *Store) GetRawDB() *sql.DB {
	return s.sqlDB
}

// GetDB returns the GORM DB instance for standard queries.
func (s *Store) GetDB() *gorm.DB {
	return s.DB
}
