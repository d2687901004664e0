//go:build fts5

// Package db provides GORM-based transcript persistence for nova.
package db

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"
)

func TestNewStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "nova_db_test_*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := Config{
		Driver:   DriverSQLite,
		Path:     dbPath,
		MaxConns: 4,
		LogLevel: logger.Silent,
	}

	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	if store.Driver() != DriverSQLite {
		t.Errorf("expected driver %q, got %q", DriverSQLite, store.Driver())
	}

	if err := store.Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	// Verify WAL mode is enabled
	var journalMode string
	err = store.DB.Raw("PRAGMA journal_mode").Scan(&journalMode).Error
	if err != nil {
		t.Fatalf("query journal_mode failed: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected WAL mode, got %q", journalMode)
	}

	// Verify core tables exist
	for _, table := range []string{"conversations", "conversation_turns"} {
		if !store.DB.Migrator().HasTable(table) {
			t.Errorf("table %q does not exist", table)
		}
	}

	// Verify the FTS5 virtual table exists (cannot use Migrator().HasTable for virtual tables)
	var count int
	err = store.DB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='conversation_turns_fts'").Scan(&count).Error
	if err != nil {
		t.Errorf("check FTS table failed: %v", err)
	}
	if count != 1 {
		t.Errorf("FTS table conversation_turns_fts does not exist")
	}

	// Verify the sync triggers exist
	for _, trigger := range []string{"conversation_turns_ai", "conversation_turns_ad", "conversation_turns_au"} {
		var n int
		err := store.DB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='trigger' AND name=?", trigger).Scan(&n).Error
		if err != nil {
			t.Errorf("check trigger %q failed: %v", trigger, err)
		}
		if n != 1 {
			t.Errorf("trigger %q does not exist", trigger)
		}
	}
}

func TestNewStoreUnknownDriver(t *testing.T) {
	_, err := NewStore(Config{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMigrationIdempotency(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "nova_db_idempotency_*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	cfg := Config{
		Driver:   DriverSQLite,
		Path:     dbPath,
		MaxConns: 4,
		LogLevel: logger.Silent,
	}

	// Run migrations first time
	store1, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore (first) failed: %v", err)
	}
	store1.Close()

	// Run migrations second time (should be idempotent)
	store2, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore (second) failed: %v", err)
	}
	defer store2.Close()

	if !store2.DB.Migrator().HasTable("conversations") {
		t.Error("conversations table missing after second migration")
	}
}
