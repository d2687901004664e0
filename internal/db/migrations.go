// Package db provides GORM-based transcript persistence for nova.
package db

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
// The FTS5 migration only applies to SQLite; Postgres deployments search
// via LIKE instead.
func runMigrations(db *gorm.DB, driver string) error {
	migrations := []*gormigrate.Migration{
		// Migration 001: Core tables (Conversation, ConversationTurn)
		{
			ID: "001_conversations",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Conversation{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&ConversationTurn{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("conversations", "conversation_turns")
			},
		},
	}

	if driver == DriverSQLite {
		// Migration 002: FTS5 virtual table for turn messages
		migrations = append(migrations, &gormigrate.Migration{
			ID: "002_turns_fts",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					`CREATE VIRTUAL TABLE IF NOT EXISTS conversation_turns_fts USING fts5(
						message,
						content='conversation_turns',
						content_rowid='id'
					)`,
					`CREATE TRIGGER IF NOT EXISTS conversation_turns_ai AFTER INSERT ON conversation_turns BEGIN
						INSERT INTO conversation_turns_fts(rowid, message)
						VALUES (new.id, new.message);
					END`,
					`CREATE TRIGGER IF NOT EXISTS conversation_turns_ad AFTER DELETE ON conversation_turns BEGIN
						INSERT INTO conversation_turns_fts(conversation_turns_fts, rowid, message)
						VALUES('delete', old.id, old.message);
					END`,
					`CREATE TRIGGER IF NOT EXISTS conversation_turns_au AFTER UPDATE ON conversation_turns BEGIN
						INSERT INTO conversation_turns_fts(conversation_turns_fts, rowid, message)
						VALUES('delete', old.id, old.message);
						INSERT INTO conversation_turns_fts(rowid, message)
						VALUES (new.id, new.message);
					END`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				sqls := []string{
					"DROP TRIGGER IF EXISTS conversation_turns_au",
					"DROP TRIGGER IF EXISTS conversation_turns_ad",
					"DROP TRIGGER IF EXISTS conversation_turns_ai",
					"DROP TABLE IF EXISTS conversation_turns_fts",
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
		})
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations)

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}

	return nil
}
