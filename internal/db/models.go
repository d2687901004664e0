// Package db provides GORM-based transcript persistence for nova.
package db

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Conversation represents one agent session's persisted transcript.
type Conversation struct {
	ID             int64          `gorm:"primaryKey;autoIncrement"`
	SessionID      string         `gorm:"uniqueIndex;not null"`
	UserName       sql.NullString `gorm:"type:text"`
	LastTopic      sql.NullString `gorm:"type:text"`
	StartedAt      string         `gorm:"not null"`
	StartedAtEpoch int64          `gorm:"index:idx_conversations_started,sort:desc;not null"`
	EndedAt        sql.NullString
	EndedAtEpoch   sql.NullInt64
}

func (Conversation) TableName() string { return "conversations" }

// BeforeCreate hook to ensure timestamps are set.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.StartedAtEpoch == 0 {
		c.StartedAtEpoch = time.Now().UnixMilli()
	}
	if c.StartedAt == "" {
		c.StartedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// ConversationTurn represents a single exchange line within a conversation.
type ConversationTurn struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	ConversationID int64  `gorm:"index:idx_turns_conversation;not null"`
	Role           string `gorm:"type:text;check:role IN ('user', 'assistant');not null"`
	Message        string `gorm:"type:text;not null"`
	TokenCount     int    `gorm:"default:0"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"index:idx_turns_created,sort:desc;not null"`
}

func (ConversationTurn) TableName() string { return "conversation_turns" }

// BeforeCreate hook to ensure timestamps are set.
func (t *ConversationTurn) BeforeCreate(tx *gorm.DB) error {
	if t.CreatedAtEpoch == 0 {
		t.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}
