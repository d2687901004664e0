//go:build fts5

// Package db provides GORM-based transcript persistence for nova.
package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"github.com/sosagent/nova/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "nova_transcripts_test_*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewStore(Config{
		Driver:   DriverSQLite,
		Path:     filepath.Join(tmpDir, "test.db"),
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestTranscriptFlow(t *testing.T) {
	ctx := context.Background()
	ts := NewTranscriptStore(newTestStore(t))

	convID, err := ts.Begin(ctx, "session-1")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if convID == 0 {
		t.Fatal("expected nonzero conversation ID")
	}

	// Begin on the same session resumes the existing conversation
	again, err := ts.Begin(ctx, "session-1")
	if err != nil {
		t.Fatalf("Begin (resume) failed: %v", err)
	}
	if again != convID {
		t.Errorf("expected resumed conversation %d, got %d", convID, again)
	}

	now := time.Now()
	turns := []models.Turn{
		{Role: models.RoleUser, Text: "the oxygen recycler is hissing", Timestamp: now},
		{Role: models.RoleAssistant, Text: "Check the scrubber seals first.", Timestamp: now.Add(time.Second)},
	}
	for _, turn := range turns {
		if _, err := ts.AppendTurn(ctx, convID, turn); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	history, err := ts.History(ctx, "session-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != models.RoleUser || history[1].Role != models.RoleAssistant {
		t.Errorf("turn roles out of order: %q, %q", history[0].Role, history[1].Role)
	}
	if history[0].Text != turns[0].Text {
		t.Errorf("expected %q, got %q", turns[0].Text, history[0].Text)
	}

	if err := ts.UpdateMeta(ctx, convID, "Alex", "oxygen"); err != nil {
		t.Fatalf("UpdateMeta failed: %v", err)
	}
	var conv Conversation
	if err := ts.db.First(&conv, convID).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if conv.UserName.String != "Alex" || conv.LastTopic.String != "oxygen" {
		t.Errorf("meta not persisted: %+v", conv)
	}

	total, err := ts.TokenTotal(ctx, "session-1")
	if err != nil {
		t.Fatalf("TokenTotal failed: %v", err)
	}
	if ts.enc != nil && total == 0 {
		t.Error("expected nonzero token total with codec loaded")
	}

	if err := ts.End(ctx, convID); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if err := ts.db.First(&conv, convID).Error; err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if !conv.EndedAt.Valid || conv.EndedAtEpoch.Int64 == 0 {
		t.Error("expected ended timestamps to be set")
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	ts := NewTranscriptStore(newTestStore(t))

	history, err := ts.History(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history != nil {
		t.Errorf("expected nil history, got %v", history)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	ts := NewTranscriptStore(newTestStore(t))

	convID, err := ts.Begin(ctx, "session-search")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	now := time.Now()
	seed := []string{
		"the oxygen recycler is hissing",
		"thermal regulator reads nominal",
		"requesting status on the manipulator arm",
	}
	for i, text := range seed {
		turn := models.Turn{Role: models.RoleUser, Text: text, Timestamp: now.Add(time.Duration(i) * time.Second)}
		if _, err := ts.AppendTurn(ctx, convID, turn); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	results, err := ts.Search(ctx, "oxygen", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].SessionID != "session-search" {
		t.Errorf("expected session-search, got %q", results[0].SessionID)
	}
	if results[0].Message != seed[0] {
		t.Errorf("expected %q, got %q", seed[0], results[0].Message)
	}

	// Stopword-only queries yield no keywords, hence no results
	results, err = ts.Search(ctx, "the and of", 10)
	if err != nil {
		t.Fatalf("Search (stopwords) failed: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for stopword query, got %v", results)
	}

	// Unmatched terms fall through FTS and LIKE with no hits
	results, err = ts.Search(ctx, "warpdrive", 10)
	if err != nil {
		t.Fatalf("Search (miss) failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
