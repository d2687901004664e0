// Package db provides GORM-based transcript persistence for nova.
package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tiktoken-go/tokenizer"
	"gorm.io/gorm"

	"github.com/sosagent/nova/pkg/models"
)

// SearchResult is one transcript line matched by Search.
type SearchResult struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// TranscriptStore provides conversation transcript operations.
type TranscriptStore struct {
	db    *gorm.DB
	rawDB *sql.DB
	store *Store
	enc   tokenizer.Codec
}

// NewTranscriptStore creates a transcript store on top of an open Store.
// Token counts use the cl100k_base encoding; if the codec fails to load,
// turns are stored with a count of zero.
func NewTranscriptStore(store *Store) *TranscriptStore {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		enc = nil
	}
	return &TranscriptStore{
		db:    store.DB,
		rawDB: store.GetRawDB(),
		store: store,
		enc:   enc,
	}
}

// Begin opens a conversation for a session, creating the row if needed.
// Returns the conversation ID.
func (s *TranscriptStore) Begin(ctx context.Context, sessionID string) (int64, error) {
	var existing Conversation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	now := time.Now()
	conv := &Conversation{
		SessionID:      sessionID,
		StartedAt:      now.Format(time.RFC3339),
		StartedAtEpoch: now.UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// AppendTurn persists one exchange line. Returns the turn ID.
func (s *TranscriptStore) AppendTurn(ctx context.Context, conversationID int64, turn models.Turn) (int64, error) {
	row := &ConversationTurn{
		ConversationID: conversationID,
		Role:           string(turn.Role),
		Message:        turn.Text,
		TokenCount:     s.countTokens(turn.Text),
		CreatedAt:      turn.Timestamp.Format(time.RFC3339),
		CreatedAtEpoch: turn.Timestamp.UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// UpdateMeta records the captured user name and last matched topic.
func (s *TranscriptStore) UpdateMeta(ctx context.Context, conversationID int64, userName, lastTopic string) error {
	return s.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"user_name":  sqlNullString(userName),
			"last_topic": sqlNullString(lastTopic),
		}).Error
}

// End marks a conversation as finished.
func (s *TranscriptStore) End(ctx context.Context, conversationID int64) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"ended_at":       now.Format(time.RFC3339),
			"ended_at_epoch": now.UnixMilli(),
		}).Error
}

// History returns the persisted turns of a session in insertion order.
func (s *TranscriptStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []ConversationTurn
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", conv.ID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	turns := make([]models.Turn, len(rows))
	for i, row := range rows {
		turns[i] = models.Turn{
			Role:      models.Role(row.Role),
			Text:      row.Message,
			Timestamp: time.UnixMilli(row.CreatedAtEpoch),
		}
	}
	return turns, nil
}

// TokenTotal returns the summed token count of a session's turns.
func (s *TranscriptStore) TokenTotal(ctx context.Context, sessionID string) (int64, error) {
	var total sql.NullInt64
	err := s.db.WithContext(ctx).
		Model(&ConversationTurn{}).
		Select("SUM(conversation_turns.token_count)").
		Joins("JOIN conversations ON conversations.id = conversation_turns.conversation_id").
		Where("conversations.session_id = ?", sessionID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// Search performs full-text search over turn messages using FTS5.
// Falls back to LIKE search on Postgres or when FTS5 fails.
func (s *TranscriptStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	keywords := extractKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	if s.store.Driver() != DriverSQLite {
		return s.searchLike(ctx, keywords, limit)
	}

	// Build FTS5 query: keyword1 OR keyword2 OR keyword3
	ftsTerms := strings.Join(keywords, " OR ")

	// FTS5 via raw SQL (GORM can't handle the MATCH operator)
	ftsQuery := `
		SELECT c.session_id, t.role, t.message, t.created_at
		FROM conversation_turns t
		JOIN conversation_turns_fts fts ON t.id = fts.rowid
		JOIN conversations c ON c.id = t.conversation_id
		WHERE conversation_turns_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`

	rows, err := s.rawDB.QueryContext(ctx, ftsQuery, ftsTerms, limit)
	if err != nil {
		// FTS failed, try LIKE fallback
		return s.searchLike(ctx, keywords, limit)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.SessionID, &r.Role, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// If FTS returned nothing, try LIKE search
	if len(results) == 0 {
		return s.searchLike(ctx, keywords, limit)
	}

	return results, nil
}

// searchLike performs fallback LIKE search on turn messages using GORM.
func (s *TranscriptStore) searchLike(ctx context.Context, keywords []string, limit int) ([]SearchResult, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "conversation_turns.message LIKE ?")
		args = append(args, "%"+kw+"%")
	}

	var results []SearchResult
	err := s.db.WithContext(ctx).
		Model(&ConversationTurn{}).
		Select("conversations.session_id, conversation_turns.role, conversation_turns.message, conversation_turns.created_at").
		Joins("JOIN conversations ON conversations.id = conversation_turns.conversation_id").
		Where(strings.Join(conditions, " OR "), args...).
		Order("conversation_turns.created_at_epoch DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// countTokens returns the cl100k_base token count of text, 0 on failure.
func (s *TranscriptStore) countTokens(text string) int {
	if s.enc == nil {
		return 0
	}
	n, err := s.enc.Count(text)
	if err != nil {
		return 0
	}
	return n
}
