// Package models contains domain models for nova.
package models

import (
	"io"
	"time"

	json "github.com/goccy/go-json"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversation message. The JSON tags are the transcript
// export format.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the mutable state of one conversation. A session is owned by
// exactly one caller at a time; the dialogue engine mutates it on every
// respond call. The catalog itself is shared and immutable.
type Session struct {
	UserName              string
	LastTopic             string
	AwaitingClarification bool
	ClarificationOptions  []int // catalog entry IDs, in offer order
	History               []Turn
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// AppendTurn records a turn at the end of the history.
func (s *Session) AppendTurn(role Role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: at})
}

// SetClarification stores candidate entry IDs and raises the pending flag.
// An empty candidate list leaves the session with no pending clarification.
func (s *Session) SetClarification(ids []int) {
	s.ClarificationOptions = ids
	s.AwaitingClarification = len(ids) > 0
}

// ClearClarification resets the pending-clarification state.
func (s *Session) ClearClarification() {
	s.AwaitingClarification = false
	s.ClarificationOptions = nil
}

// WriteTranscript serializes the history to w as an indented JSON array of
// turns. An empty history writes an empty array, not null.
func (s *Session) WriteTranscript(w io.Writer) error {
	history := s.History
	if history == nil {
		history = []Turn{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(history)
}
