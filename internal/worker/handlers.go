package worker

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/sosagent/nova/internal/db"
	"github.com/sosagent/nova/internal/dialogue"
	"github.com/sosagent/nova/internal/worker/session"
	"github.com/sosagent/nova/internal/worker/sse"
	"github.com/sosagent/nova/pkg/models"
)

// defaultSearchLimit caps transcript search results when the caller does
// not pass a limit.
const defaultSearchLimit = 10

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimitParam reads the "limit" query parameter, falling back to
// defaultLimit when the parameter is missing, unparseable, or not positive.
func parseLimitParam(r *http.Request, defaultLimit int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}

// sessionInfo is the wire form of a live session.
type sessionInfo struct {
	SessionID             string    `json:"session_id"`
	StartedAt             time.Time `json:"started_at"`
	UserName              string    `json:"user_name,omitempty"`
	LastTopic             string    `json:"last_topic,omitempty"`
	AwaitingClarification bool      `json:"awaiting_clarification"`
	ClarificationOptions  []int     `json:"clarification_options,omitempty"`
	Turns                 int       `json:"turns"`
}

// sessionInfoLocked builds the wire snapshot. Caller holds the session lock.
func sessionInfoLocked(sess *session.ActiveSession) sessionInfo {
	st := sess.State
	info := sessionInfo{
		SessionID:             sess.ID,
		StartedAt:             sess.StartTime,
		UserName:              st.UserName,
		LastTopic:             st.LastTopic,
		AwaitingClarification: st.AwaitingClarification,
		Turns:                 len(st.History),
	}
	if len(st.ClarificationOptions) > 0 {
		info.ClarificationOptions = append([]int(nil), st.ClarificationOptions...)
	}
	return info
}

// snapshotSession copies the session state under its lock.
func snapshotSession(sess *session.ActiveSession) sessionInfo {
	sess.Lock()
	defer sess.Unlock()
	return sessionInfoLocked(sess)
}

// handleHealth reports liveness plus the running version.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": s.version,
	})
}

// handleReady reports 503 until initialization completes.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "service is starting up")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion returns the build version.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// handleSSE upgrades the connection to a server-sent event stream.
func (s *Service) handleSSE(w http.ResponseWriter, r *http.Request) {
	s.sseBroadcaster.HandleSSE(w, r)
}

// handleCreateSession opens a session and begins its persisted
// conversation. Transcript failures are logged, not fatal; the responder
// works without persistence.
func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionManager.CreateSession()

	convID, err := s.transcripts.Begin(r.Context(), sess.ID)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to begin conversation transcript")
	} else {
		sess.SetConversationID(convID)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sess.ID,
		"started_at": sess.StartTime,
	})
}

// handleListSessions returns a snapshot of every live session.
func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessionManager.GetAllSessions()

	infos := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, snapshotSession(sess))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": infos,
		"count":    len(infos),
	})
}

// handleGetSession returns one session's state snapshot.
func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionManager.GetSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, snapshotSession(sess))
}

// handleDeleteSession ends a session. The manager's deletion callback
// closes the persisted conversation.
func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, ok := s.sessionManager.GetSession(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.sessionManager.DeleteSession(id)
	w.WriteHeader(http.StatusNoContent)
}

// postMessageRequest is the body of POST /api/sessions/{id}/messages.
type postMessageRequest struct {
	Message string `json:"message"`
}

// handlePostMessage runs one responder turn and returns the reply with the
// updated session snapshot. Persistence and broadcast failures never fail
// the request; the reply is already committed to the in-memory session.
func (s *Service) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionManager.GetSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	engine := s.getEngine()

	sess.Lock()
	wasAwaiting := sess.State.AwaitingClarification
	reply := engine.Respond(sess.State, req.Message)

	// Respond appends the user turn and the reply, in that order.
	var userTurn, agentTurn models.Turn
	if n := len(sess.State.History); n >= 2 {
		userTurn = sess.State.History[n-2]
		agentTurn = sess.State.History[n-1]
	}
	nowAwaiting := sess.State.AwaitingClarification
	userName := sess.State.UserName
	lastTopic := sess.State.LastTopic
	info := sessionInfoLocked(sess)
	sess.Unlock()

	sess.Touch()

	s.recordTurn(r.Context(), sess, req.Message, wasAwaiting, nowAwaiting,
		userTurn, agentTurn, userName, lastTopic)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply":   reply,
		"session": info,
	})
}

// recordTurn bumps the traffic counters, persists both turns with the
// refreshed conversation metadata, and broadcasts the turns to SSE clients.
func (s *Service) recordTurn(ctx context.Context, sess *session.ActiveSession, message string,
	wasAwaiting, nowAwaiting bool, userTurn, agentTurn models.Turn, userName, lastTopic string) {

	s.stats.messages.Add(1)
	s.metrics.messageHandled(ctx)

	// Emergencies are counted off the incoming message with the same
	// trigger check the engine uses, so the counter tracks detected
	// emergencies rather than reply formatting.
	if dialogue.IsEmergency(strings.ToLower(message)) {
		s.stats.emergencies.Add(1)
		s.metrics.emergencyDetected(ctx)
	}

	// A clarification is counted when this turn newly posed one.
	if !wasAwaiting && nowAwaiting {
		s.stats.clarifications.Add(1)
		s.metrics.clarificationAsked(ctx)
	}

	if convID := sess.ConversationID(); convID != 0 {
		if _, err := s.transcripts.AppendTurn(ctx, convID, userTurn); err != nil {
			log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to persist user turn")
		}
		if _, err := s.transcripts.AppendTurn(ctx, convID, agentTurn); err != nil {
			log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to persist agent turn")
		}
		if err := s.transcripts.UpdateMeta(ctx, convID, userName, lastTopic); err != nil {
			log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to update conversation metadata")
		}
	}

	s.sseBroadcaster.Broadcast(sse.NewTurnEvent(sess.ID, userTurn))
	s.sseBroadcaster.Broadcast(sse.NewTurnEvent(sess.ID, agentTurn))
}

// handleGetTranscript streams the session history in the export format.
func (s *Service) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionManager.GetSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")

	sess.Lock()
	defer sess.Unlock()
	if err := sess.State.WriteTranscript(w); err != nil {
		log.Error().Err(err).Str("sessionId", sess.ID).Msg("Failed to write transcript")
	}
}

// catalogSummary is one catalog entry with its response payload omitted.
type catalogSummary struct {
	ID       int             `json:"id"`
	Category string          `json:"category"`
	Severity models.Severity `json:"severity"`
	Keywords []string        `json:"keywords"`
}

// handleGetCatalog lists the loaded catalog as summaries.
func (s *Service) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	entries := s.getCatalog().Entries()

	summaries := make([]catalogSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, catalogSummary{
			ID:       entry.ID,
			Category: entry.Category,
			Severity: entry.Severity,
			Keywords: entry.Keywords,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": summaries,
		"count":   len(summaries),
	})
}

// handleReloadCatalog rebuilds the catalog from disk and swaps the engine.
func (s *Service) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	entries := s.ReloadCatalog()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "reloaded",
		"entries": entries,
	})
}

// handleSearchTranscripts searches persisted turns across all conversations.
func (s *Service) handleSearchTranscripts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}
	limit := parseLimitParam(r, defaultSearchLimit)

	results, err := s.transcripts.Search(r.Context(), query, limit)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Transcript search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []db.SearchResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleStatus reports the running configuration and traffic counters.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.GetDialogueStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent":           s.config.AgentName,
		"mission_status":  s.config.MissionStatus,
		"version":         s.version,
		"catalog_entries": s.getCatalog().Len(),
		"active_sessions": s.sessionManager.GetActiveSessionCount(),
		"sse_clients":     s.sseBroadcaster.ClientCount(),
		"messages":        stats.Messages,
		"emergencies":     stats.Emergencies,
		"clarifications":  stats.Clarifications,
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
	})
}
