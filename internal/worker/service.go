// Package worker provides the HTTP worker service for nova.
package worker

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sosagent/nova/internal/catalog"
	"github.com/sosagent/nova/internal/config"
	"github.com/sosagent/nova/internal/db"
	"github.com/sosagent/nova/internal/dialogue"
	"github.com/sosagent/nova/internal/worker/session"
	"github.com/sosagent/nova/internal/worker/sse"
)

// Service is the worker daemon: one process owning the protocol catalog,
// the dialogue engine, live sessions, the transcript store, and the SSE
// event feed. The engine is immutable; catalog reloads swap in a fresh
// engine under the service mutex while sessions keep their state.
type Service struct {
	version string
	config  *config.Config

	mu      sync.RWMutex // guards catalog and engine swaps
	catalog *catalog.Catalog
	engine  *dialogue.Engine

	store       *db.Store
	transcripts *db.TranscriptStore

	sessionManager *session.Manager
	sseBroadcaster *sse.Broadcaster

	router chi.Router

	ctx    context.Context
	cancel context.CancelFunc

	startTime time.Time
	ready     atomic.Bool

	metrics *serviceMetrics
	stats   dialogueStats
}

// dialogueStats counts responder traffic since startup.
type dialogueStats struct {
	messages       atomic.Int64
	emergencies    atomic.Int64
	clarifications atomic.Int64
}

// DialogueStats is a snapshot of the responder traffic counters.
type DialogueStats struct {
	Messages       int64 `json:"messages"`
	Emergencies    int64 `json:"emergencies"`
	Clarifications int64 `json:"clarifications"`
}

// NewService wires a worker from its configuration and an open store. The
// catalog is built immediately: embedded defaults merged with any custom
// files named by the config.
func NewService(version string, cfg *config.Config, store *db.Store) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	cat := loadCatalog(cfg.CatalogPaths)

	svc := &Service{
		version:        version,
		config:         cfg,
		catalog:        cat,
		engine:         dialogue.NewEngine(cat, cfg.AgentName, cfg.MissionStatus),
		store:          store,
		transcripts:    db.NewTranscriptStore(store),
		sessionManager: session.NewManager(cfg.SessionTimeout()),
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
		metrics:        newServiceMetrics(),
	}

	svc.sessionManager.SetOnSessionCreated(svc.onSessionCreated)
	svc.sessionManager.SetOnSessionDeleted(svc.onSessionDeleted)

	svc.setupRoutes()

	return svc
}

// Start launches the background loops and marks the service ready.
func (s *Service) Start() {
	s.sessionManager.Start()
	s.ready.Store(true)

	log.Info().
		Str("version", s.version).
		Int("catalogEntries", s.getCatalog().Len()).
		Msg("Worker service ready")
}

// Shutdown stops gated traffic, closes every live session (ending their
// persisted conversations), and cancels the service context.
func (s *Service) Shutdown(ctx context.Context) {
	s.ready.Store(false)
	s.sessionManager.ShutdownAll(ctx)
	s.cancel()
}

// Router returns the HTTP handler serving the worker API.
func (s *Service) Router() http.Handler {
	return s.router
}

// ReloadCatalog rebuilds the catalog from the configured files and swaps
// in a fresh engine. Live sessions are untouched; only the responder
// behind them changes. Returns the new entry count.
func (s *Service) ReloadCatalog() int {
	cat := loadCatalog(s.config.CatalogPaths)
	engine := dialogue.NewEngine(cat, s.config.AgentName, s.config.MissionStatus)

	s.mu.Lock()
	s.catalog = cat
	s.engine = engine
	s.mu.Unlock()

	log.Info().Int("entries", cat.Len()).Msg("Catalog reloaded")
	return cat.Len()
}

// GetDialogueStats returns the traffic counters since startup.
func (s *Service) GetDialogueStats() DialogueStats {
	return DialogueStats{
		Messages:       s.stats.messages.Load(),
		Emergencies:    s.stats.emergencies.Load(),
		Clarifications: s.stats.clarifications.Load(),
	}
}

func (s *Service) getEngine() *dialogue.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Service) getCatalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// loadCatalog builds the effective catalog: the embedded protocol set
// merged with each custom file in order. Unreadable files and invalid
// entries are logged and skipped, never fatal.
func loadCatalog(paths []string) *catalog.Catalog {
	cat := catalog.Default()

	for _, path := range paths {
		extra, issues, err := catalog.Load(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable catalog file")
			continue
		}
		for _, issue := range issues {
			log.Warn().Str("path", path).Msg("Rejected catalog entry: " + issue.Error())
		}
		cat = catalog.Merge(cat, extra)
	}

	return cat
}

func (s *Service) onSessionCreated(sess *session.ActiveSession) {
	s.metrics.sessionOpened(s.ctx)

	s.sseBroadcaster.Broadcast(sse.NewSessionEvent("session_created", sess.ID))
}

// onSessionDeleted closes the persisted conversation. It runs for explicit
// deletes, idle eviction, and shutdown alike, so it carries its own
// timeout instead of a request context.
func (s *Service) onSessionDeleted(sess *session.ActiveSession) {
	s.metrics.sessionClosed(s.ctx)

	if convID := sess.ConversationID(); convID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.transcripts.End(ctx, convID); err != nil {
			log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to close conversation")
		}
	}

	s.sseBroadcaster.Broadcast(sse.NewSessionEvent("session_deleted", sess.ID))
}

// setupRoutes mounts all HTTP endpoints on the service router.
func (s *Service) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Liveness endpoints stay reachable while the service warms up.
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Get("/version", s.handleVersion)
		r.Get("/events", s.handleSSE)

		r.Group(func(r chi.Router) {
			r.Use(s.requireReady)

			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{sessionID}", s.handleGetSession)
			r.Delete("/sessions/{sessionID}", s.handleDeleteSession)
			r.Post("/sessions/{sessionID}/messages", s.handlePostMessage)
			r.Get("/sessions/{sessionID}/transcript", s.handleGetTranscript)

			r.Get("/catalog", s.handleGetCatalog)
			r.Post("/catalog/reload", s.handleReloadCatalog)

			r.Get("/transcripts/search", s.handleSearchTranscripts)
			r.Get("/status", s.handleStatus)
		})
	})
}

// requireReady rejects requests with 503 until initialization finishes.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service is starting up")
			return
		}
		next.ServeHTTP(w, r)
	})
}
