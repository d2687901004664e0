// Package sse provides Server-Sent Events broadcasting for nova.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/sosagent/nova/pkg/models"
)

// WriteTimeout bounds a single event write. A subscriber that cannot
// accept a frame in time is dropped from the stream.
const WriteTimeout = 2 * time.Second

// TurnEvent is the payload broadcast for each exchanged turn.
type TurnEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewTurnEvent builds the broadcast payload for a turn in a session.
func NewTurnEvent(sessionID string, turn models.Turn) TurnEvent {
	return TurnEvent{
		Type:      "turn",
		SessionID: sessionID,
		Role:      string(turn.Role),
		Message:   turn.Text,
		Timestamp: turn.Timestamp.Format(time.RFC3339),
	}
}

// SessionEvent marks a session opening or closing.
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// NewSessionEvent builds a lifecycle payload; kind is "session_created"
// or "session_deleted".
func NewSessionEvent(kind, sessionID string) SessionEvent {
	return SessionEvent{Type: kind, SessionID: sessionID}
}

// connectedEvent greets a subscriber on its new stream.
type connectedEvent struct {
	Type       string `json:"type"`
	Subscriber int64  `json:"subscriber"`
}

// subscriber is one live event stream.
type subscriber struct {
	id    int64
	w     http.ResponseWriter
	flush http.Flusher
	gone  chan struct{}
	once  sync.Once
}

// leave marks the subscriber gone. Safe to call more than once.
func (s *subscriber) leave() {
	s.once.Do(func() { close(s.gone) })
}

// Broadcaster fans dialogue events out to subscribed event streams.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int64]*subscriber
	lastID atomic.Int64
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int64]*subscriber)}
}

func (b *Broadcaster) subscribe(w http.ResponseWriter) (*subscriber, error) {
	flush, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	sub := &subscriber{
		id:    b.lastID.Add(1),
		w:     w,
		flush: flush,
		gone:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	total := len(b.subs)
	b.mu.Unlock()

	log.Debug().
		Int64("subscriberId", sub.id).
		Int("totalSubscribers", total).
		Msg("SSE subscriber connected")

	return sub, nil
}

func (b *Broadcaster) unsubscribe(sub *subscriber) {
	b.mu.Lock()
	delete(b.subs, sub.id)
	total := len(b.subs)
	b.mu.Unlock()

	sub.leave()

	log.Debug().
		Int64("subscriberId", sub.id).
		Int("totalSubscribers", total).
		Msg("SSE subscriber disconnected")
}

// Broadcast sends one event to every live subscriber. Writes run
// concurrently and are bounded by WriteTimeout; subscribers that fail
// or stall are dropped.
func (b *Broadcaster) Broadcast(event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	frame := append(append([]byte("data: "), payload...), '\n', '\n')

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		deadMu sync.Mutex
		dead   []*subscriber
	)
	for _, sub := range targets {
		select {
		case <-sub.gone:
			continue
		default:
		}
		wg.Add(1)
		go func(sub *subscriber) {
			defer wg.Done()
			if !b.deliver(sub, frame) {
				deadMu.Lock()
				dead = append(dead, sub)
				deadMu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	for _, sub := range dead {
		b.unsubscribe(sub)
	}
}

// deliver writes one frame to one subscriber. Returns false when the
// subscriber should be dropped.
func (b *Broadcaster) deliver(sub *subscriber, frame []byte) bool {
	wrote := make(chan error, 1)
	go func() {
		_, err := sub.w.Write(frame)
		if err == nil {
			sub.flush.Flush()
		}
		wrote <- err
	}()

	select {
	case err := <-wrote:
		if err != nil {
			log.Debug().
				Int64("subscriberId", sub.id).
				Err(err).
				Msg("SSE write failed, dropping subscriber")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().
			Int64("subscriberId", sub.id).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, dropping subscriber")
		return false
	case <-sub.gone:
		// Already unsubscribed elsewhere; nothing to reap.
		return true
	}
}

// ClientCount returns the number of live subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// HandleSSE upgrades the request to an event stream and blocks until
// the client disconnects or the stream is dropped.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sub, err := b.subscribe(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.unsubscribe(sub)

	hello, _ := json.Marshal(connectedEvent{Type: "connected", Subscriber: sub.id})
	fmt.Fprintf(w, "data: %s\n\n", hello)
	sub.flush.Flush()

	select {
	case <-r.Context().Done():
	case <-sub.gone:
	}
}
