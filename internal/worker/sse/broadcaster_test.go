// Package sse provides Server-Sent Events broadcasting for nova.
package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sosagent/nova/pkg/models"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// TestNewBroadcaster tests broadcaster creation.
func (s *BroadcasterSuite) TestNewBroadcaster() {
	b := NewBroadcaster()
	s.NotNil(b)
	s.NotNil(b.subs)
	s.Equal(0, b.ClientCount())
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher for testing.
type mockResponseWriter struct {
	header     http.Header
	body       []byte
	statusCode int
	failWrites bool
	mu         sync.Mutex
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (m *mockResponseWriter) Header() http.Header {
	return m.header
}

func (m *mockResponseWriter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return 0, errors.New("connection reset")
	}
	m.body = append(m.body, data...)
	return len(data), nil
}

func (m *mockResponseWriter) WriteHeader(statusCode int) {
	m.statusCode = statusCode
}

func (m *mockResponseWriter) Flush() {
	// No-op for testing
}

func (m *mockResponseWriter) GetBody() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.body
}

// TestSubscribe tests registering a subscriber.
func (s *BroadcasterSuite) TestSubscribe() {
	w := newMockResponseWriter()

	sub, err := s.broadcaster.subscribe(w)
	s.NoError(err)
	s.NotNil(sub)
	s.Positive(sub.id)
	s.NotNil(sub.gone)
	s.Equal(1, s.broadcaster.ClientCount())
}

// TestSubscribeMultiple tests registering several subscribers.
func (s *BroadcasterSuite) TestSubscribeMultiple() {
	for i := 0; i < 5; i++ {
		w := newMockResponseWriter()
		_, err := s.broadcaster.subscribe(w)
		s.NoError(err)
	}

	s.Equal(5, s.broadcaster.ClientCount())
}

// TestUnsubscribe tests dropping a subscriber.
func (s *BroadcasterSuite) TestUnsubscribe() {
	w := newMockResponseWriter()
	sub, err := s.broadcaster.subscribe(w)
	s.NoError(err)

	s.Equal(1, s.broadcaster.ClientCount())

	s.broadcaster.unsubscribe(sub)

	s.Equal(0, s.broadcaster.ClientCount())

	// The gone channel must be closed
	select {
	case <-sub.gone:
		// Expected
	default:
		s.Fail("gone channel should be closed")
	}
}

// TestBroadcastTurnEvent tests broadcasting a turn event.
func (s *BroadcasterSuite) TestBroadcastTurnEvent() {
	w := newMockResponseWriter()
	_, err := s.broadcaster.subscribe(w)
	s.NoError(err)

	turn := models.Turn{
		Role:      models.RoleUser,
		Text:      "requesting status report",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	s.broadcaster.Broadcast(NewTurnEvent("session-1", turn))

	body := string(w.GetBody())
	s.Contains(body, "data:")
	s.Contains(body, `"type":"turn"`)
	s.Contains(body, `"session_id":"session-1"`)
	s.Contains(body, "requesting status report")
	s.Contains(body, "2024-03-01T12:00:00Z")
}

// TestBroadcastNoSubscribers tests broadcasting with nobody listening.
func (s *BroadcasterSuite) TestBroadcastNoSubscribers() {
	// Should not panic
	s.broadcaster.Broadcast(map[string]string{"type": "test"})
}

// TestBroadcastFanOut tests that every subscriber receives the event.
func (s *BroadcasterSuite) TestBroadcastFanOut() {
	writers := make([]*mockResponseWriter, 3)
	for i := 0; i < 3; i++ {
		writers[i] = newMockResponseWriter()
		_, err := s.broadcaster.subscribe(writers[i])
		s.NoError(err)
	}

	s.broadcaster.Broadcast(map[string]string{"type": "test"})

	for i, w := range writers {
		body := string(w.GetBody())
		s.Contains(body, "data:", "subscriber %d should receive data", i)
	}
}

// TestBroadcastDropsFailedWriter tests that write errors evict the subscriber.
func (s *BroadcasterSuite) TestBroadcastDropsFailedWriter() {
	healthy := newMockResponseWriter()
	broken := newMockResponseWriter()
	broken.failWrites = true

	_, err := s.broadcaster.subscribe(healthy)
	s.Require().NoError(err)
	_, err = s.broadcaster.subscribe(broken)
	s.Require().NoError(err)

	s.broadcaster.Broadcast(map[string]string{"type": "test"})

	s.Equal(1, s.broadcaster.ClientCount())
	s.Contains(string(healthy.GetBody()), "data:")
}

// TestNewTurnEvent tests turn event construction.
func TestNewTurnEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	turn := models.Turn{Role: models.RoleAssistant, Text: "All systems nominal.", Timestamp: at}

	event := NewTurnEvent("session-42", turn)

	assert.Equal(t, "turn", event.Type)
	assert.Equal(t, "session-42", event.SessionID)
	assert.Equal(t, "assistant", event.Role)
	assert.Equal(t, "All systems nominal.", event.Message)
	assert.Equal(t, "2024-03-01T12:00:00Z", event.Timestamp)
}

// TestNewSessionEvent tests lifecycle event construction.
func TestNewSessionEvent(t *testing.T) {
	event := NewSessionEvent("session_created", "session-9")

	assert.Equal(t, "session_created", event.Type)
	assert.Equal(t, "session-9", event.SessionID)
}

// TestSubscriberUniqueIDs tests that subscribers get unique IDs.
func TestSubscriberUniqueIDs(t *testing.T) {
	b := NewBroadcaster()
	ids := make(map[int64]bool)

	for i := 0; i < 100; i++ {
		w := newMockResponseWriter()
		sub, err := b.subscribe(w)
		require.NoError(t, err)

		assert.False(t, ids[sub.id], "ID %d should be unique", sub.id)
		ids[sub.id] = true
	}
}

// TestWriteTimeout tests the write timeout constant.
func TestWriteTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Second, WriteTimeout)
}

// TestHandleSSE tests the SSE connection handler end to end.
func TestHandleSSE(t *testing.T) {
	b := NewBroadcaster()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.HandleSSE(rec, req)
	}()

	// Wait for the subscriber to register, then disconnect
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"type":"connected"`)
	assert.Equal(t, 0, b.ClientCount())
}

// TestConcurrentBroadcast tests concurrent broadcasting.
func TestConcurrentBroadcast(t *testing.T) {
	b := NewBroadcaster()

	for i := 0; i < 10; i++ {
		w := newMockResponseWriter()
		_, err := b.subscribe(w)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Broadcast(map[string]int{"index": i})
		}(i)
	}

	wg.Wait()

	// Should complete without panics
	assert.Equal(t, 10, b.ClientCount())
}

// TestUnsubscribeUnknown tests dropping a subscriber that was never registered.
func TestUnsubscribeUnknown(t *testing.T) {
	b := NewBroadcaster()

	sub := &subscriber{id: 999, gone: make(chan struct{})}

	// Should not panic
	b.unsubscribe(sub)

	select {
	case <-sub.gone:
		// Expected
	default:
		t.Error("gone channel should be closed")
	}
}

// TestConcurrentSubscribeUnsubscribe tests concurrent registration churn.
func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := newMockResponseWriter()
			sub, err := b.subscribe(w)
			if err == nil && i%2 == 0 {
				b.unsubscribe(sub)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 25, b.ClientCount())
}
