package sensorlog

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the live reading stream.
type StreamConfig struct {
	// BufferSize is the per-subscription channel depth. A subscriber that
	// falls behind loses readings rather than stalling the writer.
	BufferSize int

	// WriteTimeout bounds each WebSocket write.
	WriteTimeout time.Duration

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BufferSize:   256,
		WriteTimeout: 10 * time.Second,
	}
}

// Subscription receives readings flushed by the store.
type Subscription struct {
	id   uint64
	ch   chan Reading
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// C returns the channel of flushed readings.
func (s *Subscription) C() <-chan Reading { return s.ch }

// Close ends the subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// LiveHub fans successfully flushed batches out to subscribers, including
// WebSocket clients. Publishing never blocks the writer: a full subscriber
// channel drops readings.
type LiveHub struct {
	cfg    StreamConfig
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

// NewLiveHub creates a hub for streaming flushed readings.
func NewLiveHub(cfg StreamConfig) *LiveHub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LiveHub{
		cfg:    cfg,
		logger: cfg.Logger,
		subs:   make(map[uint64]*Subscription),
	}
}

// Subscribe registers a new subscriber.
func (h *LiveHub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{
		id:   h.nextID,
		ch:   make(chan Reading, h.cfg.BufferSize),
		done: make(chan struct{}),
	}
	h.subs[sub.id] = sub
	return sub
}

func (h *LiveHub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Publish delivers a flushed batch to every subscriber without blocking.
func (h *LiveHub) Publish(batch []Reading) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		for _, r := range batch {
			select {
			case sub.ch <- r:
			case <-sub.done:
			default: // subscriber behind, drop
			}
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *LiveHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a WebSocket and forwards flushed
// readings as JSON until the client disconnects.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.Subscribe()
	defer h.unsubscribe(sub.id)
	defer sub.Close()

	// Reader goroutine: only to observe the client closing.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case reading := <-sub.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteJSON(reading); err != nil {
				return
			}
		}
	}
}
