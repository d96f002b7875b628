// Package server exposes the latest reading over HTTP and streams new ones over a websocket.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
)

const (
	subscriberBuffer = 8
	writeWait        = 5 * time.Second
)

type server struct {
	mu       sync.RWMutex
	latest   *model.Reading
	lastErr  string
	subs     map[chan model.Reading]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
	done     chan struct{}
	once     sync.Once
}

func New() *server {
	return &server{
		subs: make(map[chan model.Reading]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: zap.L(),
		done:   make(chan struct{}),
	}
}

// Close ends every open stream. Hijacked connections outlive http.Server.Shutdown.
func (s *server) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.GetState)
	mux.HandleFunc("GET /healthz", s.GetHealth)
	mux.HandleFunc("GET /ws", s.Stream)
	return LoggingMiddleware(mux)
}

// Update stores reading and offers it to every subscriber. Slow subscribers miss readings.
func (s *server) Update(reading model.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &reading
	s.lastErr = ""
	for ch := range s.subs {
		select {
		case ch <- reading:
		default:
			s.logger.Debug("subscriber behind, dropping reading")
		}
	}
}

// Fail records the error of the last poll for the health endpoint.
func (s *server) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err.Error()
}

func (s *server) GetState(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == nil {
		handleError(w, http.StatusServiceUnavailable, "no reading yet")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	lastErr := s.lastErr
	var last time.Time
	if s.latest != nil {
		last = s.latest.Timestamp
	}
	s.mu.RUnlock()

	status := http.StatusOK
	if lastErr != "" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"last_reading": last,
		"error":        lastErr,
	})
}

func (s *server) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// the read loop only notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
			return
		case reading := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(reading); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *server) subscribe() chan model.Reading {
	ch := make(chan model.Reading, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil {
		ch <- *s.latest
	}
	s.subs[ch] = struct{}{}
	return ch
}

func (s *server) unsubscribe(ch chan model.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, ch)
}

func (s *server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
