// Package server exposes the local control API: REST endpoints for
// status and the counter operations, a websocket stream of encounter
// events, and the Prometheus scrape endpoint. It binds to localhost by
// default; overlays and hotkey tools on the same machine are the intended
// clients.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/encounter-tracker/internal/controller"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
)

// Pipeline is the controller surface the server drives.
type Pipeline interface {
	Status() controller.Status
	Resume() controller.Status
	Pause() controller.Status
	Reset() controller.Status
	Events() <-chan controller.Event
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type CommandMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type EncounterMessage struct {
	Type       string    `json:"type"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Count      int       `json:"count"`
	At         time.Time `json:"at"`
}

type StatusMessage struct {
	Type   string            `json:"type"`
	Status controller.Status `json:"status"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and websocket connections.
type Server struct {
	pipe    Pipeline
	metrics http.Handler

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a server and starts the event broadcaster.
func New(pipe Pipeline, metricsHandler http.Handler) *Server {
	s := &Server{
		pipe:       pipe,
		metrics:    metricsHandler,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
	go s.broadcastEncounters()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/pause", s.handlePause)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.pipe.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	trace.Logger(r.Context()).Info("start requested", "remote", r.RemoteAddr)
	writeJSON(w, s.pipe.Resume())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	trace.Logger(r.Context()).Info("pause requested", "remote", r.RemoteAddr)
	writeJSON(w, s.pipe.Pause())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	trace.Logger(r.Context()).Info("reset requested", "remote", r.RemoteAddr)
	writeJSON(w, s.pipe.Reset())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// New clients get the current state immediately.
	_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: s.pipe.Status()})

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "status":
			_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: s.pipe.Status()})
		case "command":
			var cmd CommandMessage
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			s.handleCommand(baseCtx, conn, cmd.Action)
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, action string) {
	log := trace.Logger(ctx)

	var st controller.Status
	switch action {
	case "start":
		st = s.pipe.Resume()
	case "pause":
		st = s.pipe.Pause()
	case "reset":
		st = s.pipe.Reset()
	default:
		log.Debug("unknown websocket command", "action", action)
		_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "unknown command: " + action})
		return
	}
	log.Info("websocket command", "action", action, "count", st.Count)
	_ = wsjson.Write(ctx, conn, StatusMessage{Type: "status", Status: st})
}

// broadcastEncounters fans confirmed encounters out to every connected
// client.
func (s *Server) broadcastEncounters() {
	for evt := range s.pipe.Events() {
		msg := EncounterMessage{
			Type:       "encounter",
			Label:      evt.Label,
			Confidence: evt.Confidence,
			Count:      evt.Count,
			At:         evt.At,
		}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				_ = wsjson.Write(context.Background(), c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}
