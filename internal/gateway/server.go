// Package gateway exposes the assistant over HTTP: a JSON chat endpoint, a
// WebSocket variant that streams progress hints, and a health probe.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roadscout/roadscout/internal/channels"
	"github.com/roadscout/roadscout/internal/schema"
)

// maxMessageChars is the longest user message the gateway accepts. Longer
// input is rejected before it reaches the engine.
const maxMessageChars = 1000

// Server is the HTTP front for the assistant.
type Server struct {
	addr      string
	responder channels.Responder
	upgrader  websocket.Upgrader
}

// New creates a Server listening on host:port.
func New(host string, port int, r channels.Responder) *Server {
	return &Server{
		addr:      net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		responder: r,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The gateway is a local/trusted surface; browsers on other
			// origins are allowed to connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// chatRequest is the body of POST /api/chat and the first WebSocket frame.
type chatRequest struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	Location  *schema.LatLon `json:"location,omitempty"`
}

// validate normalises the request and reports the first problem.
func (r *chatRequest) validate() error {
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return fmt.Errorf("message must not be empty")
	}
	if n := len([]rune(r.Message)); n > maxMessageChars {
		return fmt.Errorf("message too long: %d chars (max %d)", n, maxMessageChars)
	}
	if r.SessionID == "" {
		r.SessionID = "default"
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome := s.responder.Handle(r.Context(), "web:"+req.SessionID,
		req.Message, req.Location, nil)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(outcome)
}

// wsFrame is one message on the WebSocket: progress hints while tools run,
// then a single final frame carrying the outcome.
type wsFrame struct {
	Type    string          `json:"type"` // "progress" | "final" | "error"
	Text    string          `json:"text,omitempty"`
	Outcome *schema.Outcome `json:"outcome,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended", "err", err)
			}
			return
		}
		if err := req.validate(); err != nil {
			_ = conn.WriteJSON(wsFrame{Type: "error", Text: err.Error()})
			continue
		}

		// Progress hints are produced from the engine goroutine; serialise
		// writes through a channel so frames never interleave.
		progress := make(chan string, 8)
		done := make(chan schema.Outcome, 1)

		go func() {
			done <- s.responder.Handle(r.Context(), "web:"+req.SessionID,
				req.Message, req.Location, func(hint string) {
					select {
					case progress <- hint:
					default:
					}
				})
		}()

	stream:
		for {
			select {
			case hint := <-progress:
				if err := conn.WriteJSON(wsFrame{Type: "progress", Text: hint}); err != nil {
					return
				}
			case outcome := <-done:
				if err := conn.WriteJSON(wsFrame{Type: "final", Outcome: &outcome}); err != nil {
					return
				}
				break stream
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
