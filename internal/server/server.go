// Package server exposes the companion over a WebSocket chat gateway. Each
// connection owns one session; turns within a connection are processed
// strictly in order.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/normanking/attrangi/internal/engine"
	"github.com/normanking/attrangi/internal/generation"
	"github.com/normanking/attrangi/internal/report"
	"github.com/normanking/attrangi/internal/store"
)

const (
	// ChatEndpoint is the path for WebSocket chat connections.
	ChatEndpoint = "/chat"

	// HealthEndpoint is the path for health checks.
	HealthEndpoint = "/health"

	// WriteWait is the timeout for writing to a WebSocket.
	WriteWait = 10 * time.Second

	// MaxMessageSize caps inbound frames.
	MaxMessageSize = 16 * 1024
)

// ClientMessage is an inbound frame.
type ClientMessage struct {
	// Type is "message", "reset", or "report".
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ServerMessage is an outbound frame.
type ServerMessage struct {
	Type        string `json:"type"` // "reply", "report", "error"
	SessionID   string `json:"session_id"`
	Reply       string `json:"reply,omitempty"`
	Expression  string `json:"expression,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Mode        string `json:"mode,omitempty"`
	TurnState   string `json:"turn_state,omitempty"`
	OfferReport bool   `json:"offer_report,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Server is the WebSocket chat gateway.
type Server struct {
	engine    *engine.Engine
	generator *generation.Generator
	reporter  *report.Generator
	store     *store.Store

	upgrader websocket.Upgrader
	server   *http.Server
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// New creates the gateway. store may be nil, in which case sessions live
// only as long as their connection.
func New(eng *engine.Engine, gen *generation.Generator, rep *report.Generator, st *store.Store) *Server {
	return &Server{
		engine:    eng,
		generator: gen,
		reporter:  rep,
		store:     st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "server").Logger(),
	}
}

// Handler returns the HTTP handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ChatEndpoint, s.handleChat)
	mux.HandleFunc(HealthEndpoint, s.handleHealth)
	return mux
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{Addr: addr, Handler: s.Handler()}
	s.log.Info().Str("addr", addr).Msg("chat gateway listening")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops the server and waits for open connections to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.store != nil {
		if err := s.store.Health(); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	// The request context dies with this handler, so the connection loop
	// runs its turns on a background context.
	s.serveConn(context.Background(), conn, r.URL.Query().Get("session"))
}

// serveConn runs one connection's read loop. A "session" query parameter
// resumes a persisted session.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn, sessionID string) {
	conn.SetReadLimit(MaxMessageSize)

	sess := s.resumeOrCreate(ctx, sessionID)
	clog := s.log.With().Str("session", sess.ID).Logger()
	clog.Info().Msg("client connected")

	for {
		var in ClientMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				clog.Warn().Err(err).Msg("connection dropped")
			}
			return
		}

		out := s.handleMessage(ctx, sess, &in)
		conn.SetWriteDeadline(time.Now().Add(WriteWait))
		if err := conn.WriteJSON(out); err != nil {
			clog.Warn().Err(err).Msg("write failed")
			return
		}
	}
}

func (s *Server) resumeOrCreate(ctx context.Context, sessionID string) *engine.Session {
	if sessionID != "" && s.store != nil {
		sess, err := s.store.LoadSession(ctx, sessionID)
		if err == nil {
			return sess
		}
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("session resume failed")
		}
	}
	return engine.NewSession()
}

func (s *Server) handleMessage(ctx context.Context, sess *engine.Session, in *ClientMessage) *ServerMessage {
	switch in.Type {
	case "reset":
		sess.Reset()
		s.persist(ctx, sess)
		return &ServerMessage{Type: "reply", SessionID: sess.ID, Stage: string(sess.Stage)}

	case "report":
		if s.reporter == nil {
			return &ServerMessage{Type: "error", SessionID: sess.ID, Error: "reports are not configured"}
		}
		content, err := s.reporter.Generate(ctx, sess)
		if err != nil {
			return &ServerMessage{Type: "error", SessionID: sess.ID, Error: err.Error()}
		}
		if s.store != nil {
			if _, err := s.store.SaveSummary(ctx, sess.ID, content); err != nil {
				s.log.Warn().Err(err).Msg("summary save failed")
			}
		}
		return &ServerMessage{Type: "report", SessionID: sess.ID, Reply: content}

	case "message":
		res := s.engine.ProcessTurn(ctx, sess, in.Text)
		reply := s.generator.Generate(ctx, sess, res, in.Text)
		sess.Append(engine.RoleAssistant, reply.Text)
		s.persist(ctx, sess)

		return &ServerMessage{
			Type:        "reply",
			SessionID:   sess.ID,
			Reply:       reply.Text,
			Expression:  string(reply.Expression),
			Stage:       string(res.Stage),
			Mode:        string(res.Mode),
			TurnState:   string(res.TurnState),
			OfferReport: res.OfferReport,
		}

	default:
		return &ServerMessage{Type: "error", SessionID: sess.ID, Error: fmt.Sprintf("unknown message type %q", in.Type)}
	}
}

func (s *Server) persist(ctx context.Context, sess *engine.Session) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("session save failed")
	}
}
