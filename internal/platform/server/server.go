package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/chat"
	"github.com/twingenie/twingenie/internal/mood"
	"github.com/twingenie/twingenie/internal/platform/middleware"
	"github.com/twingenie/twingenie/internal/platform/telemetry"
	"github.com/twingenie/twingenie/internal/profile"
	"github.com/twingenie/twingenie/internal/voice"
)

// Dependencies holds all injected dependencies for the server.
type Dependencies struct {
	Pool           *pgxpool.Pool
	Auth           *auth.TokenService
	AuthHandler    *auth.Handler
	ChatHandler    *chat.Handler
	MoodHandler    *mood.Handler
	ProfileHandler *profile.Handler
	VoiceHandler   *voice.Handler
	AuditHandler   *audit.Handler
	DevMode        bool
	DevIdentity    *auth.Identity
	// ServeMetrics mounts /metrics on this server instead of a separate
	// listener.
	ServeMetrics       bool
	Logger             *slog.Logger
	CORSAllowedOrigins []string
}

type Server struct {
	httpServer   *http.Server
	protectedMux *http.ServeMux
	pool         *pgxpool.Pool
	handler      http.Handler
}

func New(addr string, deps Dependencies) *Server {
	protectedMux := http.NewServeMux()

	var protectedHandler http.Handler = protectedMux
	if deps.Auth != nil {
		if deps.DevMode && deps.DevIdentity != nil {
			protectedHandler = auth.MiddlewareWithDevMode(deps.Auth, deps.DevIdentity)(protectedHandler)
		} else {
			protectedHandler = auth.Middleware(deps.Auth)(protectedHandler)
		}
	}

	topMux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			ReadTimeout: 15 * time.Second,
			// Chat turns wait on the LLM; websockets hijack and are unaffected.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		protectedMux: protectedMux,
		pool:         deps.Pool,
	}

	// Public routes
	topMux.HandleFunc("GET /healthz", s.handleHealth)
	topMux.HandleFunc("GET /readyz", s.handleReadiness)
	if deps.ServeMetrics {
		topMux.Handle("GET /metrics", telemetry.MetricsHandler())
	}
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterRoutes(topMux)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterPublicRoutes(topMux)
	}

	// Authenticated routes
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(protectedMux)
	}
	if deps.MoodHandler != nil {
		deps.MoodHandler.RegisterRoutes(protectedMux)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterRoutes(protectedMux)
	}
	if deps.VoiceHandler != nil {
		deps.VoiceHandler.RegisterRoutes(protectedMux)
	}
	if deps.AuditHandler != nil {
		deps.AuditHandler.RegisterRoutes(protectedMux)
	}

	// All other routes go through auth middleware
	topMux.Handle("/", protectedHandler)

	var handler http.Handler = middleware.Recover(topMux)
	if deps.Logger != nil {
		handler = middleware.Logging(deps.Logger)(handler)
	}
	handler = middleware.RequestID(handler)
	if len(deps.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(deps.CORSAllowedOrigins)(handler)
	}

	s.handler = handler
	s.httpServer.Handler = handler
	return s
}

// Handler returns the full middleware-wrapped handler chain (for testing).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ProtectedMux returns the mux for authenticated routes.
func (s *Server) ProtectedMux() *http.ServeMux {
	return s.protectedMux
}

func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	slog.Info("server starting", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not connected",
		})
		return
	}

	if err := s.pool.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
