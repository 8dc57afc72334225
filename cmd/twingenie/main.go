package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/chat"
	"github.com/twingenie/twingenie/internal/llm"
	"github.com/twingenie/twingenie/internal/mood"
	"github.com/twingenie/twingenie/internal/platform/config"
	"github.com/twingenie/twingenie/internal/platform/database"
	"github.com/twingenie/twingenie/internal/platform/server"
	"github.com/twingenie/twingenie/internal/platform/telemetry"
	"github.com/twingenie/twingenie/internal/profile"
	"github.com/twingenie/twingenie/internal/tone"
	"github.com/twingenie/twingenie/internal/voice"
)

// devUserID is the identity behind "Bearer dev". Stores key rows by UUID.
const devUserID = "00000000-0000-0000-0000-000000000001"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("twingenie starting",
		"version", "0.1.0",
		"port", cfg.Server.Port,
	)

	if cfg.Auth.JWT.Secret == "" && !cfg.Auth.DevMode {
		return errors.New("auth.jwt.secret is required outside dev mode")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The API still serves health, auth and dev traffic without a database.
	var pool *database.Pool
	if cfg.Database.URL != "" {
		slog.Info("connecting to database")
		p, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			slog.Warn("database connection failed, starting without DB", "error", err)
		} else {
			pool = p
			defer pool.Close()

			if cfg.Database.SchemaDir != "" {
				if err := database.ApplySchema(ctx, pool, cfg.Database.SchemaDir); err != nil {
					return fmt.Errorf("applying schema: %w", err)
				}
				slog.Info("schema applied", "dir", cfg.Database.SchemaDir)
			}
		}
	}

	// Auth
	tokenSvc := auth.NewTokenService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Audience, cfg.Auth.JWT.ExpiryHours)

	var provider auth.Provider
	if cfg.Auth.Supabase.URL != "" {
		provider = auth.NewGoTrueClient(cfg.Auth.Supabase.URL, cfg.Auth.Supabase.AnonKey, 10*time.Second)
	} else {
		slog.Warn("supabase url not set, signup and login are disabled")
	}
	authHandler := auth.NewHandler(provider)

	// Audit
	var auditLogger audit.Logger = audit.NopLogger{}
	var auditHandler *audit.Handler
	auditStore := audit.NewStore()
	if pool != nil {
		auditLogger = audit.NewAsyncLogger(pool, auditStore, audit.LoggerConfig{
			BufferSize:    cfg.Audit.BufferSize,
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: time.Duration(cfg.Audit.FlushIntervalMS) * time.Millisecond,
		})
		defer auditLogger.Close()
		auditHandler = audit.NewHandler(pool, auditStore)
		slog.Info("audit logger started")
	} else {
		auditHandler = audit.NewHandler(nil, auditStore)
	}

	// Chat
	if cfg.LLM.APIKey == "" {
		slog.Warn("llm api key not set, chat replies will use canned responses")
	}
	completer := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	var (
		chatRepo    chat.Repository
		moodRepo    mood.Repository
		profileRepo profile.Repository
	)
	if pool != nil {
		chatRepo = chat.NewStore(pool)
		moodRepo = mood.NewStore(pool)
		profileRepo = profile.NewStore(pool)
	}

	chatSvc := chat.NewService(chatRepo, completer, tone.New(), auditLogger, chat.ServiceConfig{
		Intensity:   cfg.Tone.Intensity,
		HistorySize: cfg.LLM.HistorySize,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	var devIdentity *auth.Identity
	if cfg.Auth.DevMode {
		slog.Warn("running in dev mode: authentication bypassed with 'Bearer dev'")
		devIdentity = &auth.Identity{
			UserID: devUserID,
			Email:  "dev@twingenie.local",
			Role:   auth.RoleAuthenticated,
		}
	}

	chatHandler := chat.NewHandler(chat.HandlerConfig{
		Service:          chatSvc,
		Tokens:           tokenSvc,
		DevIdentity:      devIdentity,
		WSAllowedOrigins: originHosts(cfg.CORS.Origins()),
	})

	var (
		moodHandler    *mood.Handler
		profileHandler *profile.Handler
	)
	if pool != nil {
		moodHandler = mood.NewHandler(moodRepo, auditLogger)
		profileHandler = profile.NewHandler(profileRepo, auditLogger)
	}

	separateMetrics := cfg.Metrics.Enabled && cfg.Metrics.Port > 0

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, server.Dependencies{
		Pool:               pool,
		Auth:               tokenSvc,
		AuthHandler:        authHandler,
		ChatHandler:        chatHandler,
		MoodHandler:        moodHandler,
		ProfileHandler:     profileHandler,
		VoiceHandler:       voice.NewHandler(auditLogger),
		AuditHandler:       auditHandler,
		DevMode:            cfg.Auth.DevMode,
		DevIdentity:        devIdentity,
		ServeMetrics:       cfg.Metrics.Enabled && !separateMetrics,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORS.Origins(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if separateMetrics {
		g.Go(func() error {
			return serveMetrics(gctx, fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port))
		})
	}

	slog.Info("server ready", "addr", addr, "dev_mode", cfg.Auth.DevMode)
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", telemetry.MetricsHandler())
	ms := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listener starting", "addr", addr)
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics listener: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ms.Shutdown(shutdownCtx)
	}
}

// originHosts turns CORS origins into the host patterns the websocket
// origin check matches against.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
