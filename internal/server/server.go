// Package server wires the dependency graph and owns the HTTP lifecycle.
//
// This is the composition root: main.go hands over a Config, New builds
// DB → services → handlers → routes in one place, and Start runs the
// listener with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/tap-to-earn/internal/auth"
	"github.com/sakif/tap-to-earn/internal/handler"
	"github.com/sakif/tap-to-earn/internal/middleware"
	sqliteRepo "github.com/sakif/tap-to-earn/internal/repository/sqlite"
	"github.com/sakif/tap-to-earn/internal/service"
)

// Config holds server configuration, assembled in main from the environment.
type Config struct {
	Port        int
	DBPath      string
	BotToken    string   // empty = tap auth unavailable, requests fail with config_error
	JWTSecret   string   // empty = session routes (/api/auth, /api/me) not registered
	CORSOrigins []string // allowed origins for the Mini App frontend
}

// Server bundles the router with the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates the server and assembles the whole dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the API surface:
//
//	POST /api/tap          → verify launch data, record one tap
//	GET  /api/balance      → point total by telegram_id (0 for unknown)
//	GET  /api/leaderboard  → top users by points
//	POST /api/auth         → verify launch data, issue session token
//	GET  /api/me           → stored profile (Bearer token required)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// The Mini App is served from Telegram's embedded browser on a different
	// origin, so the API must answer preflights.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// Session tokens are optional: without JWT_SECRET the core tap flow still
	// works, only /api/auth and /api/me are off.
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}

	authService := service.NewAuthService(s.config.BotToken, s.db, tokens, s.logger)
	tapService := service.NewTapService(s.db, s.db, s.logger)

	tapHandler := handler.NewTapHandler(authService, tapService, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/tap", tapHandler.HandleTap)
		r.Get("/balance", tapHandler.HandleBalance)
		r.Get("/leaderboard", tapHandler.HandleLeaderboard)

		if tokens != nil {
			r.Post("/auth", authHandler.HandleLogin)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens))
				r.Get("/me", authHandler.HandleMe)
			})
		}
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up to
// 30 seconds, close the database (flushes the WAL).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
