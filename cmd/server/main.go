// Command server runs the tap-to-earn backend.
//
// main stays minimal: read configuration, build the logger, hand everything
// to internal/server. Configuration comes from the environment, with an
// optional .env file for local development:
//
//	TG_BOT_TOKEN  bot token shared with Telegram; without it /api/tap
//	              answers 500 config_error (never "accept unverified")
//	JWT_SECRET    secret for session tokens; unset disables /api/auth and
//	              /api/me, the tap flow keeps working
//	PORT          listen port, default 8080
//	DB_PATH       SQLite file, default data/tap.db
//	CORS_ORIGINS  comma-separated allowed origins, default *
//	LOG_LEVEL     debug|info|warn|error, default info
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/tap-to-earn/internal/server"
)

func main() {
	// Missing .env is fine — production sets real environment variables.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
		port = p
	}

	dbPath := "data/tap.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	botToken := os.Getenv("TG_BOT_TOKEN")
	if botToken == "" {
		// The server still starts so /api/balance keeps working, but taps
		// will fail loudly until the token is configured.
		logger.Warn("TG_BOT_TOKEN not set — tap authentication is unavailable")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set — session routes are disabled")
	}

	corsOrigins := []string{"*"}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		corsOrigins = strings.Split(raw, ",")
		for i := range corsOrigins {
			corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
		}
	}

	cfg := server.Config{
		Port:        port,
		DBPath:      dbPath,
		BotToken:    botToken,
		JWTSecret:   jwtSecret,
		CORSOrigins: corsOrigins,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
