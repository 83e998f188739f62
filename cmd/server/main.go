// Package main is the entry point for the analytics API server.
//
// Configuration comes from environment variables:
//
//	PORT                listen port (8080)
//	SOURCE              csv or sqlite (csv)
//	DATA_DIR            CSV export directory (data)
//	DB_PATH             SQLite file (data/social.db)
//	REFRESH_SCHEDULE    cron spec for background rebuilds, e.g. "@every 10m"
//	ADMIN_TOKEN_SECRET  HS256 secret for POST /api/pipeline/reload
//	CORS_ORIGINS        comma-separated allowed origins (*)
//	CACHE_CAPACITY      snapshots kept in memory (4)
//	LOG_LEVEL           debug, info, warn or error (info)
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakif/social-analytics/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))

	port := envInt(logger, "PORT", 8080)
	cacheCapacity := envInt(logger, "CACHE_CAPACITY", 0)

	source := envOr("SOURCE", server.SourceCSV)
	dataDir := envOr("DATA_DIR", "data")
	dbPath := envOr("DB_PATH", "data/social.db")

	if source == server.SourceSQLite {
		// sqlite creates the file but not its directory.
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	cfg := server.Config{
		Port:             port,
		Source:           source,
		DataDir:          dataDir,
		DBPath:           dbPath,
		RefreshSchedule:  os.Getenv("REFRESH_SCHEDULE"),
		AdminTokenSecret: os.Getenv("ADMIN_TOKEN_SECRET"),
		CORSOrigins:      origins,
		CacheCapacity:    cacheCapacity,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(logger *slog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Error("invalid integer environment variable", slog.String("key", key), slog.String("value", v))
		os.Exit(1)
	}
	return n
}

func logLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
