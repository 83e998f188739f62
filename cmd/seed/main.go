// Command seed imports the four CSV exports into the SQLite source database.
//
//	seed -data data -db data/social.db
//
// Existing rows are replaced. Schema problems are reported before anything is
// written.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/social-analytics/internal/repository/csvdir"
	sqliteRepo "github.com/sakif/social-analytics/internal/repository/sqlite"
)

func main() {
	dataDir := flag.String("data", "data", "directory holding the CSV exports")
	dbPath := flag.String("db", "data/social.db", "SQLite database to write")
	timeout := flag.Duration("timeout", 5*time.Minute, "import timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(*dataDir, *dbPath, *timeout, logger); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(dataDir, dbPath string, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	raw, err := csvdir.New(dataDir, logger).Load(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}
	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Import(ctx, raw); err != nil {
		return err
	}

	for _, t := range raw.Tables() {
		logger.Info("imported table", slog.String("table", t.Name), slog.Int("rows", t.Len()))
	}
	return nil
}
