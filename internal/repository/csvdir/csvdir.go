// Package csvdir reads the raw tables from a directory of CSV exports.
package csvdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/social-analytics/internal/dataset"
	"github.com/sakif/social-analytics/internal/repository"
)

var _ repository.SourceRepository = (*Source)(nil)

// FileNames maps each table to its export file name.
var FileNames = map[string]string{
	dataset.Users:       "user_table.csv",
	dataset.Friendships: "friends_table.csv",
	dataset.Posts:       "posts_table.csv",
	dataset.Reactions:   "reactions_table.csv",
}

// Source reads FileNames from one directory.
type Source struct {
	dir    string
	logger *slog.Logger
}

// New creates a Source over dir. Files are opened on each Load, so edits
// to the exports are picked up by the next load.
func New(dir string, logger *slog.Logger) *Source {
	return &Source{dir: dir, logger: logger}
}

// Load reads the four CSV files.
func (s *Source) Load(ctx context.Context) (dataset.Raw, error) {
	tables := make(map[string]*dataset.Table, len(dataset.TableNames))
	for _, name := range dataset.TableNames {
		if err := ctx.Err(); err != nil {
			return dataset.Raw{}, err
		}
		t, err := ReadFile(name, filepath.Join(s.dir, FileNames[name]))
		if err != nil {
			return dataset.Raw{}, err
		}
		s.logger.Debug("csv table loaded",
			slog.String("table", name),
			slog.Int("rows", t.Len()),
		)
		tables[name] = t
	}
	return dataset.Raw{
		Users:       tables[dataset.Users],
		Friendships: tables[dataset.Friendships],
		Posts:       tables[dataset.Posts],
		Reactions:   tables[dataset.Reactions],
	}, nil
}

// ReadFile parses one CSV file as the named table.
func ReadFile(name, path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvdir: opening %s: %w", name, err)
	}
	defer f.Close()
	return dataset.ReadCSV(name, f)
}
