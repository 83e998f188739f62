// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and call the service; the service loads source tables
// through a repository.SourceRepository, runs the pipeline and keeps the
// resulting snapshots in a cache keyed by a hash of the input tables.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/cache"
	"github.com/sakif/social-analytics/internal/dataset"
	"github.com/sakif/social-analytics/internal/insight"
	"github.com/sakif/social-analytics/internal/metrics"
	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/pipeline"
	"github.com/sakif/social-analytics/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// AnalyticsService serves the integrated table and insights.
type AnalyticsService struct {
	source  repository.SourceRepository
	cache   *cache.Store[*pipeline.Snapshot]
	metrics *metrics.Registry
	logger  *slog.Logger

	// mu serializes builds so a request and a scheduled refresh never run
	// the pipeline for the same input at the same time.
	mu sync.Mutex
}

// NewAnalyticsService creates an AnalyticsService. A nil store gets a
// default-capacity one; a nil registry gets a private one.
func NewAnalyticsService(source repository.SourceRepository, store *cache.Store[*pipeline.Snapshot], m *metrics.Registry, logger *slog.Logger) *AnalyticsService {
	if store == nil {
		store = cache.New[*pipeline.Snapshot](cache.DefaultCapacity)
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &AnalyticsService{
		source:  source,
		cache:   store,
		metrics: m,
		logger:  logger,
	}
}

// Snapshot returns the snapshot for the current source contents, building it
// if the cache has none.
func (s *AnalyticsService) Snapshot(ctx context.Context) (*pipeline.Snapshot, error) {
	return s.snapshot(ctx, false)
}

// Reload drops the cached snapshot for the current source contents and
// rebuilds it.
func (s *AnalyticsService) Reload(ctx context.Context) (*pipeline.Snapshot, error) {
	return s.snapshot(ctx, true)
}

func (s *AnalyticsService) snapshot(ctx context.Context, force bool) (*pipeline.Snapshot, error) {
	raw, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load source tables", slog.String("error", err.Error()))
		return nil, fmt.Errorf("loading source tables: %w", err)
	}
	key := cache.KeyOf(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if force {
		s.cache.Invalidate(key)
	} else if snap, ok := s.cache.Get(key); ok {
		s.metrics.CacheHits.Inc()
		return snap, nil
	}
	s.metrics.CacheMisses.Inc()

	start := time.Now()
	snap, err := s.build(raw, key)
	s.metrics.ObserveRun(snap, time.Since(start))
	if err != nil {
		s.logger.Warn("pipeline failed", slog.String("error", err.Error()))
		return nil, err
	}

	s.cache.Put(key, snap)
	s.logger.Info("snapshot built",
		slog.String("id", snap.ID),
		slog.Int("users", len(snap.Records)),
		slog.Int("posts", len(snap.Posts)),
		slog.Int("reactions", len(snap.Reactions)),
		slog.Bool("attributed", snap.Attributed),
		slog.Duration("duration", time.Since(start)),
	)
	for _, st := range snap.Stats {
		s.logger.Info("table cleaned",
			slog.String("snapshot", snap.ID),
			slog.String("table", st.Table),
			slog.Int("rows_in", st.RowsIn),
			slog.Int("dropped", st.Dropped),
			slog.Int("imputed", st.Imputed),
			slog.Int("duplicates", st.Duplicates),
			slog.Int("rows_out", st.RowsOut),
		)
	}
	return snap, nil
}

// build runs the pipeline. An empty post set falls back to an unattributed
// integration; every other error is returned unchanged.
func (s *AnalyticsService) build(raw dataset.Raw, key cache.Key) (*pipeline.Snapshot, error) {
	c, err := pipeline.Clean(raw)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Integrate(c)
	if errors.Is(err, apperror.ErrEmptyPostSet) {
		s.logger.Warn("no posts after cleaning, reactions left unattributed")
		res = pipeline.IntegrateUnattributed(c)
	} else if err != nil {
		return nil, err
	}
	return pipeline.NewSnapshot(c, res, string(key)), nil
}

// Page is one slice of the integrated table.
type Page struct {
	Items  []model.IntegratedRecord `json:"items"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// ListUsers pages through the integrated table in user id order.
func (s *AnalyticsService) ListUsers(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	total := len(snap.Records)
	start := min(offset, total)
	end := min(start+limit, total)
	return &Page{
		Items:  snap.Records[start:end],
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// UserDetail is one record plus its activity level.
type UserDetail struct {
	model.IntegratedRecord
	ActivityLevel model.ActivityLevel `json:"activityLevel"`
}

// GetUser returns the record of one user id.
func (s *AnalyticsService) GetUser(ctx context.Context, id int64) (*UserDetail, error) {
	if id < 1 {
		return nil, apperror.ValidationFailed("id", "user id must be a positive integer")
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Record(id)
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprint(id))
	}
	return &UserDetail{IntegratedRecord: rec, ActivityLevel: model.ActivityLevelOf(rec)}, nil
}

// Insight computes a named insight over the current snapshot.
func (s *AnalyticsService) Insight(ctx context.Context, name string, p insight.Params) (any, error) {
	if p.N < 0 {
		return nil, apperror.ValidationFailed("n", "n must not be negative")
	}
	if p.Bins < 0 {
		return nil, apperror.ValidationFailed("bins", "bins must not be negative")
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return insight.Compute(snap, name, p)
}
