package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/insight"
	"github.com/sakif/social-analytics/internal/pipeline"
	"github.com/sakif/social-analytics/internal/service"
)

// Analytics is the part of service.AnalyticsService the handlers need.
type Analytics interface {
	Snapshot(ctx context.Context) (*pipeline.Snapshot, error)
	Reload(ctx context.Context) (*pipeline.Snapshot, error)
	ListUsers(ctx context.Context, limit, offset int) (*service.Page, error)
	GetUser(ctx context.Context, id int64) (*service.UserDetail, error)
	Insight(ctx context.Context, name string, p insight.Params) (any, error)
}

var _ Analytics = (*service.AnalyticsService)(nil)

// AnalyticsHandler serves the integrated table, the insights and the
// pipeline reload.
type AnalyticsHandler struct {
	svc    Analytics
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc Analytics, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

// HandleListUsers serves GET /api/users?limit=&offset=.
func (h *AnalyticsHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGetUser serves GET /api/users/{id}.
func (h *AnalyticsHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("id", "user id must be an integer"))
		return
	}

	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleListInsights serves GET /api/insights.
func (h *AnalyticsHandler) HandleListInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insight.Catalog())
}

// HandleInsight serves GET /api/insights/{name}?n=&bins=.
func (h *AnalyticsHandler) HandleInsight(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n")
	if err != nil {
		writeError(w, err)
		return
	}
	bins, err := queryInt(r, "bins")
	if err != nil {
		writeError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	data, err := h.svc.Insight(r.Context(), name, insight.Params{N: n, Bins: bins})
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name": name,
		"data": data,
	})
}

// ReloadResponse summarises a rebuilt snapshot.
type ReloadResponse struct {
	SnapshotID string                `json:"snapshotId"`
	Attributed bool                  `json:"attributed"`
	Users      int                   `json:"users"`
	Posts      int                   `json:"posts"`
	Reactions  int                   `json:"reactions"`
	Stats      []pipeline.TableStats `json:"stats"`
}

// HandleReload serves POST /api/pipeline/reload.
func (h *AnalyticsHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Reload(r.Context())
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	h.logger.Info("pipeline reloaded", slog.String("snapshot", snap.ID))
	writeJSON(w, http.StatusOK, ReloadResponse{
		SnapshotID: snap.ID,
		Attributed: snap.Attributed,
		Users:      len(snap.Records),
		Posts:      len(snap.Posts),
		Reactions:  len(snap.Reactions),
		Stats:      snap.Stats,
	})
}

// HandleHealth serves GET /healthz. It does not touch the source so a broken
// data directory does not take the process out of rotation.
func (h *AnalyticsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AnalyticsHandler) logFailure(r *http.Request, err error) {
	h.logger.Warn("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
