package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/handler"
	"github.com/sakif/social-analytics/internal/insight"
	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/pipeline"
	"github.com/sakif/social-analytics/internal/service"
)

type MockAnalytics struct {
	Snap   *pipeline.Snapshot
	Page   *service.Page
	User   *service.UserDetail
	Data   any
	Err    error
	Limit  int
	Offset int
	Name   string
	Params insight.Params
}

func (m *MockAnalytics) Snapshot(context.Context) (*pipeline.Snapshot, error) {
	return m.Snap, m.Err
}

func (m *MockAnalytics) Reload(context.Context) (*pipeline.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Snap, nil
}

func (m *MockAnalytics) ListUsers(_ context.Context, limit, offset int) (*service.Page, error) {
	m.Limit, m.Offset = limit, offset
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Page, nil
}

func (m *MockAnalytics) GetUser(_ context.Context, id int64) (*service.UserDetail, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.User, nil
}

func (m *MockAnalytics) Insight(_ context.Context, name string, p insight.Params) (any, error) {
	m.Name, m.Params = name, p
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}

// serve routes req through a chi router so URL params resolve as in
// production.
func serve(t *testing.T, m *MockAnalytics, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := handler.NewAnalyticsHandler(m, logger)

	r := chi.NewRouter()
	r.Get("/healthz", h.HandleHealth)
	r.Get("/api/users", h.HandleListUsers)
	r.Get("/api/users/{id}", h.HandleGetUser)
	r.Get("/api/insights", h.HandleListInsights)
	r.Get("/api/insights/{name}", h.HandleInsight)
	r.Post("/api/pipeline/reload", h.HandleReload)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestHandleHealth(t *testing.T) {
	rr := serve(t, &MockAnalytics{Err: errors.New("unused")}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestHandleListUsers(t *testing.T) {
	t.Run("passes paging through", func(t *testing.T) {
		m := &MockAnalytics{Page: &service.Page{
			Items: []model.IntegratedRecord{{UserID: 1, Name: "Alice"}},
			Total: 1, Limit: 5, Offset: 0,
		}}
		rr := serve(t, m, http.MethodGet, "/api/users?limit=5&offset=0")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, 5, m.Limit)

		var page struct {
			Items []map[string]any `json:"items"`
			Total int              `json:"total"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, "Alice", page.Items[0]["name"])
		assert.Nil(t, page.Items[0]["age"], "unknown age is null")
	})

	t.Run("non-integer limit", func(t *testing.T) {
		rr := serve(t, &MockAnalytics{}, http.MethodGet, "/api/users?limit=ten")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeError(t, rr).Error)
	})
}

func TestHandleGetUser(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		m := &MockAnalytics{User: &service.UserDetail{
			IntegratedRecord: model.IntegratedRecord{UserID: 2, Name: "Bob"},
			ActivityLevel:    model.ActivityVeryHigh,
		}}
		rr := serve(t, m, http.MethodGet, "/api/users/2")

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "Bob", body["name"])
		assert.Equal(t, "Very High", body["activityLevel"])
	})

	t.Run("bad id", func(t *testing.T) {
		rr := serve(t, &MockAnalytics{}, http.MethodGet, "/api/users/abc")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		m := &MockAnalytics{Err: apperror.NotFound("user", "99")}
		rr := serve(t, m, http.MethodGet, "/api/users/99")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "user not found with id 99", decodeError(t, rr).Message)
	})
}

func TestHandleInsights(t *testing.T) {
	t.Run("catalog", func(t *testing.T) {
		rr := serve(t, &MockAnalytics{}, http.MethodGet, "/api/insights")
		require.Equal(t, http.StatusOK, rr.Code)

		var cat []insight.Descriptor
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&cat))
		assert.Len(t, cat, 10)
	})

	t.Run("named insight with params", func(t *testing.T) {
		m := &MockAnalytics{Data: []insight.Count{{Label: "Like", Count: 3}}}
		rr := serve(t, m, http.MethodGet, "/api/insights/top-creators?n=7&bins=12")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "top-creators", m.Name)
		assert.Equal(t, insight.Params{N: 7, Bins: 12}, m.Params)
		assert.JSONEq(t, `{"name":"top-creators","data":[{"label":"Like","count":3}]}`, rr.Body.String())
	})

	t.Run("non-integer n", func(t *testing.T) {
		rr := serve(t, &MockAnalytics{}, http.MethodGet, "/api/insights/top-creators?n=x")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"schema", apperror.SchemaError("posts", "User"), http.StatusUnprocessableEntity, "schema_error"},
		{"timestamp", apperror.MalformedTimestamp("reactions", "Reaction Date", 3, "x"), http.StatusUnprocessableEntity, "malformed_timestamp"},
		{"value", apperror.MalformedValue("users", "Age", 1, "old"), http.StatusUnprocessableEntity, "malformed_value"},
		{"empty post set", apperror.EmptyPostSet(), http.StatusUnprocessableEntity, "empty_post_set"},
		{"validation", apperror.ValidationFailed("n", "bad"), http.StatusBadRequest, "validation_error"},
		{"untyped", errors.New("open /secret/path: permission denied"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, &MockAnalytics{Err: tt.err}, http.MethodGet, "/api/insights/totals")
			assert.Equal(t, tt.status, rr.Code)
			body := decodeError(t, rr)
			assert.Equal(t, tt.kind, body.Error)
			assert.NotContains(t, body.Message, "/secret/path")
		})
	}
}

func TestHandleReload(t *testing.T) {
	m := &MockAnalytics{Snap: &pipeline.Snapshot{
		ID:         "snap-1",
		Attributed: true,
		Records:    make([]model.IntegratedRecord, 4),
		Stats:      []pipeline.TableStats{{Table: "users", RowsIn: 4, RowsOut: 4}},
	}}
	rr := serve(t, m, http.MethodPost, "/api/pipeline/reload")

	require.Equal(t, http.StatusOK, rr.Code)
	var body handler.ReloadResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "snap-1", body.SnapshotID)
	assert.Equal(t, 4, body.Users)
	assert.Len(t, body.Stats, 1)

	m.Err = apperror.EmptyPostSet()
	rr = serve(t, m, http.MethodPost, "/api/pipeline/reload")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
