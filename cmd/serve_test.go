package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abefas/GoTodo/config"
	"github.com/abefas/GoTodo/database"
	"github.com/abefas/GoTodo/handlers"
	"github.com/abefas/GoTodo/middleware"
	"github.com/abefas/GoTodo/todo"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_SQLiteAutoMigrate(t *testing.T) {
	logger := log.New(io.Discard)
	cfg := config.Database{
		Driver:      config.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "nested", "todo.db"),
		AutoMigrate: true,
	}

	store, db, err := openStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { db.Close() })

	id, err := store.Insert(context.Background(), "persisted")
	require.NoError(t, err)
	item, found, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "persisted", item.Title)
}

func TestOpenStore_Memory(t *testing.T) {
	store, db, err := openStore(context.Background(), config.Database{Driver: config.DriverMemory}, log.New(io.Discard))
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.NotNil(t, store)
}

func TestNewRouter_ServesAPIAndMetrics(t *testing.T) {
	logger := log.New(io.Discard)
	store, _, err := openStore(context.Background(), config.Database{Driver: config.DriverMemory}, logger)
	require.NoError(t, err)

	h := handlers.NewHandlers(todo.NewService(store, logger), nil, logger)
	router := newRouter(h, middleware.NewMetrics(prometheus.NewRegistry()), logger)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/todo/create", bytes.NewBufferString(`{"title":"wire"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `route="/todo/create"`))
}

func TestNewRouter_UnmatchedRequestsAreLoggedAndCounted(t *testing.T) {
	var logs bytes.Buffer
	logger := log.New(&logs)
	h := handlers.NewHandlers(todo.NewService(database.NewMemoryStore(), logger), nil, logger)
	router := newRouter(h, middleware.NewMetrics(prometheus.NewRegistry()), logger)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/todo/id/1", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	assert.Contains(t, logs.String(), "/todo/id/1")
	assert.Contains(t, logs.String(), "/nope")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `gotodo_http_requests_total{method="DELETE",route="unmatched",status="405"} 1`)
	assert.Contains(t, body, `gotodo_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}
