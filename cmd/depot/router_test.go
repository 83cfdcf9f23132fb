package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/depot/pkg/api"
	"github.com/platinummonkey/depot/pkg/config"
	"github.com/platinummonkey/depot/pkg/library"
	"github.com/platinummonkey/depot/pkg/observability"
	"github.com/platinummonkey/depot/pkg/storage"
)

func newTestLibrary(t *testing.T) *storage.FileSystemStorage {
	t.Helper()
	store, err := storage.NewFileSystemStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, pkg := range []*api.Package{
		{Creator: "C", PackageName: "D", Version: "1"},
		{Creator: "C", PackageName: "D", Version: "2"},
		{Creator: "User", PackageName: "Latest", Version: "1", Dependencies: map[string]interface{}{"C.D.latest": map[string]interface{}{}}},
	} {
		require.NoError(t, store.SavePackage(ctx, pkg))
	}
	return store
}

func TestNewRouter(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	service := library.NewService(newTestLibrary(t), library.Options{Logger: logger, Metrics: metrics})
	router := newRouter(context.Background(), config.ServerConfig{MaxBodyBytes: 1 << 10}, service, logger, registry, metrics)

	t.Run("503 before first rescan", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/packages", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("rescan then query", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/rescan", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/packages/c.d.2/dependents", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Dependents []string `json:"dependents"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, []string{"user.latest.1"}, response.Dependents)
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		body := `{"dependencies":["` + strings.Repeat("x", 2048) + `"]}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/resolve", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("metrics exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `depot_http_requests_total{method="GET",route="/packages/{id}/dependents",status="200"} 1`)
		assert.Contains(t, w.Body.String(), `depot_rescans_total{status="success"} 1`)
	})
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	service := library.NewService(newTestLibrary(t), library.Options{Logger: logger})
	router := newRouter(context.Background(), config.ServerConfig{}, service, logger, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthMux(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	service := library.NewService(newTestLibrary(t), library.Options{Logger: logger})
	healthMux := newHealthMux(observability.NewHealthChecker(nil, nil, service))

	w := httptest.NewRecorder()
	healthMux.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, err := service.Rescan(context.Background())
	require.NoError(t, err)

	w = httptest.NewRecorder()
	healthMux.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpenBackend_Filesystem(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	cfg := storage.DefaultConfig()
	cfg.FilesystemRoot = t.TempDir()

	b, err := openBackend(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, cfg.FilesystemRoot, b.root)
	assert.Nil(t, b.libraryPublisher())
	assert.Nil(t, b.redisClient())
	assert.Nil(t, b.db)
}

func TestOpenBackend_Unsupported(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	cfg := storage.DefaultConfig()
	cfg.Type = "ftp"

	_, err := openBackend(context.Background(), cfg, logger)
	assert.Error(t, err)
}
