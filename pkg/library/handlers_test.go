package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/depot/pkg/httputil"
	"github.com/platinummonkey/depot/pkg/observability"
)

func newLibraryRouter(service *Service) *mux.Router {
	router := mux.NewRouter()
	NewLibraryHandlers(service).RegisterRoutes(router)
	return router
}

func TestLibraryHandlers_SnapshotBeforeRescan(t *testing.T) {
	service, _ := newTestService(t, &fakeSource{}, Options{})
	router := newLibraryRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/snapshot", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLibraryHandlers_RescanAndSnapshot(t *testing.T) {
	service, _ := newTestService(t, &fakeSource{packages: samplePackages()}, Options{})
	router := newLibraryRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/rescan", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var rescanned SnapshotResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rescanned))
	assert.NotEmpty(t, rescanned.ScanID)
	assert.Equal(t, 5, rescanned.Report.Packages)
	assert.Equal(t, 2, rescanned.Report.Edges)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var current SnapshotResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
	assert.Equal(t, rescanned.ScanID, current.ScanID)
	assert.Equal(t, rescanned.Fingerprint, current.Fingerprint)
}

func TestLibraryHandlers_RescanFailure(t *testing.T) {
	service, _ := newTestService(t, &fakeSource{err: errors.New("boom")}, Options{})
	router := newLibraryRouter(service)

	var requestLogs bytes.Buffer
	ctx := observability.WithLogger(context.Background(), observability.NewLogger(observability.InfoLevel, &requestLogs))
	ctx = observability.WithRequestID(ctx, "req-fail")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/rescan", nil).WithContext(ctx))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
	assert.Contains(t, requestLogs.String(), "Rescan request failed")
	assert.Contains(t, requestLogs.String(), "req-fail")
}

func TestLibraryHandlers_RescanRateLimited(t *testing.T) {
	service, _ := newTestService(t, &fakeSource{packages: samplePackages()}, Options{})
	limiter := httputil.NewRateLimiter(httputil.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})

	router := mux.NewRouter()
	NewLibraryHandlers(service).WithRescanLimiter(limiter).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/rescan", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/rescan", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/snapshot", nil))
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}
