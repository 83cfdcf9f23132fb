package library

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/depot/pkg/dependencies"
	"github.com/platinummonkey/depot/pkg/httputil"
	"github.com/platinummonkey/depot/pkg/observability"
)

// LibraryHandlers provides HTTP handlers for snapshot management
type LibraryHandlers struct {
	service       *Service
	rescanLimiter *httputil.RateLimiter
}

// NewLibraryHandlers creates new library handlers
func NewLibraryHandlers(service *Service) *LibraryHandlers {
	return &LibraryHandlers{service: service}
}

// WithRescanLimiter rate limits POST /rescan per client
func (h *LibraryHandlers) WithRescanLimiter(limiter *httputil.RateLimiter) *LibraryHandlers {
	h.rescanLimiter = limiter
	return h
}

// RegisterRoutes registers library routes
func (h *LibraryHandlers) RegisterRoutes(router *mux.Router) {
	var rescan http.Handler = http.HandlerFunc(h.rescan)
	if h.rescanLimiter != nil {
		rescan = httputil.RateLimitMiddleware(h.rescanLimiter)(rescan)
	}
	router.Handle("/rescan", rescan).Methods("POST")
	router.HandleFunc("/snapshot", h.getSnapshot).Methods("GET")
}

// SnapshotResponse describes a snapshot over HTTP
type SnapshotResponse struct {
	ScanID      string              `json:"scan_id"`
	Fingerprint string              `json:"fingerprint"`
	BuiltAt     time.Time           `json:"built_at"`
	DurationMS  int64               `json:"duration_ms"`
	Cached      bool                `json:"cached"`
	Report      dependencies.Report `json:"report"`
}

func newSnapshotResponse(snapshot *Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ScanID:      snapshot.ScanID,
		Fingerprint: snapshot.Fingerprint,
		BuiltAt:     snapshot.BuiltAt,
		DurationMS:  snapshot.Duration.Milliseconds(),
		Cached:      snapshot.Cached,
		Report:      snapshot.Result.Report,
	}
}

// rescan handles POST /rescan
func (h *LibraryHandlers) rescan(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Rescan(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("Rescan request failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, newSnapshotResponse(snapshot))
}

// getSnapshot handles GET /snapshot
func (h *LibraryHandlers) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot()
	if errors.Is(err, ErrNoSnapshot) {
		httputil.WriteServiceUnavailable(w, err.Error())
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, newSnapshotResponse(snapshot))
}
