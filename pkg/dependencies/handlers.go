package dependencies

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/depot/pkg/httputil"
	"github.com/platinummonkey/depot/pkg/observability"
)

// ResultSource supplies the most recent analysis result, or nil before the
// first build.
type ResultSource interface {
	Current() *Result
}

// DependencyHandlers provides HTTP handlers for reverse dependency queries
type DependencyHandlers struct {
	source ResultSource
}

// NewDependencyHandlers creates new dependency handlers
func NewDependencyHandlers(source ResultSource) *DependencyHandlers {
	return &DependencyHandlers{source: source}
}

// RegisterRoutes registers dependency routes
func (h *DependencyHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/packages", h.listPackages).Methods("GET")
	router.HandleFunc("/packages/{id}", h.getPackage).Methods("GET")
	router.HandleFunc("/packages/{id}/dependents", h.getDependents).Methods("GET")
	router.HandleFunc("/dependents", h.getDependencyMap).Methods("GET")
	router.HandleFunc("/report", h.getReport).Methods("GET")
	router.HandleFunc("/resolve", h.resolve).Methods("POST")
}

// PackageSummary is one entry of the package listing
type PackageSummary struct {
	ID             string `json:"id"`
	Creator        string `json:"creator"`
	PackageName    string `json:"package_name"`
	Version        string `json:"version"`
	DependentCount int    `json:"dependent_count"`
	DependedUpon   bool   `json:"depended_upon"`
}

// ResolveRequest is the body of POST /resolve
type ResolveRequest struct {
	Dependencies []string `json:"dependencies"`
}

// ResolvedReference is one entry of the POST /resolve response
type ResolvedReference struct {
	Dependency string   `json:"dependency"`
	Resolved   bool     `json:"resolved"`
	Target     string   `json:"target,omitempty"`
	Strategy   Strategy `json:"strategy,omitempty"`
}

func (h *DependencyHandlers) current(w http.ResponseWriter) *Result {
	result := h.source.Current()
	if result == nil {
		httputil.WriteServiceUnavailable(w, "dependency index has not been built yet")
	}
	return result
}

// listPackages handles GET /packages
func (h *DependencyHandlers) listPackages(w http.ResponseWriter, r *http.Request) {
	result := h.current(w)
	if result == nil {
		return
	}

	dependedOnly := r.URL.Query().Get("depended_upon") == "true"

	packages := make([]PackageSummary, 0, len(result.Dependents))
	for _, id := range result.Dependents.Identifiers() {
		pkg, _ := result.Package(id)
		summary := PackageSummary{
			ID:             id,
			Creator:        pkg.Creator,
			PackageName:    pkg.PackageName,
			Version:        pkg.Version,
			DependentCount: len(result.Dependents[id]),
			DependedUpon:   result.IsDependedUpon(id),
		}
		if dependedOnly && !summary.DependedUpon {
			continue
		}
		packages = append(packages, summary)
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"packages": packages,
		"count":    len(packages),
	})
}

// getPackage handles GET /packages/{id}
func (h *DependencyHandlers) getPackage(w http.ResponseWriter, r *http.Request) {
	result := h.current(w)
	if result == nil {
		return
	}

	id := strings.ToLower(mux.Vars(r)["id"])
	pkg, ok := result.Package(id)
	if !ok {
		httputil.WriteNotFoundError(w, "package not found: "+id)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"id":           id,
		"package":      pkg,
		"dependents":   result.DependentsOf(id),
		"dependencies": pkg.DependencyIDs(),
	})
}

// getDependents handles GET /packages/{id}/dependents
func (h *DependencyHandlers) getDependents(w http.ResponseWriter, r *http.Request) {
	result := h.current(w)
	if result == nil {
		return
	}

	id := strings.ToLower(mux.Vars(r)["id"])
	dependents := result.DependentsOf(id)
	if dependents == nil {
		httputil.WriteNotFoundError(w, "package not found: "+id)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"id":            id,
		"dependents":    dependents,
		"count":         len(dependents),
		"depended_upon": result.IsDependedUpon(id),
	})
}

// getDependencyMap handles GET /dependents
func (h *DependencyHandlers) getDependencyMap(w http.ResponseWriter, r *http.Request) {
	result := h.current(w)
	if result == nil {
		return
	}

	httputil.WriteSuccess(w, result.Dependents)
}

// getReport handles GET /report
func (h *DependencyHandlers) getReport(w http.ResponseWriter, r *http.Request) {
	result := h.current(w)
	if result == nil {
		return
	}

	httputil.WriteSuccess(w, result.Report)
}

// resolve handles POST /resolve
func (h *DependencyHandlers) resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Dependencies) == 0 {
		httputil.WriteBadRequest(w, "dependencies must not be empty")
		return
	}

	result := h.current(w)
	if result == nil {
		return
	}

	logger := observability.FromContext(r.Context())
	refs := make([]ResolvedReference, 0, len(req.Dependencies))
	for _, dep := range req.Dependencies {
		res, ok := result.Resolve(dep)
		ref := ResolvedReference{Dependency: dep, Resolved: ok}
		if ok {
			ref.Target = res.Target
			ref.Strategy = res.Strategy
		} else {
			logger.WithField("dependency", dep).Debug("Dependency did not resolve")
		}
		refs = append(refs, ref)
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"results": refs,
	})
}
