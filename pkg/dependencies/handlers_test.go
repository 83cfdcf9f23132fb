package dependencies

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	result *Result
}

func (s staticSource) Current() *Result {
	return s.result
}

func newTestRouter(result *Result) *mux.Router {
	router := mux.NewRouter()
	NewDependencyHandlers(staticSource{result: result}).RegisterRoutes(router)
	return router
}

func serve(t *testing.T, router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDependencyHandlers_NoSnapshot(t *testing.T) {
	router := newTestRouter(nil)

	for _, path := range []string{"/packages", "/packages/c.d.1", "/packages/c.d.1/dependents", "/dependents", "/report"} {
		w := serve(t, router, "GET", path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestDependencyHandlers_GetDependents(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	w := serve(t, router, "GET", "/packages/C.D.1/dependents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		ID           string   `json:"id"`
		Dependents   []string `json:"dependents"`
		Count        int      `json:"count"`
		DependedUpon bool     `json:"depended_upon"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	assert.Equal(t, "c.d.1", response.ID)
	assert.Equal(t, []string{"user.exact.1", "user.fuzzy.1", "user.prefix.1"}, response.Dependents)
	assert.Equal(t, 3, response.Count)
	assert.True(t, response.DependedUpon)
}

func TestDependencyHandlers_UnknownPackage(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	assert.Equal(t, http.StatusNotFound, serve(t, router, "GET", "/packages/nobody.x.1/dependents", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, router, "GET", "/packages/nobody.x.1", nil).Code)
}

func TestDependencyHandlers_GetPackage(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	w := serve(t, router, "GET", "/packages/user.fuzzy.1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "user.fuzzy.1", response["id"])
	assert.Equal(t, []interface{}{"C.D.v1"}, response["dependencies"])
	assert.Equal(t, []interface{}{}, response["dependents"])
}

func TestDependencyHandlers_GetPackageSortsDependencies(t *testing.T) {
	packages := append(referenceLibrary(), pkg("u", "many", "1", "z.z.1", "c.d.1", "m.m.latest", "a.a"))
	router := newTestRouter(Analyze(packages))

	w := serve(t, router, "GET", "/packages/u.many.1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Dependencies []string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, []string{"a.a", "c.d.1", "m.m.latest", "z.z.1"}, response.Dependencies)
}

func TestDependencyHandlers_ListPackages(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	w := serve(t, router, "GET", "/packages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Packages []PackageSummary `json:"packages"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 6, response.Count)
	assert.Equal(t, "c.d.1", response.Packages[0].ID)
	assert.Equal(t, "C", response.Packages[0].Creator)
	assert.Equal(t, 3, response.Packages[0].DependentCount)

	w = serve(t, router, "GET", "/packages?depended_upon=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
}

func TestDependencyHandlers_DependencyMap(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	w := serve(t, router, "GET", "/dependents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response, 6)
	assert.Equal(t, []string{"user.latest.1"}, response["c.d.2"])
	assert.Equal(t, []string{}, response["user.latest.1"])
}

func TestDependencyHandlers_Report(t *testing.T) {
	packages := append(referenceLibrary(), pkg("u", "broken", "1", "missing.pkg.1"))
	router := newTestRouter(Analyze(packages))

	w := serve(t, router, "GET", "/report", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 7, report.Packages)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "missing.pkg.1", report.Unresolved[0].Dependency)
}

func TestDependencyHandlers_Resolve(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	body, err := json.Marshal(ResolveRequest{Dependencies: []string{"C.D.latest", "c.d.v1", "nobody.x"}})
	require.NoError(t, err)

	w := serve(t, router, "POST", "/resolve", body)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Results []ResolvedReference `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, []ResolvedReference{
		{Dependency: "C.D.latest", Resolved: true, Target: "c.d.2", Strategy: StrategyLatest},
		{Dependency: "c.d.v1", Resolved: true, Target: "c.d.1", Strategy: StrategyVersionHint},
		{Dependency: "nobody.x", Resolved: false},
	}, response.Results)
}

func TestDependencyHandlers_ResolveBadRequest(t *testing.T) {
	router := newTestRouter(Analyze(referenceLibrary()))

	assert.Equal(t, http.StatusBadRequest, serve(t, router, "POST", "/resolve", []byte("{")).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, router, "POST", "/resolve", []byte(`{"dependencies":[]}`)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, router, "POST", "/resolve", []byte(`{"unknown":1}`)).Code)
}
