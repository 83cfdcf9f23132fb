package dependencies

import (
	"sort"
	"strings"

	"github.com/platinummonkey/depot/pkg/api"
)

// Duplicate is a canonical identifier shared by more than one input package.
// The last package with the identifier is the one kept in the index.
type Duplicate struct {
	ID          string `json:"id" yaml:"id"`
	Occurrences int    `json:"occurrences" yaml:"occurrences"`
}

// UnresolvedDependency is a declared dependency that matched no installed package.
type UnresolvedDependency struct {
	Consumer   string `json:"consumer" yaml:"consumer"`
	Dependency string `json:"dependency" yaml:"dependency"`
}

// Report summarises the data-quality findings of a build.
type Report struct {
	Packages       int                    `json:"packages" yaml:"packages"`
	Indexed        int                    `json:"indexed" yaml:"indexed"`
	Edges          int                    `json:"edges" yaml:"edges"`
	Duplicates     []Duplicate            `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Unresolved     []UnresolvedDependency `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	StrategyCounts map[Strategy]int       `json:"strategy_counts" yaml:"strategy_counts"`
}

func (r *Report) sort() {
	sort.Slice(r.Duplicates, func(i, j int) bool {
		return r.Duplicates[i].ID < r.Duplicates[j].ID
	})
	sort.Slice(r.Unresolved, func(i, j int) bool {
		a, b := r.Unresolved[i], r.Unresolved[j]
		if a.Consumer != b.Consumer {
			return a.Consumer < b.Consumer
		}
		return a.Dependency < b.Dependency
	})
}

// Result is the immutable output of Analyze.
type Result struct {
	Dependents ReverseDependencyMap `json:"dependents"`
	Report     Report               `json:"report"`

	idx *index
}

// DependentsOf returns the sorted consumers of the package id.
func (r *Result) DependentsOf(id string) []string {
	return r.Dependents.Consumers(id)
}

// IsDependedUpon reports whether a package other than id itself depends on id.
func (r *Result) IsDependedUpon(id string) bool {
	id = strings.ToLower(id)
	for consumer := range r.Dependents[id] {
		if consumer != id {
			return true
		}
	}
	return false
}

// Package returns the indexed package with the canonical identifier id.
func (r *Result) Package(id string) (api.Package, bool) {
	if r.idx == nil {
		return api.Package{}, false
	}
	pkg, ok := r.idx.packages[strings.ToLower(id)]
	return pkg, ok
}

// Latest returns the identifier of the highest numeric version of base.
func (r *Result) Latest(base string) (string, bool) {
	if r.idx == nil {
		return "", false
	}
	entries := r.idx.versions[strings.ToLower(base)]
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].id, true
}

// Resolve resolves a dependency reference against the indexed packages using
// the same rules as Analyze.
func (r *Result) Resolve(dependency string) (Resolution, bool) {
	if r.idx == nil {
		return Resolution{}, false
	}
	return r.idx.resolve(dependency)
}
