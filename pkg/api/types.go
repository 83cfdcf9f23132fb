package api

import (
	"sort"
	"strings"
)

// Package is the parsed metadata of one installed content package.
type Package struct {
	Creator     string `json:"creator" yaml:"creator"`
	PackageName string `json:"packageName" yaml:"packageName"`
	Version     string `json:"version" yaml:"version"`

	// Dependencies maps a declared dependency identifier to free-form
	// per-dependency metadata. Only the keys matter for resolution.
	Dependencies map[string]interface{} `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// Source records where the metadata was read from (file path, object key,
	// table row). It is informational and never part of the identity.
	Source string `json:"source,omitempty" yaml:"-"`
}

// ID returns the canonical lowercase creator.packageName.version identifier.
func (p Package) ID() string {
	return strings.ToLower(p.Creator + "." + p.PackageName + "." + p.Version)
}

// BaseID returns the lowercase creator.packageName identifier shared by all
// versions of the package.
func (p Package) BaseID() string {
	return strings.ToLower(p.Creator + "." + p.PackageName)
}

// DependencyIDs returns the declared dependency identifiers, sorted.
func (p Package) DependencyIDs() []string {
	ids := make([]string, 0, len(p.Dependencies))
	for id := range p.Dependencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
