package dependencies

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/platinummonkey/depot/pkg/api"
)

// Strategy names the rule that resolved a dependency reference.
type Strategy string

const (
	// StrategyExact resolved the reference to the identical canonical identifier.
	StrategyExact Strategy = "exact"
	// StrategyLatest resolved a ".latest" reference to the highest version.
	StrategyLatest Strategy = "latest"
	// StrategyVersionHint resolved a v<N>/version<N> hint to that installed version.
	StrategyVersionHint Strategy = "version-hint"
	// StrategyFallbackLatest resolved a loose reference to the highest version
	// because no usable installed version was named.
	StrategyFallbackLatest Strategy = "fallback-latest"
)

// Resolution is the outcome of resolving one dependency reference.
type Resolution struct {
	Target   string   `json:"target,omitempty"`
	Strategy Strategy `json:"strategy,omitempty"`
}

// ConsumerSet is the set of canonical identifiers depending on one package.
type ConsumerSet map[string]struct{}

// Add inserts a consumer.
func (s ConsumerSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is a member.
func (s ConsumerSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s ConsumerSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s ConsumerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *ConsumerSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	set := make(ConsumerSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	*s = set
	return nil
}

// MarshalYAML encodes the set as a sorted sequence.
func (s ConsumerSet) MarshalYAML() (interface{}, error) {
	return s.Sorted(), nil
}

// ReverseDependencyMap maps a canonical identifier to the packages that
// depend on it. It holds an entry for every indexed package.
type ReverseDependencyMap map[string]ConsumerSet

// Consumers returns the sorted consumers of id, or nil when id is not indexed.
func (m ReverseDependencyMap) Consumers(id string) []string {
	set, ok := m[strings.ToLower(id)]
	if !ok {
		return nil
	}
	return set.Sorted()
}

// Identifiers returns every indexed canonical identifier in lexical order.
func (m ReverseDependencyMap) Identifiers() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EdgeCount returns the total number of reverse edges.
func (m ReverseDependencyMap) EdgeCount() int {
	n := 0
	for _, set := range m {
		n += len(set)
	}
	return n
}

type versionEntry struct {
	id      string
	version uint64
}

// index is the lookup state of a single build. It is never shared between
// builds and is read-only once Analyze returns.
type index struct {
	packages map[string]api.Package
	versions map[string][]versionEntry
}

func newIndex(size int) *index {
	return &index{
		packages: make(map[string]api.Package, size),
		versions: make(map[string][]versionEntry),
	}
}

// strategy claims a lowercased reference by returning true. A claimed
// reference with an empty target is unresolved and no later strategy runs.
type strategy func(idx *index, ref string) (Resolution, bool)

var strategies = []strategy{
	exactMatch,
	latestMatch,
	fuzzyMatch,
}

func (idx *index) resolve(dependency string) (Resolution, bool) {
	ref := strings.ToLower(dependency)
	for _, s := range strategies {
		if res, claimed := s(idx, ref); claimed {
			return res, res.Target != ""
		}
	}
	return Resolution{}, false
}

func exactMatch(idx *index, ref string) (Resolution, bool) {
	if _, ok := idx.packages[ref]; !ok {
		return Resolution{}, false
	}
	return Resolution{Target: ref, Strategy: StrategyExact}, true
}

func latestMatch(idx *index, ref string) (Resolution, bool) {
	if !strings.HasSuffix(ref, LatestSuffix) {
		return Resolution{}, false
	}
	entries := idx.versions[strings.TrimSuffix(ref, LatestSuffix)]
	if len(entries) == 0 {
		return Resolution{Strategy: StrategyLatest}, true
	}
	return Resolution{Target: entries[0].id, Strategy: StrategyLatest}, true
}

// fuzzyMatch strips trailing segments until the longest known base identifier
// is found, then picks the hinted version or the highest one.
func fuzzyMatch(idx *index, ref string) (Resolution, bool) {
	candidate := ref
	for {
		if entries := idx.versions[candidate]; len(entries) > 0 {
			var suffix string
			if len(candidate) < len(ref) {
				suffix = ref[len(candidate)+1:]
			}
			if want, ok := parseVersionHint(suffix); ok {
				for _, e := range entries {
					if e.version == want {
						return Resolution{Target: e.id, Strategy: StrategyVersionHint}, true
					}
				}
			}
			return Resolution{Target: entries[0].id, Strategy: StrategyFallbackLatest}, true
		}

		cut := strings.LastIndexByte(candidate, '.')
		if cut < 0 {
			return Resolution{}, false
		}
		candidate = candidate[:cut]
	}
}

// Build returns the reverse-dependency map of packages.
func Build(packages []api.Package) ReverseDependencyMap {
	return Analyze(packages).Dependents
}

// Analyze indexes packages and resolves every declared dependency to an
// installed package. It never fails: references that cannot be resolved are
// listed in the report and produce no edge.
func Analyze(packages []api.Package) *Result {
	idx := newIndex(len(packages))
	dependents := make(ReverseDependencyMap, len(packages))
	occurrences := make(map[string]int)

	for _, pkg := range packages {
		if pkg.Creator == "" {
			continue
		}
		id := pkg.ID()
		occurrences[id]++
		idx.packages[id] = pkg
		if occurrences[id] > 1 {
			continue
		}

		dependents[id] = ConsumerSet{}
		if n, ok := ParseVersion(pkg.Version); ok {
			base := pkg.BaseID()
			idx.versions[base] = append(idx.versions[base], versionEntry{id: id, version: n})
		}
	}

	for _, entries := range idx.versions {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].version > entries[j].version
		})
	}

	report := Report{
		Packages:       len(packages),
		Indexed:        len(idx.packages),
		StrategyCounts: make(map[Strategy]int),
	}

	for _, pkg := range packages {
		consumer := pkg.ID()
		for dependency := range pkg.Dependencies {
			res, ok := idx.resolve(dependency)
			if !ok {
				report.Unresolved = append(report.Unresolved, UnresolvedDependency{
					Consumer:   consumer,
					Dependency: dependency,
				})
				continue
			}
			dependents[res.Target].Add(consumer)
			report.StrategyCounts[res.Strategy]++
		}
	}

	for id, n := range occurrences {
		if n > 1 {
			report.Duplicates = append(report.Duplicates, Duplicate{ID: id, Occurrences: n})
		}
	}
	report.Edges = dependents.EdgeCount()
	report.sort()

	return &Result{
		Dependents: dependents,
		Report:     report,
		idx:        idx,
	}
}
