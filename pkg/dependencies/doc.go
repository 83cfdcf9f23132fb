// Package dependencies builds the reverse-dependency index of a package library.
//
// # Overview
//
// Every installed package is identified by the lowercase canonical identifier
// creator.packageName.version. Packages declare dependencies by strings that may
// be exact identifiers, "latest" references (creator.packageName.latest), or
// loosely typed names such as creator.packageName.v2, creator.packageName.version3
// or just creator.packageName. Analyze resolves each reference to a concrete
// installed package and records a reverse edge from the target to the consumer.
//
// # Resolution
//
// References are tried against an ordered chain of strategies and the first
// strategy that claims a reference decides its outcome:
//
//   - exact: the lowercased reference is an installed canonical identifier
//   - latest: the reference ends in ".latest"; it resolves to the highest
//     numeric version of the named package, or to nothing
//   - fuzzy: trailing dot segments are stripped until a known
//     creator.packageName is found; a v<N> or version<N> hint selects that
//     version when installed, anything else falls back to the highest version
//
// Only versions that parse as non-negative integers take part in "latest" and
// fuzzy resolution. Packages with other versions can still be exact targets.
//
// # Usage Example
//
//	result := dependencies.Analyze(packages)
//	for _, consumer := range result.DependentsOf("c.d.1") {
//		fmt.Println(consumer)
//	}
//
//	for _, u := range result.Report.Unresolved {
//		log.Printf("%s: unresolved %s", u.Consumer, u.Dependency)
//	}
//
// The returned map is total: every indexed package has an entry, possibly
// empty. Analyze is pure; build a new result after every library scan.
//
// # Related Packages
//
//   - pkg/library: Rescans sources and keeps the current Result
//   - pkg/storage: Metadata sources feeding Analyze
package dependencies
