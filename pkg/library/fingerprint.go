package library

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/platinummonkey/depot/pkg/api"
)

// Fingerprint hashes a package listing, covering every field a snapshot
// serves: identity, source, and each dependency with its metadata. Input
// order is part of the hash because it decides which duplicate wins and how
// equal versions rank.
func Fingerprint(packages []api.Package) string {
	hasher := xxhash.New()

	for _, pkg := range packages {
		_, _ = hasher.WriteString(pkg.Creator)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(pkg.PackageName)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(pkg.Version)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(pkg.Source)
		_, _ = hasher.Write([]byte{0})

		for _, dep := range pkg.DependencyIDs() {
			_, _ = hasher.WriteString(dep)
			_, _ = hasher.Write([]byte{0})
			// fmt prints maps in key order, so nested metadata hashes stably
			_, _ = fmt.Fprintf(hasher, "%v", pkg.Dependencies[dep])
			_, _ = hasher.Write([]byte{0})
		}
		_, _ = hasher.Write([]byte{1}) // Package separator
	}

	return fmt.Sprintf("%016x", hasher.Sum64())
}
