package dependencies

import (
	"regexp"
	"strconv"
)

// LatestSuffix marks a dependency on whatever version is newest.
const LatestSuffix = ".latest"

// versionHint matches the version part of a loosely typed reference such as
// "v2", "version12" or "3". Anything after the digits is ignored.
var versionHint = regexp.MustCompile(`(?i)^(?:version|v)?([0-9]+)`)

// ParseVersion parses a package version as a non-negative integer.
func ParseVersion(version string) (uint64, bool) {
	n, err := strconv.ParseUint(version, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseVersionHint extracts the requested version number from the suffix that
// follows a base identifier.
func parseVersionHint(suffix string) (uint64, bool) {
	m := versionHint.FindStringSubmatch(suffix)
	if m == nil {
		return 0, false
	}
	return ParseVersion(m[1])
}
