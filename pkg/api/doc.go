// Package api holds the data types shared between depot's metadata sources,
// the dependency resolver, and its HTTP and CLI front ends.
//
// A Package is identified by its (creator, packageName, version) triple. The
// canonical form of that triple is the lowercase string
// creator.packageName.version, returned by Package.ID. Package.BaseID drops the
// version and groups every installed version of the same logical package.
package api
