// Package cli provides the depot command-line interface for inspecting a
// package library without running the server.
//
// # Commands
//
// scan: Build the reverse dependency map and print a summary
//
//	depot scan -dir ./library
//	depot scan -dir ./library -json
//
// dependents: List the packages that depend on one package
//
//	depot dependents -dir ./library acme.http.2
//
// export: Write the whole map
//
//	depot export -dir ./library -format yaml -o dependents.yaml
//
// resolve: Show which installed package a reference resolves to, and how
//
//	depot resolve -dir ./library acme.http.latest acme.http.v1
//
// import: Copy the library into PostgreSQL or another library directory
//
//	depot import -dir ./library -postgres postgres://localhost/depot
//	depot import -dir ./library -to /srv/library
//
// Every command accepts -v to log unresolved references at debug level.
//
// # Related Packages
//
//   - pkg/storage: Reads meta.json/meta.yaml files under -dir
//   - pkg/dependencies: Builds the reverse dependency map
//   - pkg/storage/postgres: Target of depot import -postgres
package cli
