// Package storage provides the package metadata sources the dependency
// resolver reads from.
//
// # Overview
//
// A library is a collection of installed packages, each described by a small
// metadata document (creator, packageName, version, dependencies). This
// package defines where those documents come from:
//
//   - Source: anything that can list every installed package
//   - Sink: anything that can persist a package record
//
// # Backends
//
// FileSystemStorage reads a library laid out on disk. Every file named
// meta.json, meta.yaml or meta.yml below the root is one package:
//
//	library/
//	  acme/
//	    widgets/
//	      3/
//	        meta.json
//
// The postgres sub-package adds a PostgreSQL table source, an S3 object
// source and a Redis publisher for built dependency maps.
//
// # Usage
//
//	fs, err := storage.NewFileSystemStorage("/var/lib/depot")
//	if err != nil {
//		return err
//	}
//	packages, err := fs.ListPackages(ctx)
//
// # Metadata Decoding
//
// DecodeMetadata picks JSON or YAML from the document name. Documents with an
// empty packageName are rejected; an empty creator is accepted because the
// resolver still reads such packages as consumers.
//
// # Related Packages
//
//   - pkg/api: Package type
//   - pkg/library: Rescans a Source and publishes snapshots
//   - pkg/storage/postgres: Database, object store and cache backends
package storage
