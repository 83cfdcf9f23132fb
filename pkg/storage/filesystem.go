package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/depot/pkg/api"
)

// FileSystemStorage reads and writes a package library on the local filesystem
type FileSystemStorage struct {
	rootDir     string
	concurrency int
}

// NewFileSystemStorage creates a new filesystem-based storage
func NewFileSystemStorage(rootDir string) (*FileSystemStorage, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FileSystemStorage{
		rootDir:     rootDir,
		concurrency: runtime.GOMAXPROCS(0),
	}, nil
}

// Root returns the library root directory
func (s *FileSystemStorage) Root() string {
	return s.rootDir
}

// ListPackages implements Source.ListPackages. Packages are returned in path order.
func (s *FileSystemStorage) ListPackages(ctx context.Context) ([]api.Package, error) {
	var files []string
	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsMetadataFile(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk library %s: %w", s.rootDir, err)
	}
	sort.Strings(files)

	packages := make([]api.Package, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read metadata file: %w", err)
			}
			pkg, err := DecodeMetadata(file, data)
			if err != nil {
				return err
			}
			packages[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return packages, nil
}

// SavePackage implements Sink.SavePackage
func (s *FileSystemStorage) SavePackage(ctx context.Context, pkg *api.Package) error {
	if pkg.PackageName == "" {
		return fmt.Errorf("%w: packageName is required", ErrInvalidMetadata)
	}

	dir := s.packageDir(pkg.Creator, pkg.PackageName, pkg.Version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create package directory: %w", err)
	}

	data, err := EncodeMetadata(pkg)
	if err != nil {
		return err
	}

	file := filepath.Join(dir, "meta.json")
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	pkg.Source = file

	return nil
}

func (s *FileSystemStorage) packageDir(creator, packageName, version string) string {
	if creator == "" {
		creator = "_"
	}
	if version == "" {
		version = "_"
	}
	return filepath.Join(s.rootDir, creator, packageName, version)
}
