package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/depot/pkg/api"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewFileSystemStorage_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "library")

	fs, err := NewFileSystemStorage(root)
	require.NoError(t, err)
	assert.Equal(t, root, fs.Root())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileSystemStorage_ListPackages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "c", "d", "2", "meta.json"), `{"creator":"C","packageName":"D","version":"2"}`)
	writeFile(t, filepath.Join(root, "c", "d", "1", "meta.yaml"), "creator: C\npackageName: D\nversion: \"1\"\n")
	writeFile(t, filepath.Join(root, "user", "fuzzy", "1", "meta.json"), `{"creator":"User","packageName":"Fuzzy","version":"1","dependencies":{"C.D.v1":{}}}`)
	writeFile(t, filepath.Join(root, "user", "fuzzy", "1", "preview.png"), "not metadata")

	fs, err := NewFileSystemStorage(root)
	require.NoError(t, err)

	packages, err := fs.ListPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 3)

	assert.Equal(t, "c.d.1", packages[0].ID())
	assert.Equal(t, "c.d.2", packages[1].ID())
	assert.Equal(t, "user.fuzzy.1", packages[2].ID())
	assert.Equal(t, []string{"C.D.v1"}, packages[2].DependencyIDs())
	assert.Equal(t, filepath.Join(root, "c", "d", "1", "meta.yaml"), packages[0].Source)
}

func TestFileSystemStorage_ListPackagesEmpty(t *testing.T) {
	fs, err := NewFileSystemStorage(t.TempDir())
	require.NoError(t, err)

	packages, err := fs.ListPackages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, packages)
}

func TestFileSystemStorage_ListPackagesInvalidDocument(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "meta.json"), `{"creator":"a","packageName":"ok","version":"1"}`)
	writeFile(t, filepath.Join(root, "b", "meta.json"), `{"creator":"b"}`)

	fs, err := NewFileSystemStorage(root)
	require.NoError(t, err)

	_, err = fs.ListPackages(context.Background())
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestFileSystemStorage_ListPackagesCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "meta.json"), `{"creator":"a","packageName":"ok","version":"1"}`)

	fs, err := NewFileSystemStorage(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = fs.ListPackages(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSystemStorage_SavePackage(t *testing.T) {
	fs, err := NewFileSystemStorage(t.TempDir())
	require.NoError(t, err)

	pkg := &api.Package{
		Creator:      "Acme",
		PackageName:  "Widgets",
		Version:      "3",
		Dependencies: map[string]interface{}{"core.base.latest": map[string]interface{}{}},
	}
	require.NoError(t, fs.SavePackage(context.Background(), pkg))
	assert.Equal(t, filepath.Join(fs.Root(), "Acme", "Widgets", "3", "meta.json"), pkg.Source)

	packages, err := fs.ListPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "acme.widgets.3", packages[0].ID())
	assert.Equal(t, []string{"core.base.latest"}, packages[0].DependencyIDs())
	assert.Equal(t, pkg.Source, packages[0].Source)
}

func TestFileSystemStorage_SavePackageRequiresName(t *testing.T) {
	fs, err := NewFileSystemStorage(t.TempDir())
	require.NoError(t, err)

	err = fs.SavePackage(context.Background(), &api.Package{Creator: "a"})
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, TypeFilesystem, cfg.Type)
	assert.NotEmpty(t, cfg.FilesystemRoot)
	assert.Equal(t, "depot", cfg.RedisKeyPrefix)
}
