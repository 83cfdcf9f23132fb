package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/depot/pkg/api"
)

// MetadataFileNames are the document names recognised as package metadata
var MetadataFileNames = []string{"meta.json", "meta.yaml", "meta.yml"}

// ErrInvalidMetadata is returned for documents that do not describe a package
var ErrInvalidMetadata = errors.New("invalid package metadata")

// IsMetadataFile reports whether name (a path or object key) is a metadata document
func IsMetadataFile(name string) bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, candidate := range MetadataFileNames {
		if base == candidate {
			return true
		}
	}
	return false
}

// DecodeMetadata decodes a metadata document, choosing YAML or JSON from the
// extension of name. The returned package has Source set to name.
func DecodeMetadata(name string, data []byte) (api.Package, error) {
	var pkg api.Package

	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pkg); err != nil {
			return api.Package{}, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&pkg); err != nil {
			return api.Package{}, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}

	if strings.TrimSpace(pkg.PackageName) == "" {
		return api.Package{}, fmt.Errorf("%w: %s has no packageName", ErrInvalidMetadata, name)
	}

	pkg.Source = name
	return pkg, nil
}

// EncodeMetadata encodes a package as an indented JSON metadata document
func EncodeMetadata(pkg *api.Package) ([]byte, error) {
	out := *pkg
	out.Source = ""
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal package: %w", err)
	}
	return data, nil
}
