// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extraction produces and loads Source Bundles, the page-level text
// of a document that verification checks classifications against.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// ErrInvalidBundle marks a bundle that decoded but is inconsistent.
var ErrInvalidBundle = errors.New("invalid source bundle")

// BundleSuffix names bundle files written by WriteBundle.
const BundleSuffix = ".bundle.json"

// LoadBundle reads a bundle from a .json, .yaml or .yml file and validates
// it.
func LoadBundle(path string) (*types.SourceBundle, error) {
	var b types.SourceBundle
	if err := DecodeFile(path, &b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidBundle, path, err)
	}
	return &b, nil
}

// DecodeFile unmarshals a JSON or YAML file into v, choosing the decoder by
// extension.
func DecodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".json":
		err = json.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported file type %q for %s", filepath.Ext(path), path)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// WriteBundle writes b as indented JSON to dir/<doc_id>.bundle.json and
// returns the path.
func WriteBundle(b *types.SourceBundle, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling bundle: %w", err)
	}
	path := filepath.Join(dir, b.DocumentID+BundleSuffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
