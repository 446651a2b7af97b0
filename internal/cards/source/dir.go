package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSource reads the manifest and set files from a local directory.
type DirSource struct {
	root         string
	manifestFile string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir, manifestFile string) *DirSource {
	if manifestFile == "" {
		manifestFile = "sets.json"
	}
	return &DirSource{root: dir, manifestFile: manifestFile}
}

// Manifest reads and decodes the manifest file.
func (s *DirSource) Manifest(ctx context.Context) (*Manifest, error) {
	path := filepath.Join(s.root, s.manifestFile)
	data, err := s.read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return decodeManifest(data, path)
}

// SetFile reads one set's card file. Paths may not escape the root directory.
func (s *DirSource) SetFile(ctx context.Context, entry SetEntry) ([]byte, error) {
	rel := filepath.Clean(filepath.FromSlash(entry.File))
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("set %s: file %q is outside the catalog directory", entry.Key, entry.File)
	}

	data, err := s.read(ctx, filepath.Join(s.root, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read set %s: %w", entry.Key, err)
	}
	return data, nil
}

func (s *DirSource) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Resource: path}
	}
	return data, err
}
