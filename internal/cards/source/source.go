// Package source loads the set manifest and per-set card files, either over
// HTTP from a static host or from a local directory.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Source provides the raw catalog data the set cache builds from.
type Source interface {
	// Manifest returns the list of available sets.
	Manifest(ctx context.Context) (*Manifest, error)

	// SetFile returns the raw contents of one set's card file.
	SetFile(ctx context.Context, entry SetEntry) ([]byte, error)
}

// Options configures a Source created by New.
type Options struct {
	// Location is a base URL (http/https) or a local directory.
	Location string

	// ManifestFile is the manifest's path relative to Location.
	// Default: "sets.json"
	ManifestFile string

	// RequestTimeout bounds a single HTTP request.
	// Default: 30 seconds
	RequestTimeout time.Duration

	// RateLimit is the minimum delay between HTTP requests.
	// Default: 100ms
	RateLimit time.Duration

	// UserAgent is sent with HTTP requests.
	UserAgent string
}

// New returns an HTTP source for URLs and a directory source otherwise.
func New(opts Options) (Source, error) {
	if strings.TrimSpace(opts.Location) == "" {
		return nil, fmt.Errorf("source location is required")
	}
	if opts.ManifestFile == "" {
		opts.ManifestFile = "sets.json"
	}

	lower := strings.ToLower(opts.Location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(opts), nil
	}
	return NewDirSource(opts.Location, opts.ManifestFile), nil
}

func decodeManifest(data []byte, origin string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", origin, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", origin, err)
	}
	return &m, nil
}
