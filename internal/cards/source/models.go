package source

import (
	"errors"
	"fmt"
	"strings"
)

// Manifest enumerates the sets available from a source.
type Manifest struct {
	Sets []SetEntry `json:"sets"`
}

// SetEntry describes one set and where its card file lives.
type SetEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	File  string `json:"file"`
}

// Find returns the entry for a set key, compared case-insensitively.
func (m *Manifest) Find(key string) (SetEntry, bool) {
	if m == nil {
		return SetEntry{}, false
	}
	for _, s := range m.Sets {
		if strings.EqualFold(s.Key, key) {
			return s, true
		}
	}
	return SetEntry{}, false
}

// Keys returns the set keys in manifest order.
func (m *Manifest) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.Sets))
	for _, s := range m.Sets {
		keys = append(keys, s.Key)
	}
	return keys
}

// validate drops entries without a key or file and reports an empty manifest.
func (m *Manifest) validate() error {
	kept := m.Sets[:0]
	for _, s := range m.Sets {
		s.Key = strings.TrimSpace(s.Key)
		s.File = strings.TrimSpace(s.File)
		if s.Key == "" || s.File == "" {
			continue
		}
		if s.Label == "" {
			s.Label = s.Key
		}
		kept = append(kept, s)
	}
	m.Sets = kept
	if len(m.Sets) == 0 {
		return errors.New("manifest lists no sets")
	}
	return nil
}

// NotFoundError represents a missing manifest, set, or set file.
type NotFoundError struct {
	Resource string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.Resource)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
