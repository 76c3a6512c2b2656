// Package preference keeps sound and snooze settings in a small JSON file.
package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"medreminder/internal/domain/entity"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileStore is a repository.PreferenceRepository backed by one JSON file.
type FileStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewFileStore creates a store for path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Load reads the preferences. A missing file yields the defaults.
func (s *FileStore) Load(ctx context.Context) (entity.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entity.DefaultPreferences(), nil
		}
		return entity.Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}
	prefs := entity.DefaultPreferences()
	if err := json.Unmarshal(data, &prefs); err != nil {
		return entity.Preferences{}, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs.Normalize(), nil
}

// Save writes the preferences through a temporary file and a rename.
func (s *FileStore) Save(ctx context.Context, prefs entity.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(prefs.Normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preferences directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
