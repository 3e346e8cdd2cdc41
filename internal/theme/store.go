package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// Store persists a resolved theme set between runs.
//
// Get reports ok=false when nothing usable is stored; that is a cache miss,
// not an error.
type Store interface {
	Get() (themes map[string]domain.Palette, ok bool, err error)
	Put(themes map[string]domain.Palette) error
}

// FileStore keeps the theme set as a JSON object keyed by theme name.
// An entry lives until the file is deleted, or, with a non-zero TTL, until
// the file is older than the TTL.
type FileStore struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

// NewFileStore creates a file store. A zero ttl never expires.
func NewFileStore(path string, ttl time.Duration, logger *log.Logger) *FileStore {
	return &FileStore{
		path:   path,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (s *FileStore) Get() (map[string]domain.Palette, bool, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Printf("Theme cache: no cache file at %s", s.path)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat theme cache: %w", err)
	}
	if s.ttl > 0 {
		if age := s.now().Sub(info.ModTime()); age > s.ttl {
			s.logger.Printf("Theme cache: %s expired (age %s, ttl %s)", s.path, age.Round(time.Second), s.ttl)
			return nil, false, nil
		}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read theme cache: %w", err)
	}
	var themes map[string]domain.Palette
	if err := json.Unmarshal(data, &themes); err != nil {
		return nil, false, fmt.Errorf("failed to parse theme cache %s: %w", s.path, err)
	}
	if len(themes) == 0 {
		s.logger.Printf("Theme cache: %s holds no themes", s.path)
		return nil, false, nil
	}
	s.logger.Printf("Theme cache: loaded %d themes from %s", len(themes), s.path)
	return themes, true, nil
}

func (s *FileStore) Put(themes map[string]domain.Palette) error {
	data, err := json.MarshalIndent(themes, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal themes: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create theme cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write theme cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write theme cache: %w", err)
	}
	s.logger.Printf("Theme cache: saved %d themes to %s", len(themes), s.path)
	return nil
}
