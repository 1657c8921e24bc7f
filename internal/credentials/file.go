package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileStore persists credentials to a YAML file. The file is read once by Open
// and rewritten on every change.
type FileStore struct {
	path   string
	log    *zap.Logger
	mu     sync.RWMutex
	values map[string]string
}

// DefaultPath is $XDG_CONFIG_HOME/basemap/credentials.yaml (or the OS equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "basemap", "credentials.yaml")
}

// Open loads path. A missing file is an empty store; a corrupt one is logged and
// treated as empty so the user can overwrite it.
func Open(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &FileStore{path: path, log: log, values: map[string]string{}}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s
	case err != nil:
		log.Warn("failed to read credentials", zap.String("path", path), zap.Error(err))
		return s
	}
	if err := yaml.Unmarshal(b, &s.values); err != nil {
		log.Warn("failed to parse credentials", zap.String("path", path), zap.Error(err))
		s.values = map[string]string{}
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *FileStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	if err := s.persistLocked(); err != nil {
		s.log.Error("failed to save credential", zap.String("key", key), zap.Error(err))
	}
}

func (s *FileStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	if err := s.persistLocked(); err != nil {
		s.log.Error("failed to remove credential", zap.String("key", key), zap.Error(err))
	}
}

func (s *FileStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range Keys {
		delete(s.values, k)
	}
	if err := s.persistLocked(); err != nil {
		s.log.Error("failed to purge credentials", zap.Error(err))
	}
}

func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(s.values)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}
