package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Storage persists the session token. The profile is never persisted; it is
// fetched again on every hydration.
type Storage interface {
	Token() (string, error)
	Save(token string) error
	Clear() error
}

// persisted is the on-disk shape of the session file.
type persisted struct {
	Token string `yaml:"token"`
}

// FileStorage keeps the token in a YAML file readable only by the owner.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage creates a storage backed by path. The file is created on the
// first Save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the session file location.
func (f *FileStorage) Path() string {
	return f.path
}

// Token returns the persisted token, or "" when no session file exists.
func (f *FileStorage) Token() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}

	var p persisted
	if err := yaml.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("parse session file %s: %w", f.path, err)
	}
	return p.Token, nil
}

// Save writes token, replacing any previous session.
func (f *FileStorage) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(persisted{Token: token})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// MemoryStorage keeps the token in process memory.
type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStorage) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
