package user

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Store persists the full user set. Save is called by the registry while it
// holds its write lock, so implementations need no locking of their own.
type Store interface {
	Load() ([]*User, error)
	Save(users []*User) error
}

// FileStore keeps the registry in a single JSON file. Writes go to a
// temporary file first and are renamed into place so a crash mid-write
// never leaves a truncated registry behind.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for the given path, creating the parent
// directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

// Load reads the user set. A missing file is an empty registry, not an error.
func (s *FileStore) Load() ([]*User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var users []*User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Save writes the full user set.
func (s *FileStore) Save(users []*User) error {
	if users == nil {
		users = []*User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
