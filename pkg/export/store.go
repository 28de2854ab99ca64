package export

import (
	"context"
	"os"
	"path/filepath"
)

// Store receives exported files. Keys are slash-separated relative paths.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// DirStore writes exported files into a local directory.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirStore{root: dir}, nil
}

// Root returns the directory the store writes into.
func (s *DirStore) Root() string { return s.root }

// Put writes body to root/key, creating parent directories as needed.
func (s *DirStore) Put(_ context.Context, key, _ string, body []byte) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0644)
}
