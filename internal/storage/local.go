package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps attachment bytes on the local filesystem under a base
// directory. Paths handed back are relative to the base so the rows stay
// valid if the directory moves.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save streams r into a uniquely named file, keeping the original extension.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	relPath := uuid.NewString() + filepath.Ext(name)

	f, err := os.Create(filepath.Join(s.baseDir, relPath))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	return relPath, size, nil
}

func (s *LocalStore) Remove(ctx context.Context, path string) error {
	full := filepath.Join(s.baseDir, filepath.Clean(path))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Open returns a reader over a stored file, for download endpoints.
func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.baseDir, filepath.Clean(path)))
}
