package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"submissionportal/internal/model"
)

// DiskStorage keeps payloads under a local directory. Writes go to a
// temporary file first so a failed upload never leaves a partial object.
type DiskStorage struct {
	dir       string
	publicURL string
}

func NewDiskStorage(dir, publicURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &DiskStorage{dir: dir, publicURL: publicURL}, nil
}

func (s *DiskStorage) Put(ctx context.Context, key string, size int64, content io.Reader) (*model.StoredFile, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("invalid object key %q", key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	written, err := io.Copy(tmp, content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return nil, fmt.Errorf("short write: wrote %d of %d bytes", written, size)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}
	return &model.StoredFile{Key: key, Location: joinURL(s.publicURL, key), Size: written}, nil
}

func (s *DiskStorage) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid object key %q", key)
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
