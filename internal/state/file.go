package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBlob stores blobs as files under a root directory. It backs dry runs
// and local development where no object storage is configured.
type FileBlob struct {
	root string
}

// NewFileBlob creates a FileBlob rooted at dir.
func NewFileBlob(dir string) *FileBlob {
	return &FileBlob{root: dir}
}

func (f *FileBlob) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *FileBlob) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put writes to a temp file in the target directory and renames it into
// place, so a crash mid-write leaves the previous version intact.
func (f *FileBlob) Put(_ context.Context, key string, data []byte) error {
	target := f.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", key, err)
	}
	return nil
}
