package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore keeps objects as files under a root directory.
type DirStore struct {
	root string
}

// NewDirStore creates the root directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}

	return &DirStore{root: root}, nil
}

func (d *DirStore) Put(_ context.Context, path string, data []byte, _ string) error {
	file, err := d.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return err
	}

	return os.WriteFile(file, data, 0o640)
}

func (d *DirStore) Delete(_ context.Context, path string) error {
	file, err := d.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}

		return err
	}

	return nil
}

func (d *DirStore) resolve(path string) (string, error) {
	clean, err := cleanObjectPath(path)
	if err != nil {
		return "", err
	}

	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}
