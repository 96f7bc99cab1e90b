package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	hive_errors "hivechat/pkg/errors"
)

// FSStore keeps attachment blobs in a local directory. It is the dev
// fallback when no S3 bucket is configured.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{dir: dir}, nil
}

func (f *FSStore) path(key string) (string, error) {
	// Keys are server-generated uuids, but refuse traversal anyway.
	if key == "" || strings.ContainsAny(key, `/\`) {
		return "", errors.New("invalid blob key")
	}
	return filepath.Join(f.dir, key), nil
}

func (f *FSStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	return file.Close()
}

func (f *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, hive_errors.ErrNotFound
		}
		return nil, err
	}
	return file, nil
}
