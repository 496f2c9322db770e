package ticket

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Store abstracts the blob backend holding attachment bytes.
type Store interface {
	// Put writes data to storage under the given key.
	Put(ctx context.Context, key string, reader io.Reader) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// DiskStore keeps blobs as flat files under a root directory. Keys are
// opaque ids; anything resembling a path escape is rejected.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, goerrors.New("blob store root is required", goerrors.CategoryBadInput)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create blob store root")
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", goerrors.New("invalid blob key", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"key": key})
	}
	return filepath.Join(s.root, key), nil
}

func (s *DiskStore) Put(ctx context.Context, key string, reader io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to stage blob")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write blob")
	}
	if err := tmp.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to flush blob")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store blob")
	}

	return nil
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerrors.New("blob not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithMetadata(map[string]any{"key": key})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open blob")
	}

	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete blob")
	}

	return nil
}

var _ Store = (*DiskStore)(nil)
