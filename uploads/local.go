package uploads

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-errors"
)

// LocalStorage writes images under a root directory on the local
// filesystem. Keys are slash separated paths relative to the root.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage root is required", errors.CategoryBadInput)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create storage root")
	}

	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Save(ctx context.Context, key string, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "context cancelled during upload")
	}

	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to create upload directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to create upload file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to write upload file")
	}

	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to flush upload file")
	}

	return key, nil
}

func (s *LocalStorage) Remove(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to remove upload file")
	}

	return nil
}

// resolve joins key under the root and rejects keys that escape it.
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required", errors.CategoryBadInput)
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))

	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("storage key escapes the root", errors.CategoryBadInput).
			WithTextCode("INVALID_STORAGE_KEY")
	}

	return path, nil
}
