// Package localfs stores preview images in a directory served as static
// content.
package localfs

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/jersey-orders/internal/domain/preview"
)

var _ preview.Backend = (*Store)(nil)

// Store writes files into Dir and references them under URLPrefix.
type Store struct {
	dir       string
	urlPrefix string
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	return &Store{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir returns the content directory.
func (s *Store) Dir() string {
	return s.dir
}

// Ping checks that the content directory still exists.
func (s *Store) Ping(context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return errors.Wrap(err, "stat")
	}
	if !fi.IsDir() {
		return errors.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Put writes data to name, replacing an existing file atomically, and
// returns the URL path of the file.
func (s *Store) Put(_ context.Context, name string, data []byte) (string, error) {
	if name != filepath.Base(name) {
		return "", preview.ErrInvalidKey
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "write")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", errors.Wrap(err, "chmod")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", errors.Wrap(err, "rename")
	}

	return path.Join(s.urlPrefix, name), nil
}
