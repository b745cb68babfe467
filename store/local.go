package store

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// localBackend stores each document as a JSON file.
//
// Layout:
//
//	<baseDir>/           # never removed
//	  <name>/            # store directory, removed once empty
//	    user/
//	      42.json        # document "user/42"
type localBackend struct {
	fs      afero.Fs
	baseDir string
	root    string
	logger  *zap.Logger
}

func (b *localBackend) file(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	return filepath.Join(b.root, filepath.FromSlash(objectKey(path))), nil
}

func (b *localBackend) read(_ context.Context, path string) ([]byte, error) {
	file, err := b.file(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(err)
		}
		return nil, err
	}
	return data, nil
}

// write creates a missing parent directory and retries exactly once.
func (b *localBackend) write(_ context.Context, path string, data []byte) error {
	file, err := b.file(path)
	if err != nil {
		return err
	}
	err = afero.WriteFile(b.fs, file, data, 0o644)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	dir := filepath.Dir(file)
	b.logger.Debug("creating document directory", zap.String("dir", dir))
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return afero.WriteFile(b.fs, file, data, 0o644)
}

// remove deletes the file, then every ancestor directory left empty, up to
// but excluding the base directory.
func (b *localBackend) remove(_ context.Context, path string) error {
	file, err := b.file(path)
	if err != nil {
		return err
	}
	if err := b.fs.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(err)
		}
		return err
	}
	return b.prune(filepath.Dir(file))
}

func (b *localBackend) prune(dir string) error {
	base := filepath.Clean(b.baseDir)
	for b.within(base, dir) {
		entries, err := afero.ReadDir(b.fs, dir)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := b.fs.Remove(dir); err != nil {
			return err
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// within reports whether dir is strictly below base.
func (b *localBackend) within(base, dir string) bool {
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
