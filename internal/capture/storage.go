package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Object is one image handed to a Storage backend.
type Object struct {
	ID          string
	Name        string
	Data        []byte
	ContentType string
}

// Storage persists capture objects and returns where they ended up.
type Storage interface {
	Save(ctx context.Context, obj Object) (string, error)
}

// maxCollisionSuffix bounds the -N suffixes tried for a taken name.
const maxCollisionSuffix = 100

// LocalStorage writes captures into a directory created on demand.
type LocalStorage struct {
	dir string
}

// NewLocalStorage returns a LocalStorage rooted at dir.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir returns the destination directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes obj under the storage directory and never replaces an
// existing file: a taken name gets a -1, -2, ... suffix before the extension.
func (s *LocalStorage) Save(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", s.dir, err)
	}

	ext := filepath.Ext(obj.Name)
	base := strings.TrimSuffix(obj.Name, ext)

	for n := 0; n <= maxCollisionSuffix; n++ {
		name := obj.Name
		if n > 0 {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}

		if _, err := f.Write(obj.Data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close %s: %w", path, err)
		}

		if abs, err := filepath.Abs(path); err == nil {
			return abs, nil
		}
		return path, nil
	}

	return "", fmt.Errorf("no free name for %s in %s", obj.Name, s.dir)
}
