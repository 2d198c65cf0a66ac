// Package filesystem serves FITS objects from a local directory.
// Access is sandboxed by os.Root and read-only.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

// Store provides read-only file system object access.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root prevents path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Open opens a regular file for reading. Returns astrocloud.ErrNotFound if
// the file does not exist or names a directory or hidden entry.
func (s *Store) Open(ctx context.Context, name string) (astrocloud.ObjectInfo, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return astrocloud.ObjectInfo{}, nil, err
	}

	if isHidden(name) {
		return astrocloud.ObjectInfo{}, nil, astrocloud.ErrNotFound
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return astrocloud.ObjectInfo{}, nil, astrocloud.ErrNotFound
		}
		return astrocloud.ObjectInfo{}, nil, fmt.Errorf("open object: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return astrocloud.ObjectInfo{}, nil, fmt.Errorf("stat object: %w", err)
	}

	if !info.Mode().IsRegular() {
		_ = f.Close()
		return astrocloud.ObjectInfo{}, nil, astrocloud.ErrNotFound
	}

	return astrocloud.ObjectInfo{
		Path:    name,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}, f, nil
}

// List walks the root and returns every regular, non-hidden file ordered
// by path.
func (s *Store) List(ctx context.Context) ([]astrocloud.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objects := []astrocloud.ObjectInfo{}

	err := fs.WalkDir(s.root.FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if p != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		objects = append(objects, astrocloud.ObjectInfo{
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })

	return objects, nil
}

func isHidden(name string) bool {
	for _, part := range strings.Split(path.Clean(name), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
