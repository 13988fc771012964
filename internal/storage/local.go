package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const (
	localBackend = "local"
	tempPrefix   = ".tmp-"

	dirPermissions  = 0o755
	filePermissions = 0o644
)

// LocalStore keeps objects as files below a root directory.
type LocalStore struct {
	root         string
	minFreeSpace uint64
	freeSpace    func(string) (uint64, error)
	log          logger.Logger
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(settings conf.LocalStorageSettings) (*LocalStore, error) {
	if settings.Path == "" {
		return nil, errors.Newf("local storage path is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	root, err := filepath.Abs(settings.Path)
	if err != nil {
		return nil, storageError(err, localBackend, "resolve_root")
	}
	if err := os.MkdirAll(root, dirPermissions); err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("operation", "create_root").
			Build()
	}
	return &LocalStore{
		root:         root,
		minFreeSpace: settings.MinFreeSpace,
		freeSpace:    getDiskFreeSpace,
		log:          GetLogger().Module(localBackend),
	}, nil
}

// Name returns "local".
func (s *LocalStore) Name() string { return localBackend }

// Root returns the absolute root directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) pathFor(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Put writes through a temporary file and renames it into place.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) error {
	target, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.minFreeSpace > 0 {
		free, err := s.freeSpace(s.root)
		if err != nil {
			return storageError(err, localBackend, "disk_space")
		}
		if free < s.minFreeSpace {
			return errors.New(ErrInsufficientSpace).
				Component(componentName).
				Category(errors.CategorySystem).
				Context("free_bytes", free).
				Context("required_bytes", s.minFreeSpace).
				Build()
		}
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return storageError(err, localBackend, "mkdir")
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return storageError(err, localBackend, "create_temp")
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return storageError(err, localBackend, "write")
	}
	if err := tmp.Close(); err != nil {
		return storageError(err, localBackend, "close")
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return storageError(err, localBackend, "chmod")
	}
	if err := os.Rename(tmpName, target); err != nil {
		return storageError(err, localBackend, "rename")
	}

	s.log.Debug("object stored", logger.String("key", key), logger.Int64("bytes", n))
	return nil
}

// Get reads the object stored under key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(localBackend, key)
	}
	if err != nil {
		return nil, storageError(err, localBackend, "read")
	}
	return data, nil
}

// Delete removes key. Deleting a missing key returns ErrNotFound.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(localBackend, key)
	}
	if err != nil {
		return storageError(err, localBackend, "delete")
	}
	return nil
}

// List walks the root and returns matching objects sorted by key.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, storageError(err, localBackend, "list")
	}
	slices.SortFunc(objects, func(a, b ObjectInfo) int { return strings.Compare(a.Key, b.Key) })
	return objects, nil
}

// Close is a no-op.
func (s *LocalStore) Close() error { return nil }
