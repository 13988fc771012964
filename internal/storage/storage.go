// Package storage keeps captured images and audio clips on a local disk or a
// remote server (SFTP, FTP or Google Cloud Storage).
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const componentName = "storage"

// CapturePrefix is the key prefix of captured artifacts.
const CapturePrefix = "captures/"

// captureTimeFormat is RFC 3339 with milliseconds, colons replaced so keys
// are valid file names everywhere.
const captureTimeFormat = "2006-01-02T15-04-05.000Z"

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.NewStd("object not found")
	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.NewStd("invalid object key")
	// ErrInsufficientSpace is returned when a local write would breach the free space floor.
	ErrInsufficientSpace = errors.NewStd("insufficient free disk space")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Store is an artifact store.
type Store interface {
	// Name returns the backend name.
	Name() string
	// Put writes r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader) error
	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// List returns the objects whose keys start with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Close releases backend resources.
	Close() error
}

// CaptureKey returns the key for an artifact captured at t.
func CaptureKey(t time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return CapturePrefix + t.UTC().Format(captureTimeFormat) + "." + ext
}

// New creates the store selected by settings.
func New(ctx context.Context, settings *conf.StorageSettings) (Store, error) {
	switch settings.Type {
	case "", conf.StorageLocal:
		return NewLocalStore(settings.Local)
	case conf.StorageSFTP:
		return NewSFTPStore(settings.SFTP)
	case conf.StorageFTP:
		return NewFTPStore(settings.FTP)
	case conf.StorageGCS:
		return NewGCSStore(ctx, settings.GCS)
	default:
		return nil, errors.Newf("unknown storage type %q", settings.Type).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// cleanKey validates key and returns it in slash-separated clean form.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", invalidKey(key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", invalidKey(key)
	}
	return cleaned, nil
}

// relativeKey strips the walk root from a remote path.
func relativeKey(root, p string) string {
	if root == "." {
		return strings.TrimPrefix(p, "./")
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
}

func invalidKey(key string) error {
	return errors.New(ErrInvalidKey).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("key", key).
		Build()
}

func notFound(backend, key string) error {
	return errors.New(ErrNotFound).
		Component(componentName).
		Category(errors.CategoryNotFound).
		Context("backend", backend).
		Context("key", key).
		Build()
}

func storageError(err error, backend, operation string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryStorage).
		Context("backend", backend).
		Context("operation", operation).
		Build()
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
