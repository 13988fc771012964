package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const gcsBackend = "gcs"

// GCSStore stores objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	log    logger.Logger
}

// NewGCSStore creates a bucket client. Without a credentials file the
// application default credentials are used.
func NewGCSStore(ctx context.Context, settings conf.GCSSettings, opts ...option.ClientOption) (*GCSStore, error) {
	if settings.Bucket == "" {
		return nil, errors.Newf("gcs bucket is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(settings.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, storageError(err, gcsBackend, "create_client")
	}

	prefix := strings.Trim(settings.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &GCSStore{
		client: client,
		bucket: settings.Bucket,
		prefix: prefix,
		log:    GetLogger().Module(gcsBackend),
	}, nil
}

// Name returns "gcs".
func (s *GCSStore) Name() string { return gcsBackend }

func (s *GCSStore) object(key string) (*storage.ObjectHandle, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(s.bucket).Object(s.prefix + cleaned), nil
}

// Put uploads r; the object becomes visible when the writer closes.
func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeFor(key)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return storageError(err, gcsBackend, "write")
	}
	if err := w.Close(); err != nil {
		return storageError(err, gcsBackend, "close")
	}

	s.log.Debug("object stored", logger.String("key", key), logger.String("bucket", s.bucket))
	return nil
}

// Get downloads key.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, notFound(gcsBackend, key)
	}
	if err != nil {
		return nil, storageError(err, gcsBackend, "open")
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, storageError(err, gcsBackend, "read")
	}
	return data, nil
}

// Delete removes key.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}
	err = obj.Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return notFound(gcsBackend, key)
	}
	if err != nil {
		return storageError(err, gcsBackend, "delete")
	}
	return nil
}

// List returns objects below the configured prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix + prefix})

	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, storageError(err, gcsBackend, "list")
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:     strings.TrimPrefix(attrs.Name, s.prefix),
			Size:    attrs.Size,
			ModTime: attrs.Updated,
		})
	}
	return objects, nil
}

// Close releases the bucket client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// contentTypeFor maps the artifact extensions used by the monitor.
func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
