package storage

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const (
	ftpBackend     = "ftp"
	defaultFTPPort = 21
)

// FTPStore stores objects on an FTP server. Each operation opens its own
// control connection.
type FTPStore struct {
	host     string
	port     int
	username string
	password string
	basePath string
	timeout  time.Duration
	log      logger.Logger
}

// NewFTPStore validates settings.
func NewFTPStore(settings conf.FTPSettings) (*FTPStore, error) {
	if settings.Host == "" {
		return nil, errors.Newf("ftp host is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	port := settings.Port
	if port == 0 {
		port = defaultFTPPort
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	username := settings.Username
	if username == "" {
		username = "anonymous"
	}
	return &FTPStore{
		host:     settings.Host,
		port:     port,
		username: username,
		password: settings.Password,
		basePath: strings.TrimRight(settings.BasePath, "/"),
		timeout:  timeout,
		log:      GetLogger().Module(ftpBackend),
	}, nil
}

// Name returns "ftp".
func (s *FTPStore) Name() string { return ftpBackend }

func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(s.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("backend", ftpBackend).
			Build()
	}
	if err := conn.Login(s.username, s.password); err != nil {
		_ = conn.Quit()
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("backend", ftpBackend).
			Context("operation", "login").
			Build()
	}
	return conn, nil
}

func (s *FTPStore) remotePath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if s.basePath == "" {
		return cleaned, nil
	}
	return path.Join(s.basePath, cleaned), nil
}

// makeDirs creates every component of dir, ignoring "already exists" replies.
func makeDirs(conn *ftp.ServerConn, dir string) {
	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		current = path.Join(current, part)
		_ = conn.MakeDir(current)
	}
}

// Put uploads to a temporary name and renames it into place.
func (s *FTPStore) Put(ctx context.Context, key string, r io.Reader) error {
	target, err := s.remotePath(key)
	if err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	makeDirs(conn, path.Dir(target))

	tmp := path.Join(path.Dir(target), tempPrefix+path.Base(target))
	if err := conn.Stor(tmp, r); err != nil {
		_ = conn.Delete(tmp)
		return storageError(err, ftpBackend, "store")
	}
	if err := conn.Rename(tmp, target); err != nil {
		_ = conn.Delete(tmp)
		return storageError(err, ftpBackend, "rename")
	}

	s.log.Debug("object stored", logger.String("key", key), logger.String("host", s.host))
	return nil
}

// Get downloads key.
func (s *FTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.remotePath(key)
	if err != nil {
		return nil, err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	resp, err := conn.Retr(p)
	if isFTPNotFound(err) {
		return nil, notFound(ftpBackend, key)
	}
	if err != nil {
		return nil, storageError(err, ftpBackend, "retrieve")
	}
	data, err := io.ReadAll(resp)
	closeErr := resp.Close()
	if err != nil {
		return nil, storageError(err, ftpBackend, "read")
	}
	if closeErr != nil {
		return nil, storageError(closeErr, ftpBackend, "read")
	}
	return data, nil
}

// Delete removes key.
func (s *FTPStore) Delete(ctx context.Context, key string) error {
	p, err := s.remotePath(key)
	if err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	err = conn.Delete(p)
	if isFTPNotFound(err) {
		return notFound(ftpBackend, key)
	}
	if err != nil {
		return storageError(err, ftpBackend, "delete")
	}
	return nil
}

// List walks the base path.
func (s *FTPStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	root := s.basePath
	if root == "" {
		root = "."
	}

	var objects []ObjectInfo
	walker := conn.Walk(root)
	for walker.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := walker.Stat()
		if entry.Type != ftp.EntryTypeFile || strings.HasPrefix(entry.Name, tempPrefix) {
			continue
		}
		key := relativeKey(root, walker.Path())
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, ObjectInfo{Key: key, Size: int64(entry.Size), ModTime: entry.Time}) //nolint:gosec // file sizes fit in int64
		}
	}
	// Next stops at the first listing error.
	if err := walker.Err(); err != nil {
		if isFTPNotFound(err) && len(objects) == 0 {
			return []ObjectInfo{}, nil
		}
		return nil, storageError(err, ftpBackend, "list")
	}
	slices.SortFunc(objects, func(a, b ObjectInfo) int { return strings.Compare(a.Key, b.Key) })
	return objects, nil
}

// Close is a no-op; connections are per operation.
func (s *FTPStore) Close() error { return nil }

// isFTPNotFound reports a 550 "file unavailable" reply.
func isFTPNotFound(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable
}
