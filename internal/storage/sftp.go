package storage

import (
	"context"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const (
	sftpBackend     = "sftp"
	defaultSFTPPort = 22
	defaultTimeout  = 30 * time.Second
)

// SFTPStore stores objects on an SFTP server. Each operation opens its own
// connection.
type SFTPStore struct {
	host     string
	port     int
	username string
	auth     []ssh.AuthMethod
	basePath string
	timeout  time.Duration
	log      logger.Logger
}

// NewSFTPStore validates settings and prepares authentication.
func NewSFTPStore(settings conf.SFTPSettings) (*SFTPStore, error) {
	if settings.Host == "" {
		return nil, errors.Newf("sftp host is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	var auth []ssh.AuthMethod
	switch {
	case settings.PrivateKeyPath != "":
		key, err := os.ReadFile(settings.PrivateKeyPath)
		if err != nil {
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryConfiguration).
				Context("operation", "read_private_key").
				Build()
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryConfiguration).
				Context("operation", "parse_private_key").
				Build()
		}
		auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case settings.Password != "":
		auth = []ssh.AuthMethod{ssh.Password(settings.Password)}
	default:
		return nil, errors.Newf("sftp requires a password or private key").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	port := settings.Port
	if port == 0 {
		port = defaultSFTPPort
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &SFTPStore{
		host:     settings.Host,
		port:     port,
		username: settings.Username,
		auth:     auth,
		basePath: strings.TrimRight(settings.BasePath, "/"),
		timeout:  timeout,
		log:      GetLogger().Module(sftpBackend),
	}, nil
}

// Name returns "sftp".
func (s *SFTPStore) Name() string { return sftpBackend }

// connect dials the server, abandoning the attempt when ctx is done.
func (s *SFTPStore) connect(ctx context.Context) (*sftp.Client, error) {
	type connResult struct {
		client *sftp.Client
		err    error
	}
	resultChan := make(chan connResult, 1)

	go func() {
		config := &ssh.ClientConfig{
			User:            s.username,
			Auth:            s.auth,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // camera LAN hosts have no managed known_hosts
			Timeout:         s.timeout,
		}
		addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
		sshConn, err := ssh.Dial("tcp", addr, config)
		if err != nil {
			resultChan <- connResult{nil, err}
			return
		}
		client, err := sftp.NewClient(sshConn)
		if err != nil {
			_ = sshConn.Close()
			resultChan <- connResult{nil, err}
			return
		}
		resultChan <- connResult{client, nil}
	}()

	select {
	case <-ctx.Done():
		// Close a connection that completes after we gave up.
		go func() {
			if r := <-resultChan; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-resultChan:
		if r.err != nil {
			return nil, errors.New(r.err).
				Component(componentName).
				Category(errors.CategoryNetwork).
				Context("backend", sftpBackend).
				Build()
		}
		return r.client, nil
	}
}

func (s *SFTPStore) remotePath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return path.Join(s.basePath, cleaned), nil
}

// Put uploads r to a temporary name and renames it into place.
func (s *SFTPStore) Put(ctx context.Context, key string, r io.Reader) error {
	target, err := s.remotePath(key)
	if err != nil {
		return err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.MkdirAll(path.Dir(target)); err != nil {
		return storageError(err, sftpBackend, "mkdir")
	}

	tmp := path.Join(path.Dir(target), tempPrefix+path.Base(target))
	f, err := client.Create(tmp)
	if err != nil {
		return storageError(err, sftpBackend, "create")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = client.Remove(tmp)
		return storageError(err, sftpBackend, "write")
	}
	if err := f.Close(); err != nil {
		_ = client.Remove(tmp)
		return storageError(err, sftpBackend, "close")
	}
	if err := client.PosixRename(tmp, target); err != nil {
		_ = client.Remove(tmp)
		return storageError(err, sftpBackend, "rename")
	}

	s.log.Debug("object stored", logger.String("key", key), logger.String("host", s.host))
	return nil
}

// Get downloads key.
func (s *SFTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.remotePath(key)
	if err != nil {
		return nil, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	f, err := client.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(sftpBackend, key)
	}
	if err != nil {
		return nil, storageError(err, sftpBackend, "open")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, storageError(err, sftpBackend, "read")
	}
	return data, nil
}

// Delete removes key.
func (s *SFTPStore) Delete(ctx context.Context, key string) error {
	p, err := s.remotePath(key)
	if err != nil {
		return err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(sftpBackend, key)
	}
	if err != nil {
		return storageError(err, sftpBackend, "delete")
	}
	return nil
}

// List walks the base path.
func (s *SFTPStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	root := s.basePath
	if root == "" {
		root = "."
	}

	var objects []ObjectInfo
	walker := client.Walk(root)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := walker.Err(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return []ObjectInfo{}, nil
			}
			return nil, storageError(err, sftpBackend, "list")
		}
		info := walker.Stat()
		if info.IsDir() || strings.HasPrefix(info.Name(), tempPrefix) {
			continue
		}
		key := relativeKey(root, walker.Path())
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, ObjectInfo{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		}
	}
	slices.SortFunc(objects, func(a, b ObjectInfo) int { return strings.Compare(a.Key, b.Key) })
	return objects, nil
}

// Close is a no-op; connections are per operation.
func (s *SFTPStore) Close() error { return nil }
