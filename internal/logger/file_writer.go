package logger

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

const fileBufferSize = 32 * 1024

// BufferedFileWriter is a mutex-guarded buffered writer over an append-only log file.
type BufferedFileWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewBufferedFileWriter opens path for appending, creating it if needed.
func NewBufferedFileWriter(path string) (*BufferedFileWriter, error) {
	//nolint:gosec // path comes from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &BufferedFileWriter{
		file: f,
		buf:  bufio.NewWriterSize(f, fileBufferSize),
	}, nil
}

func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

// Flush pushes buffered bytes to the file.
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.buf.Flush()
}

// Close flushes, syncs and closes the file. Later writes return os.ErrClosed.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	switch {
	case flushErr != nil:
		return flushErr
	case syncErr != nil:
		return syncErr
	default:
		return closeErr
	}
}
