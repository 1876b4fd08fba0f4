package log

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// RotateOptions controls when a RotatingFile rolls over and what it keeps.
type RotateOptions struct {
	// MaxSize is the size in bytes that triggers rotation. Zero or less
	// disables size-based rotation.
	MaxSize int64

	// MaxBackups is the number of rotated files to keep. Zero discards the
	// old log on rotation.
	MaxBackups int

	// Compress gzips rotated files as <path>.N.gz. Wire logs are mostly
	// repetitive XML and shrink well.
	Compress bool
}

// RotatingFile is an io.WriteCloser for wire and audit logs. A single write
// larger than MaxSize goes whole into a fresh file, so an envelope is never
// split across files.
type RotatingFile struct {
	mu   sync.Mutex
	path string
	opts RotateOptions

	file *os.File
	size int64
}

// NewRotatingFile opens path for appending, creating its directory.
func NewRotatingFile(path string, opts RotateOptions) (*RotatingFile, error) {
	rf := &RotatingFile{path: path, opts: opts}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(rf.path), 0750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	// Logs may hold request ids and account names: owner only.
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	rf.file = f
	rf.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first when p would overflow MaxSize.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.opts.MaxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.opts.MaxSize {
		if err := rf.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Rotate forces a rotation regardless of size.
func (rf *RotatingFile) Rotate() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.rotate()
}

// Backup returns the name of the n-th rotated file.
func (rf *RotatingFile) Backup(n int) string {
	name := rf.path + "." + strconv.Itoa(n)
	if rf.opts.Compress {
		name += ".gz"
	}
	return name
}

// rotate shifts backups up by one and archives the current file as
// Backup(1). Must be called with mu held.
func (rf *RotatingFile) rotate() error {
	if rf.file != nil {
		if err := rf.file.Close(); err != nil {
			return err
		}
		rf.file = nil
	}

	if rf.opts.MaxBackups <= 0 {
		if err := removeIfExists(rf.path); err != nil {
			return err
		}
		return rf.open()
	}

	if err := removeIfExists(rf.Backup(rf.opts.MaxBackups)); err != nil {
		return err
	}
	for i := rf.opts.MaxBackups - 1; i >= 1; i-- {
		if err := os.Rename(rf.Backup(i), rf.Backup(i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("shift backup %d: %w", i, err)
		}
	}
	if err := rf.archive(rf.Backup(1)); err != nil {
		return fmt.Errorf("archive current log: %w", err)
	}
	return rf.open()
}

// archive moves the current log to dst, gzipping it when enabled.
func (rf *RotatingFile) archive(dst string) error {
	if !rf.opts.Compress {
		if err := os.Rename(rf.path, dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	src, err := os.Open(rf.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	err = gzipTo(dst, src)
	_ = src.Close()
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(rf.path)
}

func gzipTo(dst string, r io.Reader) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, r); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Close implements io.Closer. It is safe to call more than once.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
