// Package fileio opens annotation and table inputs and writes the remapped
// output. Inputs may be plain, gzip-compressed or stdin; outputs are written
// to a temporary file and renamed into place so a failed run never leaves a
// truncated file at the destination.
package fileio

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"accremap/internal/errors"
)

// StdStream is the path that stands for stdin or stdout.
const StdStream = "-"

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenInput opens path for reading. "-" reads stdin. Gzip input is detected
// by its magic number or a .gz suffix and decompressed transparently.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == StdStream {
		return io.NopCloser(os.Stdin), nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapFileError(path, err)
	}

	var sig [2]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, errors.NewFileNotReadableError(path, err)
	}

	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, errors.NewFileError(path, "invalid gzip stream", err)
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// AtomicFile is an output destination that only replaces its target when
// Commit succeeds.
type AtomicFile struct {
	path   string
	file   *os.File
	stdout bool
	done   bool
}

// CreateAtomic prepares a write to path. "-" writes straight to stdout.
func CreateAtomic(path string) (*AtomicFile, error) {
	if path == StdStream {
		return &AtomicFile{path: path, file: os.Stdout, stdout: true}, nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errors.WrapWriteError(path, err)
	}

	return &AtomicFile{path: path, file: tmp}, nil
}

// Path returns the final destination path.
func (a *AtomicFile) Path() string {
	return a.path
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	n, err := a.file.Write(p)
	if err != nil {
		return n, errors.WrapWriteError(a.path, err)
	}
	return n, nil
}

// Commit flushes the temporary file and renames it over the destination,
// keeping the permission bits of a file it replaces.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true

	if a.stdout {
		return nil
	}

	tmpName := a.file.Name()
	defer os.Remove(tmpName)

	if err := a.file.Sync(); err != nil {
		_ = a.file.Close()
		return errors.NewFileNotWritableError(a.path, err)
	}
	if err := a.file.Close(); err != nil {
		return errors.NewFileNotWritableError(a.path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(a.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return errors.NewFileNotWritableError(a.path, err)
	}

	if err := os.Rename(tmpName, a.path); err != nil {
		return errors.NewFileNotWritableError(a.path, err)
	}
	return nil
}

// Abort discards everything written so far. It is a no-op after Commit.
func (a *AtomicFile) Abort() error {
	if a.done || a.stdout {
		return nil
	}
	a.done = true

	tmpName := a.file.Name()
	_ = a.file.Close()
	if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
		return errors.NewFileError(tmpName, "failed to remove temporary file", err)
	}
	return nil
}
