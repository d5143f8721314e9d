//go:build unix

package fsx

import (
	"os"

	"golang.org/x/sys/unix"
)

// realFile wraps [os.File] to route positioned I/O through raw pread(2)/pwrite(2)
// syscalls instead of [os.File.ReadAt]/[os.File.WriteAt]. Functionally equivalent,
// but it keeps the fd usable for [unix.Flock]-style interop and avoids the extra
// poller bookkeeping the os package does for its own ReadAt/WriteAt path.
type realFile struct {
	*os.File
}

func wrapRealFile(f *os.File) File {
	return &realFile{File: f}
}

func (f *realFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := unix.Pread(int(f.File.Fd()), p, off)
	if err != nil {
		return n, &os.PathError{Op: "pread", Path: f.File.Name(), Err: err}
	}

	return n, nil
}

func (f *realFile) WriteAt(p []byte, off int64) (int, error) {
	n, err := unix.Pwrite(int(f.File.Fd()), p, off)
	if err != nil {
		return n, &os.PathError{Op: "pwrite", Path: f.File.Name(), Err: err}
	}

	return n, nil
}
