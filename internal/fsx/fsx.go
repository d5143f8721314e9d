// Package fsx provides a narrow filesystem abstraction so the SIM EF cache
// engine's disk I/O can be exercised under fault injection in tests without
// touching a real filesystem.
//
// The main types are:
//   - [FS]: interface for filesystem operations
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using the [os] package
//
// Paths use OS semantics (like the os package and path/filepath), not the
// slash-separated paths used by the standard library io/fs package.
package fsx

import (
	"io"
	"os"
)

// File represents an OS-backed open file descriptor.
//
// This interface is satisfied by [os.File]. Unlike a plain [io.ReadWriteCloser],
// it exposes positioned reads/writes ([File.ReadAt]/[File.WriteAt]) so a single
// long-lived file descriptor never needs mutable seek state — the cache engine
// keeps one fd open for the lifetime of an operation and interleaves header,
// bitmap, and payload access on it.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Fd returns the OS file descriptor, for use with package unix.
	Fd() uintptr

	// Truncate changes the size of the file. See [os.File.Truncate].
	Truncate(size int64) error
}

// FS defines filesystem operations for reading, writing, and managing the
// per-subscriber cache directory tree.
//
// All methods mirror their [os] package equivalents but can be intercepted
// for testing with fault injection.
type FS interface {
	// OpenFile opens (optionally creating/truncating) a file. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire small file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// MkdirAll creates a directory tree. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// ReadDir lists directory entries. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// Remove deletes a single file. See [os.Remove].
	Remove(path string) error
}

// Real implements [FS] using the real filesystem.
//
// All methods are pure passthroughs to the [os] package with identical
// behavior and error semantics.
type Real struct{}

// NewReal returns a new [Real] filesystem.
func NewReal() *Real {
	return &Real{}
}

func (r *Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(path, flag, perm) //nolint:gosec // path is from caller
	if err != nil {
		return nil, err
	}

	return wrapRealFile(f), nil
}

func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // path is from caller
}

func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

// Compile-time interface check.
var _ FS = (*Real)(nil)
var _ File = (*os.File)(nil)
