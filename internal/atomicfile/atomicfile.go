// Package atomicfile writes small whole files atomically via the
// write-temp-then-rename pattern.
//
// It exists for the version sentinel file (see simfs's path manager): a
// one-byte file that must never be observed half-written, even though the
// per-EF cache files themselves are updated in place with positioned I/O
// (see simfs/cache_io.go) rather than through this package.
package atomicfile

import (
	"bytes"
	"fmt"

	"github.com/natefinch/atomic"
)

// WriteByte atomically replaces the file at path with the single byte b.
func WriteByte(path string, b byte) error {
	err := atomic.WriteFile(path, bytes.NewReader([]byte{b}))
	if err != nil {
		return fmt.Errorf("atomicfile: write %s: %w", path, err)
	}

	return nil
}
