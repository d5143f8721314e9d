//go:build !unix

package fsx

import "os"

// wrapRealFile is the non-unix fallback: [os.File] already satisfies [File]
// via its own ReadAt/WriteAt implementation.
func wrapRealFile(f *os.File) File {
	return f
}
