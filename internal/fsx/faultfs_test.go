package fsx_test

import (
	"errors"
	"os"
	"sync"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"
)

// errInjectedFault is returned by a faultFile's instrumented call once its
// trigger count is reached.
var errInjectedFault = errors.New("fsx_test: injected fault")

// faultFS wraps a real [fsx.FS], failing the Nth call to a chosen File method
// across every file it opens. It lives in package fsx_test, so only this
// package's tests use it; the cache engine's "a failing cache write must not
// mark the bitmap" contract (invariant I3) is tested in simfs/cache_io_test.go
// with its own fake file.
type faultFS struct {
	fsx.FS

	mu       sync.Mutex
	method   string // "WriteAt" or "ReadAt"
	failOn   int    // 1-based call number to fail
	callSeen int
}

// newFaultFS returns a faultFS that fails the failOn'th call to method
// (either "WriteAt" or "ReadAt") made through any file it opens.
func newFaultFS(method string, failOn int) *faultFS {
	return &faultFS{FS: fsx.NewReal(), method: method, failOn: failOn}
}

func (f *faultFS) OpenFile(path string, flag int, perm os.FileMode) (fsx.File, error) {
	inner, err := f.FS.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &faultFile{File: inner, owner: f}, nil
}

func (f *faultFS) trigger(method string) bool {
	if method != f.method {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.callSeen++

	return f.callSeen == f.failOn
}

type faultFile struct {
	fsx.File
	owner *faultFS
}

func (f *faultFile) WriteAt(p []byte, off int64) (int, error) {
	if f.owner.trigger("WriteAt") {
		return 0, errInjectedFault
	}

	return f.File.WriteAt(p, off)
}

func (f *faultFile) ReadAt(p []byte, off int64) (int, error) {
	if f.owner.trigger("ReadAt") {
		return 0, errInjectedFault
	}

	return f.File.ReadAt(p, off)
}

var _ fsx.FS = (*faultFS)(nil)
var _ fsx.File = (*faultFile)(nil)
