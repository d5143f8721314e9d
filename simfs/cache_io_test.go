package simfs

import (
	"errors"
	"testing"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"
)

// errFakeWriteFailed is returned by fakeCacheFile once its configured call
// to fail is reached.
var errFakeWriteFailed = errors.New("simfs: fake cache write failed")

// fakeCacheFile is a minimal in-memory [fsx.File] that can be told to fail
// its Nth WriteAt call, for exercising [cacheBlock]'s partial-write handling
// (invariant I3: a failing write never marks a unit present).
type fakeCacheFile struct {
	data       []byte
	writeCalls int
	failOnCall int // 0 disables fault injection
}

func (f *fakeCacheFile) ReadAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(f.data) {
		return 0, errors.New("simfs: fake read past end")
	}

	n := copy(p, f.data[off:end])

	return n, nil
}

func (f *fakeCacheFile) WriteAt(p []byte, off int64) (int, error) {
	f.writeCalls++

	if f.failOnCall != 0 && f.writeCalls == f.failOnCall {
		return 0, errFakeWriteFailed
	}

	end := int(off) + len(p)
	if end > len(f.data) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}

	copy(f.data[off:end], p)

	return len(p), nil
}

func (f *fakeCacheFile) Close() error              { return nil }
func (f *fakeCacheFile) Fd() uintptr               { return 0 }
func (f *fakeCacheFile) Truncate(size int64) error { return nil }

var _ fsx.File = (*fakeCacheFile)(nil)

func TestCacheBlock_SuccessfulWrite_MarksBitmap(t *testing.T) {
	t.Parallel()

	f := &fakeCacheFile{data: make([]byte, headerSize+256)}

	var bm bitmap

	cacheBlock(f, &bm, 0, 256, make([]byte, 256))

	if !bm.isSet(0) {
		t.Fatal("bit 0 not set after successful cacheBlock")
	}
}

func TestCacheBlock_FailedPayloadWrite_NeverMarksBitmap(t *testing.T) {
	t.Parallel()

	f := &fakeCacheFile{data: make([]byte, headerSize+256), failOnCall: 1}

	var bm bitmap

	cacheBlock(f, &bm, 0, 256, make([]byte, 256))

	if bm.isSet(0) {
		t.Fatal("bit 0 marked set despite payload write failure")
	}
}

func TestCacheBlock_FailedBitmapWrite_LeavesInMemoryMirrorUnset(t *testing.T) {
	t.Parallel()

	// First WriteAt (payload) succeeds, second (bitmap byte) fails.
	f := &fakeCacheFile{data: make([]byte, headerSize+256), failOnCall: 2}

	var bm bitmap

	cacheBlock(f, &bm, 0, 256, make([]byte, 256))

	if bm.isSet(0) {
		t.Fatal("in-memory bitmap marked set despite on-disk bitmap write failure")
	}
}

func TestCacheBlock_NilFile_IsNoop(t *testing.T) {
	t.Parallel()

	var bm bitmap

	cacheBlock(nil, &bm, 0, 256, make([]byte, 256))

	if bm.isSet(0) {
		t.Fatal("bitmap modified despite nil file")
	}
}
