package simfs

import "github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"

// cacheBlock records that unit k (a 256-byte block for transparent EFs, one
// record for fixed/cyclic EFs) of size unitSize now holds data, implementing
// the spec §4.5 primitive. It is a no-op if f is nil (no cache file open for
// the current operation).
//
// The on-disk bitmap byte is written only after the payload write
// succeeds, and the in-memory bitmap mirror is updated only after that — so a
// failure midway never claims a unit is cached when its bytes weren't
// actually persisted (invariant I3).
func cacheBlock(f fsx.File, bm *bitmap, k, unitSize int, data []byte) {
	if f == nil {
		return
	}

	n, err := f.WriteAt(data, unitOffset(k, unitSize))
	if err != nil || n != len(data) {
		return
	}

	byteOff := k / 8
	b := bm[byteOff] | (1 << uint(k%8))

	if _, err := f.WriteAt([]byte{b}, int64(offBitmap+byteOff)); err != nil {
		return
	}

	bm[byteOff] = b
}
