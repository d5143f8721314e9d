package simfs

import (
	"fmt"
	"os"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"
)

// CacheStatus reports the on-disk state of one EF's cache file (spec §3
// "Cache file layout"), for diagnostics.
type CacheStatus struct {
	// Exists is false if no cache file exists for this EF.
	Exists bool
	Info   FileInfo
	// Present lists the 0-based indices of cache units (blocks for
	// transparent EFs, records for fixed/cyclic EFs) currently marked
	// present in the bitmap.
	Present []int
}

// Inspect reads an EF's cache file header directly, without going through
// an [Engine] or disturbing any of its in-flight state. It is read-only
// tooling (cmd/simfsctl's "bitmap" command), not part of the engine's own
// cache probe (see [Engine.checkCached] for that).
func Inspect(fs fsx.FS, storageRoot, imsi string, phase Phase, id EFID) (CacheStatus, error) {
	path := cacheFilePath(storageRoot, imsi, phase, id)

	f, err := fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return CacheStatus{}, nil
		}

		return CacheStatus{}, fmt.Errorf("simfs: open cache file: %w", err)
	}
	defer f.Close()

	var hdr [headerSize]byte

	n, err := f.ReadAt(hdr[:], 0)
	if err != nil || n != headerSize {
		return CacheStatus{}, fmt.Errorf("simfs: %s: short or unreadable cache header", id)
	}

	fi := decodeFileInfo(hdr[:fileInfoSize])

	var bm bitmap
	copy(bm[:], hdr[offBitmap:])

	var numUnits int

	switch {
	case fi.Structure == StructureTransparent:
		numUnits = (int(fi.Length) + transparentBlockSize - 1) / transparentBlockSize
	case fi.RecordLength > 0:
		numUnits = fi.NumRecords()
	}

	var present []int

	for k := range numUnits {
		if k >= bitmapBits {
			break
		}

		if bm.isSet(k) {
			present = append(present, k)
		}
	}

	return CacheStatus{Exists: true, Info: fi, Present: present}, nil
}
