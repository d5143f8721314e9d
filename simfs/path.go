package simfs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/atomicfile"
	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"
)

// cacheFilePerm is the permission mode for newly created per-EF cache files:
// user-only read+write (spec §6). The version sentinel is written through
// internal/atomicfile, which does not use this constant.
const cacheFilePerm = 0o600

// efFileName matches the four-lower-case-hex-digit cache file names written
// by cacheFilePath; anything else under a subscriber directory is left alone
// by [CheckVersion].
var efFileName = regexp.MustCompile(`^[0-9a-f]{4}$`)

// subscriberDir returns <storageRoot>/<imsi>-<phase>.
func subscriberDir(storageRoot, imsi string, phase Phase) string {
	return filepath.Join(storageRoot, fmt.Sprintf("%s-%d", imsi, int(phase)))
}

// cacheFilePath returns <storageRoot>/<imsi>-<phase>/<efid:%04x>.
func cacheFilePath(storageRoot, imsi string, phase Phase, id EFID) string {
	return filepath.Join(subscriberDir(storageRoot, imsi, phase), id.String())
}

// versionFilePath returns <storageRoot>/<imsi>-<phase>/version.
func versionFilePath(storageRoot, imsi string, phase Phase) string {
	return filepath.Join(subscriberDir(storageRoot, imsi, phase), "version")
}

// CheckVersion implements the spec §4.7 version manager. It must be called
// once when an [Engine] is created, before any operation is serviced.
//
// If the version sentinel is missing or doesn't match [SIMFSVersion], every
// regular file directly under the subscriber directory whose name is exactly
// four lower-case hex digits is deleted (iteration order does not affect the
// outcome — deletion is per-file and idempotent), and the sentinel is
// rewritten. This is the only supported cache-invalidation mechanism (spec §4.7,
// §8 P6).
func CheckVersion(fs fsx.FS, storageRoot, imsi string, phase Phase) error {
	dir := subscriberDir(storageRoot, imsi, phase)

	mkErr := fs.MkdirAll(dir, 0o700)
	if mkErr != nil {
		return fmt.Errorf("simfs: create subscriber dir %s: %w", dir, mkErr)
	}

	versionPath := versionFilePath(storageRoot, imsi, phase)

	current, readErr := fs.ReadFile(versionPath)
	if readErr == nil && len(current) == 1 && current[0] == SIMFSVersion {
		return nil
	}

	wipeErr := wipeSubscriberCaches(fs, dir)
	if wipeErr != nil {
		return wipeErr
	}

	writeErr := atomicfile.WriteByte(versionPath, SIMFSVersion)
	if writeErr != nil {
		return fmt.Errorf("simfs: write version sentinel: %w", writeErr)
	}

	return nil
}

// ForceWipe unconditionally deletes every per-EF cache file for (imsi,
// phase) and rewrites the version sentinel, regardless of its current
// value. It exists for tooling that needs to simulate the effect of a
// version bump without waiting for one (cmd/simfsctl's "wipe" command);
// [CheckVersion] remains the only invalidation path the engine itself uses.
func ForceWipe(fs fsx.FS, storageRoot, imsi string, phase Phase) error {
	dir := subscriberDir(storageRoot, imsi, phase)

	if err := wipeSubscriberCaches(fs, dir); err != nil {
		return err
	}

	return atomicfile.WriteByte(versionFilePath(storageRoot, imsi, phase), SIMFSVersion)
}

// wipeSubscriberCaches deletes every per-EF cache file directly under dir.
func wipeSubscriberCaches(fs fsx.FS, dir string) error {
	entries, readErr := fs.ReadDir(dir)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil
		}

		return fmt.Errorf("simfs: list subscriber dir %s: %w", dir, readErr)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !efFileName.MatchString(name) {
			continue
		}

		rmErr := fs.Remove(filepath.Join(dir, name))
		if rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("simfs: remove stale cache file %s: %w", name, rmErr)
		}
	}

	return nil
}
