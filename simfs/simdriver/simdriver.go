// Package simdriver provides an in-memory fake implementation of
// [simfs.Driver] and [simfs.IdentityProvider], for tests and for the
// cmd/simfsctl interactive demo.
//
// Every call completes through the caller-supplied [simfs.IdleScheduler]
// instead of invoking its callback inline, so code exercising ordering
// guarantees (P3 "at most one driver call in flight", P4 "FIFO") observes
// genuinely deferred completions rather than a same-stack-frame shortcut.
package simdriver

import (
	"errors"
	"sync"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/simfs"
)

// ErrUnknownFile is returned via a callback when a requested EF id was never
// registered with [Driver.AddFile].
var ErrUnknownFile = errors.New("simdriver: unknown file")

// File describes one simulated Elementary File: its structure, record
// geometry (ignored for TRANSPARENT), access conditions, and content.
type File struct {
	Structure    simfs.Structure
	RecordLength int
	Access       [3]byte
	Data         []byte
}

// Driver is a fake [simfs.Driver] backed by an in-memory map of [File].
type Driver struct {
	mu        sync.Mutex
	files     map[simfs.EFID]*File
	scheduler simfs.IdleScheduler

	// Calls counts driver invocations per EF and per method, for tests
	// asserting cache-hit/miss behavior (spec §8 P2, P5).
	Calls map[simfs.EFID]map[string]int
}

// New returns a Driver whose callbacks are all posted through scheduler.
func New(scheduler simfs.IdleScheduler) *Driver {
	return &Driver{
		files:     make(map[simfs.EFID]*File),
		scheduler: scheduler,
		Calls:     make(map[simfs.EFID]map[string]int),
	}
}

// AddFile registers (or replaces) the simulated content of an EF.
func (d *Driver) AddFile(id simfs.EFID, f File) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := f
	cp.Data = append([]byte(nil), f.Data...)
	d.files[id] = &cp
}

func (d *Driver) count(id simfs.EFID, method string) {
	if d.Calls[id] == nil {
		d.Calls[id] = make(map[string]int)
	}

	d.Calls[id][method]++
}

func (d *Driver) ReadFileInfo(efid simfs.EFID, cb func(simfs.FileInfoResult)) {
	d.mu.Lock()
	f, ok := d.files[efid]
	d.count(efid, "ReadFileInfo")
	d.mu.Unlock()

	d.scheduler.Post(func() {
		if !ok {
			cb(simfs.FileInfoResult{Err: ErrUnknownFile})
			return
		}

		cb(simfs.FileInfoResult{
			Length:       len(f.Data),
			Structure:    f.Structure,
			RecordLength: recordLengthOf(f),
			Access:       f.Access,
		})
	})
}

func recordLengthOf(f *File) int {
	if f.Structure == simfs.StructureTransparent {
		return len(f.Data)
	}

	return f.RecordLength
}

func (d *Driver) ReadFileTransparent(efid simfs.EFID, offset, numBytes int, cb func(simfs.BlockResult)) {
	d.mu.Lock()
	f, ok := d.files[efid]
	d.count(efid, "ReadFileTransparent")

	var chunk []byte

	if ok {
		end := offset + numBytes
		if end > len(f.Data) {
			end = len(f.Data)
		}

		if offset < end {
			chunk = append([]byte(nil), f.Data[offset:end]...)
		}
	}

	d.mu.Unlock()

	d.scheduler.Post(func() {
		if !ok {
			cb(simfs.BlockResult{Err: ErrUnknownFile})
			return
		}

		cb(simfs.BlockResult{Data: chunk})
	})
}

func (d *Driver) readRecord(efid simfs.EFID, method string, record, recordLength int, cb func(simfs.BlockResult)) {
	d.mu.Lock()
	f, ok := d.files[efid]
	d.count(efid, method)

	var rec []byte

	if ok {
		start := (record - 1) * recordLength
		end := start + recordLength

		if start >= 0 && end <= len(f.Data) {
			rec = append([]byte(nil), f.Data[start:end]...)
		}
	}

	d.mu.Unlock()

	d.scheduler.Post(func() {
		if !ok || rec == nil {
			cb(simfs.BlockResult{Err: ErrUnknownFile})
			return
		}

		cb(simfs.BlockResult{Data: rec})
	})
}

func (d *Driver) ReadFileLinear(efid simfs.EFID, record, recordLength int, cb func(simfs.BlockResult)) {
	d.readRecord(efid, "ReadFileLinear", record, recordLength, cb)
}

func (d *Driver) ReadFileCyclic(efid simfs.EFID, record, recordLength int, cb func(simfs.BlockResult)) {
	d.readRecord(efid, "ReadFileCyclic", record, recordLength, cb)
}

func (d *Driver) WriteFileTransparent(efid simfs.EFID, offset, length int, data []byte, cb func(error)) {
	d.mu.Lock()
	f, ok := d.files[efid]
	d.count(efid, "WriteFileTransparent")

	if ok {
		needed := offset + length
		if needed > len(f.Data) {
			grown := make([]byte, needed)
			copy(grown, f.Data)
			f.Data = grown
		}

		copy(f.Data[offset:offset+length], data[:length])
	}

	d.mu.Unlock()

	d.scheduler.Post(func() {
		if !ok {
			cb(ErrUnknownFile)
			return
		}

		cb(nil)
	})
}

func (d *Driver) WriteFileLinear(efid simfs.EFID, record, length int, data []byte, cb func(error)) {
	d.mu.Lock()
	f, ok := d.files[efid]
	d.count(efid, "WriteFileLinear")

	if ok {
		start := (record - 1) * f.RecordLength
		end := start + length

		if end <= len(f.Data) {
			copy(f.Data[start:end], data[:length])
		}
	}

	d.mu.Unlock()

	d.scheduler.Post(func() {
		if !ok {
			cb(ErrUnknownFile)
			return
		}

		cb(nil)
	})
}

// WriteFileCyclic writes a new most-recent record, shifting existing
// records down by one and dropping the oldest (3GPP cyclic-file semantics).
func (d *Driver) WriteFileCyclic(efid simfs.EFID, length int, data []byte, cb func(error)) {
	d.mu.Lock()
	f, ok := d.files[efid]
	d.count(efid, "WriteFileCyclic")

	if ok && f.RecordLength > 0 {
		total := len(f.Data) / f.RecordLength

		if total > 0 {
			copy(f.Data[f.RecordLength:], f.Data[:(total-1)*f.RecordLength])
			copy(f.Data[:f.RecordLength], data[:min(length, f.RecordLength)])
		}
	}

	d.mu.Unlock()

	d.scheduler.Post(func() {
		if !ok {
			cb(ErrUnknownFile)
			return
		}

		cb(nil)
	})
}

var _ simfs.Driver = (*Driver)(nil)

// Identity is a fake [simfs.IdentityProvider] with a fixed IMSI and phase.
type Identity struct {
	imsi    string
	hasIMSI bool
	phase   simfs.Phase
}

// NewIdentity returns an Identity exposing imsi (or no IMSI, if imsi == "")
// and phase.
func NewIdentity(imsi string, phase simfs.Phase) *Identity {
	return &Identity{imsi: imsi, hasIMSI: imsi != "", phase: phase}
}

func (i *Identity) IMSI() (string, bool) { return i.imsi, i.hasIMSI }
func (i *Identity) Phase() simfs.Phase   { return i.phase }

var _ simfs.IdentityProvider = (*Identity)(nil)
