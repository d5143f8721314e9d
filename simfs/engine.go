package simfs

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"
)

// Engine is the cache engine for one SIM (spec §3 "Cache engine state"). It
// owns an ordered queue of pending operations and services the head of the
// queue one cooperative step at a time, interleaving cache and driver
// access, until the queue is empty.
//
// Read, Write, and Close may be called from any goroutine. Every step of
// the operation state machine itself (opNext and everything it transitively
// schedules via postTick, plus the driver completion callbacks) still runs
// on a single goroutine — the scheduler's — so invariant I1 ("at most one
// operation active at a time") holds without any locking inside that state
// machine. The state those two worlds share is the pending-operation queue,
// the head operation's cache handle/bitmap/buffer/cancel func, the
// operation id counter, the closed flag and the force-uncacheable set; mu
// and opQueue's own internal lock are exactly the seam between them.
type Engine struct {
	fs          fsx.FS
	storageRoot string
	identity    IdentityProvider
	driver      Driver
	scheduler   IdleScheduler
	logger      *log.Logger

	queue opQueue

	mu     sync.Mutex
	nextID int
	closed bool

	pendingCancel func()

	// forceUncacheable overrides the driver-reported access conditions
	// (spec I4) to always treat the listed EFs as uncacheable; see
	// [Config.ForceUncacheable] and [Engine.SetForceUncacheable].
	forceUncacheable map[EFID]bool

	// Transient state of the head operation (spec §3: "lives in the engine,
	// not the operation record"), guarded by mu.
	cacheFD     fsx.File
	cacheBitmap bitmap
	buffer      []byte
}

// NewEngine constructs an Engine. Call [CheckVersion] once per (IMSI, phase)
// before the first Read/Write, per spec §4.7. logger may be nil, in which
// case diagnostics are discarded.
func NewEngine(
	fs fsx.FS, storageRoot string, identity IdentityProvider, driver Driver, scheduler IdleScheduler, logger *log.Logger,
) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Engine{
		fs:          fs,
		storageRoot: storageRoot,
		identity:    identity,
		driver:      driver,
		scheduler:   scheduler,
		logger:      logger,
	}
}

// SetForceUncacheable pins the given EF ids as always-uncacheable,
// regardless of what access conditions the driver reports for them (an
// operator escape hatch for cards that misreport access bytes for a
// specific EF; see [Config.ForceUncacheable]). It is safe to call from any
// goroutine, including concurrently with in-flight operations; the
// override applies from the next cache probe or driver file-info response
// on: an existing cache file for a listed EF is ignored (not deleted), and
// no new one is created.
func (e *Engine) SetForceUncacheable(ids []EFID) {
	m := make(map[EFID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	e.mu.Lock()
	e.forceUncacheable = m
	e.mu.Unlock()
}

// Read enqueues a read of numBytes bytes starting at offset from the EF
// identified by efid, expected to have the given structure. numBytes == 0
// means "read to end of file" (meaningful for transparent EFs only). cb is
// invoked once the read completes or fails; see [ReadCallback].
func (e *Engine) Read(efid EFID, expected Structure, offset, numBytes int, cb ReadCallback, userdata any) error {
	if cb == nil {
		return ErrCallbackRequired
	}

	id, err := e.nextOpID()
	if err != nil {
		return err
	}

	e.enqueue(newReadOp(id, efid, expected, offset, numBytes, cb, userdata))

	return nil
}

// Write enqueues a write of the full payload data to the EF identified by
// efid. record is the 1-based record number for FIXED writes and is ignored
// for TRANSPARENT/CYCLIC. cb is invoked once the driver acknowledges or
// rejects the write.
func (e *Engine) Write(
	efid EFID, structure Structure, record int, data []byte, cb WriteCallback, userdata any,
) error {
	if cb == nil {
		return ErrCallbackRequired
	}

	id, err := e.nextOpID()
	if err != nil {
		return err
	}

	e.enqueue(newWriteOp(id, efid, structure, record, data, len(data), cb, userdata))

	return nil
}

// nextOpID validates the engine is still usable and hands out the next
// operation id, all under mu: Read/Write may race each other and Close
// across goroutines, so the closed check and the id allocation must be one
// atomic step, not two separately-locked reads.
func (e *Engine) nextOpID() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrEngineClosed
	}

	if e.driver == nil {
		return 0, ErrNoDriver
	}

	e.nextID++

	return e.nextID, nil
}

// Close tears the engine down (spec §3 "Lifecycle"): any scheduled tick is
// cancelled, the queue is drained without invoking any callback, and an open
// cache file descriptor is closed. Outstanding callbacks for the in-flight
// operation, if any, are never invoked — callers must not assume completion
// across Close.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	cancel := e.pendingCancel
	e.pendingCancel = nil
	fd := e.cacheFD
	e.cacheFD = nil
	e.buffer = nil
	e.cacheBitmap = bitmap{}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if fd != nil {
		fd.Close()
	}

	e.queue.drain()
}

func (e *Engine) enqueue(o *op) {
	if e.queue.pushAndWasEmpty(o) {
		e.postTick(e.opNext)
	}
}

// postTick schedules fn as the engine's one outstanding pending step,
// replacing whatever cancel handle was previously stored (spec §5
// "Exactly one such task is pending per engine"). The lock is held only
// around the store, never across the call into the scheduler: a
// [SyncScheduler] runs fn before Post even returns, and fn may itself call
// postTick, so holding mu across Post would deadlock on reentry.
func (e *Engine) postTick(fn func()) {
	cancel := e.scheduler.Post(fn)

	e.mu.Lock()
	e.pendingCancel = cancel
	e.mu.Unlock()
}

// opNext dispatches the head operation's next step: for reads, a cache
// probe followed by a driver file-info request on miss; for writes,
// straight to the driver (spec §4.1, §4.2 phase 1-2).
func (e *Engine) opNext() {
	o := e.queue.head()
	if o == nil {
		return
	}

	if o.isRead {
		if e.checkCached(o) {
			return
		}

		e.driver.ReadFileInfo(o.efid, e.handleFileInfo)

		return
	}

	e.dispatchWrite(o)
}

// checkCached implements spec §4.2 phase 1. It reports true if the head
// operation's next step has already been decided (either a cache hit
// dispatched the retrieval sub-state-machine, or a cached error terminated
// the operation); false means "continue to phase 2", i.e. no usable cache
// file exists.
func (e *Engine) checkCached(o *op) bool {
	imsi, ok := e.identity.IMSI()
	if !ok {
		return false
	}

	e.mu.Lock()
	forced := e.forceUncacheable[o.efid]
	e.mu.Unlock()

	if forced {
		return false
	}

	path := cacheFilePath(e.storageRoot, imsi, e.identity.Phase(), o.efid)

	f, err := e.fs.OpenFile(path, os.O_RDWR, cacheFilePerm)
	if err != nil {
		return false
	}

	var hdr [headerSize]byte

	n, err := f.ReadAt(hdr[:], 0)
	if err != nil || n != headerSize {
		f.Close()
		return false
	}

	fi := decodeFileInfo(hdr[:fileInfoSize])
	if !validFileInfo(fi) {
		f.Close()
		return false
	}

	var bm bitmap
	copy(bm[:], hdr[offBitmap:])

	o.length = int(fi.Length)
	o.recordLength = int(fi.RecordLength)

	e.mu.Lock()
	e.cacheFD = f
	e.cacheBitmap = bm
	e.mu.Unlock()

	if fi.ErrorType != 0 || fi.Structure != o.expectedStructure {
		e.opError(o)
		return true
	}

	if o.expectedStructure == StructureTransparent {
		if o.numBytes == 0 {
			o.numBytes = o.length
		}

		o.current = o.offset / transparentBlockSize
		e.postTick(e.readBlock)
	} else {
		o.current = 1
		e.postTick(e.readRecord)
	}

	return true
}

// handleFileInfo is the driver.ReadFileInfo completion (spec §4.2 phase 2).
func (e *Engine) handleFileInfo(res FileInfoResult) {
	o := e.queue.head()
	if o == nil {
		return
	}

	if res.Err != nil {
		e.opError(o)
		return
	}

	if res.Structure != o.expectedStructure {
		e.logger.Printf("simfs: %s: driver reported structure %s, expected %s", o.efid, res.Structure, o.expectedStructure)
		e.opError(o)

		return
	}

	ac := decodeAccessConditions(res.Access)

	e.mu.Lock()
	forced := e.forceUncacheable[o.efid]
	e.mu.Unlock()

	cacheable := ac.cacheable() && !forced

	o.length = res.Length
	o.recordLength = res.RecordLength

	if o.expectedStructure == StructureTransparent {
		if o.numBytes == 0 {
			o.numBytes = o.length
		}

		o.recordLength = o.length
		o.current = o.offset / transparentBlockSize
		e.postTick(e.readBlock)
	} else {
		o.current = 1
		e.postTick(e.readRecord)
	}

	if !cacheable {
		return
	}

	imsi, ok := e.identity.IMSI()
	if !ok {
		return
	}

	e.createCacheFile(imsi, o)
}

// createCacheFile stamps a fresh, truncated cache file with the file-info
// header and a zeroed bitmap (spec §4.2 phase 2 tail). Any failure leaves no
// cache fd open for this operation; per the design note in §9, a short
// write leaves the truncated file on disk rather than deleting it — the
// next probe will see a short/invalid header and treat it as a miss.
func (e *Engine) createCacheFile(imsi string, o *op) {
	path := cacheFilePath(e.storageRoot, imsi, e.identity.Phase(), o.efid)

	f, err := e.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, cacheFilePerm)
	if err != nil {
		return
	}

	fi := FileInfo{
		Structure:    o.expectedStructure,
		Length:       uint16(o.length),
		RecordLength: uint16(o.recordLength),
	}

	hdr := encodeHeader(fi, bitmap{})

	n, err := f.WriteAt(hdr[:], 0)
	if err != nil || n != headerSize {
		f.Close()
		return
	}

	e.mu.Lock()
	e.cacheFD = f
	e.cacheBitmap = bitmap{}
	e.mu.Unlock()
}

// opError reports an operation failure to the caller and ends the
// operation (spec §7).
func (e *Engine) opError(o *op) {
	if o.isRead {
		o.readCB(false, 0, 0, nil, 0, o.userdataR)
	} else {
		o.writeCB(false, o.userdataW)
	}

	e.endCurrent()
}

// endCurrent dequeues the head operation and resets the engine's transient
// state (spec §3: "the engine resets bitmap, closes fd, frees buffer, then
// schedules the next tick if the queue is non-empty").
func (e *Engine) endCurrent() {
	// Pop the head and check for a successor under one hold of the queue's
	// lock: a popHead followed by a separate len() would let a concurrent
	// Read/Write push in between, see an empty queue and post its own opNext
	// alongside the one posted here.
	e.queue.mu.Lock()
	if len(e.queue.items) > 0 {
		e.queue.items[0] = nil
		e.queue.items = e.queue.items[1:]
	}
	more := len(e.queue.items) > 0
	e.queue.mu.Unlock()

	e.mu.Lock()
	fd := e.cacheFD
	e.cacheFD = nil
	e.buffer = nil
	e.cacheBitmap = bitmap{}
	e.mu.Unlock()

	if fd != nil {
		fd.Close()
	}

	if more {
		e.postTick(e.opNext)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
