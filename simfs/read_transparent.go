package simfs

// readBlock advances a transparent read (spec §4.3): it first drains as
// many cached blocks as the bitmap allows directly into the assembly
// buffer, then, if the requested range isn't fully assembled, dispatches a
// single driver fetch for the next missing block and returns — another
// tick resumes the loop once that fetch completes.
func (e *Engine) readBlock() {
	o := e.queue.head()
	if o == nil {
		return
	}

	startBlock := o.offset / transparentBlockSize
	endBlock := (o.offset + o.numBytes - 1) / transparentBlockSize

	e.mu.Lock()
	if e.buffer == nil {
		e.buffer = make([]byte, o.numBytes)
	}
	buf := e.buffer
	fd := e.cacheFD
	bm := e.cacheBitmap
	e.mu.Unlock()

	for fd != nil && o.current <= endBlock {
		if !bm.isSet(o.current) {
			break
		}

		var bufOff, toRead int

		var seekOff int64

		if o.current == startBlock {
			bufOff = 0
			seekOff = unitOffset(o.current, transparentBlockSize) + int64(o.offset%transparentBlockSize)
			toRead = minInt(minInt(transparentBlockSize-o.offset%transparentBlockSize, o.numBytes), o.length-o.offset)
		} else {
			bufOff = (o.current-startBlock)*transparentBlockSize - o.offset%transparentBlockSize
			seekOff = unitOffset(o.current, transparentBlockSize)
			toRead = minInt(minInt(transparentBlockSize, o.numBytes-bufOff), o.length-o.current*transparentBlockSize)
		}

		n, err := fd.ReadAt(buf[bufOff:bufOff+toRead], seekOff)
		if err != nil || n != toRead {
			break
		}

		o.current++
	}

	if o.current > endBlock {
		o.readCB(true, o.numBytes, 0, buf, o.recordLength, o.userdataR)
		e.endCurrent()

		return
	}

	readBytes := minInt(o.length-o.current*transparentBlockSize, transparentBlockSize)

	e.driver.ReadFileTransparent(o.efid, o.current*transparentBlockSize, readBytes, e.handleBlock)
}

// handleBlock is the driver.ReadFileTransparent completion. It copies the
// overlapping slice of the returned block into the assembly buffer, writes
// the full block to the cache unconditionally (spec §4.3 "driver returns
// unconditionally update the cache bitmap"), and either completes the
// operation or resumes [Engine.readBlock].
func (e *Engine) handleBlock(res BlockResult) {
	o := e.queue.head()
	if o == nil {
		return
	}

	if res.Err != nil {
		e.opError(o)
		return
	}

	startBlock := o.offset / transparentBlockSize
	endBlock := (o.offset + o.numBytes - 1) / transparentBlockSize

	var bufOff, dataOff, toCopy int

	if o.current == startBlock {
		bufOff = 0
		dataOff = o.offset % transparentBlockSize
		toCopy = minInt(minInt(transparentBlockSize-dataOff, o.numBytes), len(res.Data)-dataOff)
	} else {
		bufOff = (o.current-startBlock)*transparentBlockSize - o.offset%transparentBlockSize
		dataOff = 0
		toCopy = minInt(minInt(transparentBlockSize, o.numBytes-bufOff), len(res.Data))
	}

	e.mu.Lock()
	buf := e.buffer
	fd := e.cacheFD
	bm := e.cacheBitmap
	e.mu.Unlock()

	copy(buf[bufOff:bufOff+toCopy], res.Data[dataOff:dataOff+toCopy])
	cacheBlock(fd, &bm, o.current, transparentBlockSize, res.Data)

	e.mu.Lock()
	e.cacheBitmap = bm
	e.mu.Unlock()

	o.current++

	if o.current > endBlock {
		o.readCB(true, o.numBytes, 0, buf, o.recordLength, o.userdataR)
		e.endCurrent()

		return
	}

	e.postTick(e.readBlock)
}
