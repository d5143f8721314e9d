package simfs

// readRecord advances a record-based read (spec §4.4): it replays cached
// records starting at the operation's current record, firing the caller's
// callback once per record, then dispatches one driver fetch for the first
// missing record and returns.
func (e *Engine) readRecord() {
	o := e.queue.head()
	if o == nil {
		return
	}

	total := o.length / o.recordLength

	e.mu.Lock()
	fd := e.cacheFD
	bm := e.cacheBitmap
	e.mu.Unlock()

	for fd != nil && o.current <= total {
		if !bm.isSet(o.current - 1) {
			break
		}

		buf := make([]byte, o.recordLength)

		n, err := fd.ReadAt(buf, unitOffset(o.current-1, o.recordLength))
		if err != nil || n != o.recordLength {
			break
		}

		o.readCB(true, o.length, o.current, buf, o.recordLength, o.userdataR)

		o.current++
	}

	if o.current > total {
		e.endCurrent()
		return
	}

	switch o.expectedStructure {
	case StructureFixed:
		e.driver.ReadFileLinear(o.efid, o.current, o.recordLength, e.handleRecord)
	case StructureCyclic:
		e.driver.ReadFileCyclic(o.efid, o.current, o.recordLength, e.handleRecord)
	default:
		e.opError(o)
	}
}

// handleRecord is the driver.ReadFileLinear/ReadFileCyclic completion. It
// fires the caller's callback for the fetched record, caches it, and either
// resumes [Engine.readRecord] for the next record or completes the
// operation.
func (e *Engine) handleRecord(res BlockResult) {
	o := e.queue.head()
	if o == nil {
		return
	}

	if res.Err != nil {
		e.opError(o)
		return
	}

	total := o.length / o.recordLength

	o.readCB(true, o.length, o.current, res.Data, o.recordLength, o.userdataR)

	e.mu.Lock()
	fd := e.cacheFD
	bm := e.cacheBitmap
	e.mu.Unlock()

	cacheBlock(fd, &bm, o.current-1, o.recordLength, res.Data)

	e.mu.Lock()
	e.cacheBitmap = bm
	e.mu.Unlock()

	if o.current < total {
		o.current++
		e.postTick(e.readRecord)
	} else {
		e.endCurrent()
	}
}
