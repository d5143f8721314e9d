package simfs

// dispatchWrite issues the head write operation's driver call (spec §4.6).
// The cache is never consulted or updated on a write; only the driver's
// acknowledgement matters.
func (e *Engine) dispatchWrite(o *op) {
	switch o.expectedStructure {
	case StructureTransparent:
		e.driver.WriteFileTransparent(o.efid, 0, o.length, o.writeData, e.handleWrite)
	case StructureFixed:
		e.driver.WriteFileLinear(o.efid, o.writeRecord, o.length, o.writeData, e.handleWrite)
	case StructureCyclic:
		e.driver.WriteFileCyclic(o.efid, o.length, o.writeData, e.handleWrite)
	default:
		e.opError(o)
	}
}

// handleWrite is the driver write completion (spec §4.6 "write_cb").
func (e *Engine) handleWrite(err error) {
	o := e.queue.head()
	if o == nil {
		return
	}

	o.writeCB(err == nil, o.userdataW)
	e.endCurrent()
}
