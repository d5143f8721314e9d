package simfs

// CapabilityDriver adapts a partially-implemented [Driver] (only the fields
// that are set) into a full [Driver]: calling an unset capability fails the
// operation with [ErrCapabilityMissing] instead of panicking on a nil method
// value, matching spec §6 ("any may be absent, in which case operations
// requiring them fail").
type CapabilityDriver struct {
	ReadFileInfoFunc         func(efid EFID, cb func(FileInfoResult))
	ReadFileTransparentFunc  func(efid EFID, offset, numBytes int, cb func(BlockResult))
	ReadFileLinearFunc       func(efid EFID, record, recordLength int, cb func(BlockResult))
	ReadFileCyclicFunc       func(efid EFID, record, recordLength int, cb func(BlockResult))
	WriteFileTransparentFunc func(efid EFID, offset, length int, data []byte, cb func(error))
	WriteFileLinearFunc      func(efid EFID, record, length int, data []byte, cb func(error))
	WriteFileCyclicFunc      func(efid EFID, length int, data []byte, cb func(error))
}

// NewCapabilityDriver returns a [Driver] that serves requests via whichever
// *Func fields of partial are non-nil.
func NewCapabilityDriver(partial CapabilityDriver) Driver {
	return &partial
}

func (d *CapabilityDriver) ReadFileInfo(efid EFID, cb func(FileInfoResult)) {
	if d.ReadFileInfoFunc == nil {
		cb(FileInfoResult{Err: ErrCapabilityMissing})
		return
	}

	d.ReadFileInfoFunc(efid, cb)
}

func (d *CapabilityDriver) ReadFileTransparent(efid EFID, offset, numBytes int, cb func(BlockResult)) {
	if d.ReadFileTransparentFunc == nil {
		cb(BlockResult{Err: ErrCapabilityMissing})
		return
	}

	d.ReadFileTransparentFunc(efid, offset, numBytes, cb)
}

func (d *CapabilityDriver) ReadFileLinear(efid EFID, record, recordLength int, cb func(BlockResult)) {
	if d.ReadFileLinearFunc == nil {
		cb(BlockResult{Err: ErrCapabilityMissing})
		return
	}

	d.ReadFileLinearFunc(efid, record, recordLength, cb)
}

func (d *CapabilityDriver) ReadFileCyclic(efid EFID, record, recordLength int, cb func(BlockResult)) {
	if d.ReadFileCyclicFunc == nil {
		cb(BlockResult{Err: ErrCapabilityMissing})
		return
	}

	d.ReadFileCyclicFunc(efid, record, recordLength, cb)
}

func (d *CapabilityDriver) WriteFileTransparent(efid EFID, offset, length int, data []byte, cb func(error)) {
	if d.WriteFileTransparentFunc == nil {
		cb(ErrCapabilityMissing)
		return
	}

	d.WriteFileTransparentFunc(efid, offset, length, data, cb)
}

func (d *CapabilityDriver) WriteFileLinear(efid EFID, record, length int, data []byte, cb func(error)) {
	if d.WriteFileLinearFunc == nil {
		cb(ErrCapabilityMissing)
		return
	}

	d.WriteFileLinearFunc(efid, record, length, data, cb)
}

func (d *CapabilityDriver) WriteFileCyclic(efid EFID, length int, data []byte, cb func(error)) {
	if d.WriteFileCyclicFunc == nil {
		cb(ErrCapabilityMissing)
		return
	}

	d.WriteFileCyclicFunc(efid, length, data, cb)
}

var _ Driver = (*CapabilityDriver)(nil)
