package simfs

// ReadCallback delivers the result of a read operation (spec §4.2).
//
// For transparent reads it fires once: ok, the number of bytes assembled,
// currentUnit == 0, the full assembled buffer, and the EF's record length.
// For record-based reads it fires once per record, ascending from record 1,
// with currentUnit set to that record's 1-based index and data holding just
// that record.
//
// On any error it fires exactly once with ok == false and zero/nil for the
// remaining fields.
type ReadCallback func(ok bool, totalBytes int, currentUnit int, data []byte, recordLength int, userdata any)

// WriteCallback delivers the result of a write operation: ok is true iff the
// driver reported no error.
type WriteCallback func(ok bool, userdata any)

// op is the immutable-once-enqueued description of a pending request (spec
// §3 "Operation record"). Its mutable progress field, current, only ever
// moves forward while the op is the head of the queue; it is never read or
// written once a later op becomes head (invariant I1).
//
// The callback is modeled as a tagged variant rather than a type-erased
// function pointer: exactly one of readCB/writeCB is non-nil, selected by
// isRead.
type op struct {
	id                int
	efid              EFID
	expectedStructure Structure
	offset            int
	numBytes          int // requested length; 0 on a read means "to end of file"
	length            int // populated once file info is known
	recordLength      int // populated once file info is known
	current           int // next block index (transparent) or 1-based record number

	isRead    bool
	readCB    ReadCallback
	userdataR any

	writeCB   WriteCallback
	userdataW any

	// writeRecord is the 1-based record number for FIXED writes (ignored for
	// TRANSPARENT/CYCLIC, where the driver addresses the whole file/ring).
	writeRecord int
	// writeData is a private copy of the caller-supplied payload, duplicated
	// at enqueue time and released at operation teardown (spec §5 "Memory").
	writeData []byte
}

func newReadOp(id int, efid EFID, expected Structure, offset, numBytes int, cb ReadCallback, userdata any) *op {
	return &op{
		id:                id,
		expectedStructure: expected,
		offset:            offset,
		numBytes:          numBytes,
		isRead:            true,
		readCB:            cb,
		userdataR:         userdata,
		efid:              efid,
	}
}

func newWriteOp(
	id int, efid EFID, structure Structure, record int, data []byte, length int, cb WriteCallback, userdata any,
) *op {
	buf := make([]byte, len(data))
	copy(buf, data)

	return &op{
		id:                id,
		expectedStructure: structure,
		length:            length,
		isRead:            false,
		writeCB:           cb,
		userdataW:         userdata,
		writeRecord:       record,
		writeData:         buf,
		efid:              efid,
	}
}
