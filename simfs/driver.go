package simfs

// FileInfoResult is the decoded response to [Driver.ReadFileInfo].
type FileInfoResult struct {
	Err          error
	Length       int
	Structure    Structure
	RecordLength int
	// Access holds the raw 3-byte access condition array exactly as returned
	// by the card (3GPP TS 51.011 §9.3): Access[0]'s low nibble is `update`,
	// Access[2]'s high nibble is `rehabilitate`, Access[2]'s low nibble is
	// `invalidate`. See [decodeAccessConditions].
	Access [3]byte
}

// BlockResult is the decoded response to a driver block/record read.
type BlockResult struct {
	Err  error
	Data []byte
}

// Driver is the external SIM driver capability set (spec §6). All operations
// are asynchronous: they return immediately and report completion through
// the supplied callback, which must be invoked on the same [IdleScheduler]
// the issuing [Engine] uses (callers typically wrap their raw completion
// with scheduler.Post before calling cb).
//
// Any method may be unimplemented by a given driver; use
// [NewCapabilityDriver] to adapt a partial implementation — calling an
// unimplemented method then fails the operation with [ErrCapabilityMissing]
// instead of panicking.
type Driver interface {
	// ReadFileInfo requests the EF's structure, length, record length and
	// access conditions.
	ReadFileInfo(efid EFID, cb func(FileInfoResult))

	// ReadFileTransparent requests numBytes bytes starting at offset from a
	// TRANSPARENT EF.
	ReadFileTransparent(efid EFID, offset, numBytes int, cb func(BlockResult))

	// ReadFileLinear requests one record from a FIXED EF.
	ReadFileLinear(efid EFID, record, recordLength int, cb func(BlockResult))

	// ReadFileCyclic requests one record from a CYCLIC EF.
	ReadFileCyclic(efid EFID, record, recordLength int, cb func(BlockResult))

	// WriteFileTransparent writes the full payload of a TRANSPARENT EF.
	WriteFileTransparent(efid EFID, offset, length int, data []byte, cb func(error))

	// WriteFileLinear writes one record of a FIXED EF.
	WriteFileLinear(efid EFID, record, length int, data []byte, cb func(error))

	// WriteFileCyclic writes a new record onto a CYCLIC EF.
	WriteFileCyclic(efid EFID, length int, data []byte, cb func(error))
}

// IdentityProvider exposes the current SIM identity (spec §6). Absence of an
// IMSI disables caching: reads still work, served entirely through the
// driver.
type IdentityProvider interface {
	// IMSI returns the current International Mobile Subscriber Identity, or
	// ("", false) if it is not yet available.
	IMSI() (string, bool)

	// Phase returns the current SIM specification phase.
	Phase() Phase
}
