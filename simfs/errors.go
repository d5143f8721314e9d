package simfs

import "errors"

// Sentinel errors returned by simfs operations.
//
// Callers should use [errors.Is] to check error types.
var (
	// ErrStructureMismatch indicates the driver (or a validated cache header)
	// reported a structure other than the one the caller expected.
	ErrStructureMismatch = errors.New("simfs: structure mismatch")

	// ErrDriverFailed indicates a SIM driver callback reported a non-zero error.
	ErrDriverFailed = errors.New("simfs: driver error")

	// ErrCapabilityMissing indicates the configured [Driver] does not implement
	// the card command an operation requires.
	ErrCapabilityMissing = errors.New("simfs: driver capability missing")

	// ErrInvalidFileInfo indicates a decoded file-info record violates
	// invariant I6 (record_length == 0 or length < record_length).
	ErrInvalidFileInfo = errors.New("simfs: invalid file info")

	// ErrEngineClosed indicates Read/Write was called on an [Engine] after
	// [Engine.Close].
	ErrEngineClosed = errors.New("simfs: engine closed")

	// ErrCallbackRequired indicates Read or Write was called with a nil
	// callback.
	ErrCallbackRequired = errors.New("simfs: callback required")

	// ErrNoDriver indicates an [Engine] was constructed without a [Driver].
	ErrNoDriver = errors.New("simfs: no driver configured")
)
