// Package strand implements a verifiable string-anchoring oracle.
//
// A short string is fingerprinted with a deterministic 16-byte digest,
// assigned a storage address derived from its content,
// and persisted as an immutable binary record in a ledger
// with atomic create-if-absent semantics.
// Later queries resolve existence by the original string,
// by the derived address,
// or by the fingerprint alone via a full scan.
package strand

import "errors"

// Errors returned by ledgers and by the oracle.
// Callers classify them with errors.Is,
// never by inspecting message text.
var (
	// ErrEmptyString is the error for a zero-length input string.
	// It is detected before any ledger call.
	ErrEmptyString = errors.New("empty string")

	// ErrStringTooLong is the error for an input string longer than MaxStringLen bytes.
	// It is detected before any ledger call.
	ErrStringTooLong = errors.New("string too long")

	// ErrAlreadyExists is the error for a duplicate submission:
	// a create at an address that already holds a record.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is the error for a point lookup at an empty address.
	ErrNotFound = errors.New("not found")

	// ErrCorruptRecord is the error for a record that fails decoding,
	// or whose stored fingerprint does not match the recomputed one.
	// It is fatal for that one record only;
	// a scan skips the record and continues.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrUnavailable is the error for a ledger that cannot be reached.
	// Reads are safe to retry.
	// A timed-out write has ambiguous outcome and must not be retried
	// until the caller has re-checked existence at the derived address.
	ErrUnavailable = errors.New("ledger unavailable")
)
