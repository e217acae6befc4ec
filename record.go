package strand

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxStringLen is the maximum length in bytes of an anchored string.
const MaxStringLen = 200

// RecordSpace is the ledger storage footprint of a record:
// the fixed fields plus room for a maximum-length string.
// Fees are priced against this footprint, not the actual string length.
const RecordSpace = recordFixedLen + MaxStringLen

// recordFixedLen is the encoded size of everything except the string itself:
// discriminator, length prefix, fingerprint, timestamp, owner, cost.
const recordFixedLen = 8 + 4 + FingerprintSize + 8 + 32 + 8

// recordTag is the 8-byte format discriminator prefixed to every encoded
// record, identifying the record kind in a namespace shared with other
// account types on the same ledger.
var recordTag = func() (tag [8]byte) {
	sum := sha256.Sum256([]byte("account:StringRecord"))
	copy(tag[:], sum[:8])
	return tag
}()

// Record is the persisted unit combining an anchored string,
// its fingerprint, and provenance metadata.
// A Record is immutable once created:
// there is no update or delete path.
type Record struct {
	// Original is the anchored string, 1 to MaxStringLen UTF-8 bytes.
	Original string

	// Fingerprint is Sum of the original string's bytes.
	Fingerprint Fingerprint

	// CreatedAt is the anchoring time in Unix seconds.
	CreatedAt int64

	// Owner is the 32-byte identity of the submitter.
	Owner [32]byte

	// Cost is the fee paid for anchoring, in the smallest currency unit.
	Cost uint64
}

// Encode serializes r in the fixed little-endian on-ledger layout:
//
//	[8]  format discriminator
//	[4]  uint32 string length
//	[N]  string bytes
//	[16] fingerprint
//	[8]  int64 created-at
//	[32] owner
//	[8]  uint64 cost
//
// There is no padding. DecodeRecord is the exact inverse.
func (r Record) Encode() []byte {
	out := make([]byte, recordFixedLen+len(r.Original))

	copy(out, recordTag[:])
	binary.LittleEndian.PutUint32(out[8:], uint32(len(r.Original)))
	copy(out[12:], r.Original)

	off := 12 + len(r.Original)
	copy(out[off:], r.Fingerprint[:])
	binary.LittleEndian.PutUint64(out[off+16:], uint64(r.CreatedAt))
	copy(out[off+24:], r.Owner[:])
	binary.LittleEndian.PutUint64(out[off+56:], r.Cost)

	return out
}

// DecodeRecord deserializes the layout produced by Encode.
// Any violation of the layout's invariants yields an error wrapping
// ErrCorruptRecord and never a partially populated Record.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < recordFixedLen {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "%d bytes, need at least %d", len(b), recordFixedLen)
	}
	var tag [8]byte
	copy(tag[:], b)
	if tag != recordTag {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "unknown discriminator %x", tag)
	}
	strLen := binary.LittleEndian.Uint32(b[8:])
	if strLen > MaxStringLen {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "string length %d exceeds %d", strLen, MaxStringLen)
	}
	if recordFixedLen+int(strLen) > len(b) {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "string length %d overruns %d-byte record", strLen, len(b))
	}

	var (
		rec Record
		off = 12 + int(strLen)
	)
	rec.Original = string(b[12:off])
	copy(rec.Fingerprint[:], b[off:])
	rec.CreatedAt = int64(binary.LittleEndian.Uint64(b[off+16:]))
	copy(rec.Owner[:], b[off+24:])
	rec.Cost = binary.LittleEndian.Uint64(b[off+56:])

	return rec, nil
}
