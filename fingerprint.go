package strand

import (
	"bytes"
	"encoding/hex"
	"errors"
)

// FingerprintSize is the size of a Fingerprint in bytes.
const FingerprintSize = 16

// Fingerprint is the deterministic 16-byte digest of a string's bytes.
// It is used for deduplication and post-hoc verification.
//
// Despite the 16-byte width this is not MD5.
// It is a custom FNV-1a-seeded mixing function,
// reproduced bit for bit from the on-ledger program.
// Every participant in the protocol must compute it identically;
// substituting a genuine MD5 routine silently breaks
// deduplication and verification.
type Fingerprint [FingerprintSize]byte

// Sum computes the Fingerprint of data.
// It is pure and stateless.
//
// Sum(nil) is {0, 1, 2, ..., 15}:
// the mixing loop never runs and the buffer keeps its initial state.
func Sum(data []byte) Fingerprint {
	var fp Fingerprint
	for i := range fp {
		fp[i] = byte(i)
	}

	const (
		offsetBasis = 0xcbf29ce484222325
		prime       = 0x100000001b3
	)

	acc := uint64(offsetBasis)
	for _, b := range data {
		acc ^= uint64(b)
		acc *= prime // wraps at 64 bits

		idx := int(acc % FingerprintSize)
		fp[idx] += b
		fp[(idx+1)%FingerprintSize] ^= byte(acc >> 8)
		fp[(idx+3)%FingerprintSize] ^= byte(acc >> 16)
		fp[(idx+7)%FingerprintSize] ^= byte(acc >> 24)
	}

	return fp
}

func (fp Fingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

func (fp Fingerprint) Less(other Fingerprint) bool {
	return bytes.Compare(fp[:], other[:]) < 0
}

func (fp *Fingerprint) FromHex(s string) error {
	if len(s) != 2*FingerprintSize {
		return errors.New("wrong length")
	}
	_, err := hex.Decode(fp[:], []byte(s))
	return err
}

// FingerprintFromBytes produces a Fingerprint from a byte slice,
// truncating or zero-padding to FingerprintSize.
func FingerprintFromBytes(b []byte) Fingerprint {
	var out Fingerprint
	copy(out[:], b)
	return out
}

// FingerprintFromHex parses a hex-encoded Fingerprint.
func FingerprintFromHex(s string) (Fingerprint, error) {
	var out Fingerprint
	err := out.FromHex(s)
	return out, err
}
