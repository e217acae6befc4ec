package strand

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// AddressSize is the size of a ledger Address in bytes.
const AddressSize = 32

// Namespace is the tag mixed into address derivation
// to separate this application's keys
// from others sharing the same ledger.
const Namespace = "strand:record:v1"

// Address is a key in the ledger's addressing scheme.
type Address [AddressSize]byte

// ZeroAddress is the zero value of an Address.
var ZeroAddress Address

// Derive computes the storage address for content within a namespace.
// It is a one-way, domain-separated combination of the two:
// SHA2-256 over the namespace tag, a zero separator byte, and the content.
// The same inputs always yield the same address,
// so an address can be derived without writing anything.
//
// Two distinct content strings producing the same address is a fatal
// collision; the ledger layer rejects it, and it is never silently merged.
func Derive(namespace string, content []byte) Address {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write(content)

	var a Address
	h.Sum(a[:0])
	return a
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Less(other Address) bool {
	return bytes.Compare(a[:], other[:]) < 0
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a *Address) FromHex(s string) error {
	if len(s) != 2*AddressSize {
		return errors.New("wrong length")
	}
	_, err := hex.Decode(a[:], []byte(s))
	return err
}

// AddressFromBytes produces an Address from a byte slice,
// truncating or zero-padding to AddressSize.
func AddressFromBytes(b []byte) Address {
	var out Address
	copy(out[:], b)
	return out
}

// AddressFromHex parses a hex-encoded Address.
func AddressFromHex(s string) (Address, error) {
	var out Address
	err := out.FromHex(s)
	return out, err
}
