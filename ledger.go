package strand

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Receipt reports the outcome of a successful ledger write.
type Receipt struct {
	// TxID is the ledger's opaque transaction identifier for the write.
	TxID string

	// Fee is the fee charged for the write, in the smallest currency unit.
	Fee uint64
}

// Ledger is the keyed store that holds anchored records.
// It is the single source of truth and the single synchronization point:
// CreateIfAbsent is atomic across all concurrent writers,
// so no read-modify-write race is reachable above this layer.
//
// Every method is a blocking, potentially long-latency operation;
// callers apply timeouts through the context.
type Ledger interface {
	// CreateIfAbsent writes data at addr if and only if addr is empty,
	// returning a Receipt on success and ErrAlreadyExists otherwise.
	//
	// A call that fails with ErrUnavailable has ambiguous outcome:
	// the write may have landed.
	// Callers must re-query existence at addr before retrying.
	CreateIfAbsent(ctx context.Context, addr Address, data []byte) (Receipt, error)

	// Get returns the bytes stored at addr,
	// or ErrNotFound if the address is empty.
	Get(ctx context.Context, addr Address) ([]byte, error)

	// ListRecords calls f for each (address, data) pair
	// in this application's record namespace.
	// It is a point-in-time, finite, non-restartable sequence
	// whose cost scales with the size of the ledger;
	// callers supply a cancellation budget through the context.
	//
	// If f returns an error, ListRecords exits with that error.
	ListRecords(ctx context.Context, f func(Address, []byte) error) error
}

// NewReceipt builds the receipt for a successful create of data at addr.
// The transaction identifier is a digest of the write;
// the fee is the standard anchoring fee.
func NewReceipt(addr Address, data []byte) Receipt {
	h := sha256.New()
	h.Write(addr[:])
	h.Write(data)
	return Receipt{
		TxID: hex.EncodeToString(h.Sum(nil)),
		Fee:  AnchorFee(RecordSpace),
	}
}
