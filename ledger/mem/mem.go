// Package mem implements an in-memory ledger.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger"
)

var _ strand.Ledger = &Ledger{}

// Ledger is a memory-based implementation of a ledger.
type Ledger struct {
	mu      sync.Mutex
	records map[strand.Address][]byte
}

// New produces a new Ledger.
func New() *Ledger {
	return &Ledger{
		records: make(map[strand.Address][]byte),
	}
}

// CreateIfAbsent writes data at addr if the address is empty.
func (l *Ledger) CreateIfAbsent(_ context.Context, addr strand.Address, data []byte) (strand.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[addr]; ok {
		return strand.Receipt{}, strand.ErrAlreadyExists
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	l.records[addr] = stored

	return strand.NewReceipt(addr, data), nil
}

// Get gets the bytes stored at addr.
func (l *Ledger) Get(_ context.Context, addr strand.Address) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if data, ok := l.records[addr]; ok {
		return data, nil
	}
	return nil, strand.ErrNotFound
}

// ListRecords produces all records in the ledger, in address order.
// The calls reflect at least the records present when ListRecords was called;
// it is unspecified whether concurrent changes are reflected.
func (l *Ledger) ListRecords(ctx context.Context, f func(strand.Address, []byte) error) error {
	l.mu.Lock()
	addrs := make([]strand.Address, 0, len(l.records))
	for addr := range l.records {
		addrs = append(addrs, addr)
	}
	l.mu.Unlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	for _, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.mu.Lock()
		data, ok := l.records[addr]
		l.mu.Unlock()
		if !ok {
			continue
		}
		if err := f(addr, data); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	ledger.Register("mem", func(context.Context, map[string]interface{}) (strand.Ledger, error) {
		return New(), nil
	})
}
