// Package testutil supplies conformance tests shared by ledger
// implementations.
package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/strand"
)

// Ledger exercises the create-if-absent/get/scan contract of a ledger
// implementation. It expects an empty ledger.
func Ledger(ctx context.Context, t *testing.T, l strand.Ledger) {
	var (
		addr1 = strand.Derive(strand.Namespace, []byte("first"))
		addr2 = strand.Derive(strand.Namespace, []byte("second"))
		data1 = sampleRecord(t, "first")
		data2 = sampleRecord(t, "second")
	)

	receipt, err := l.CreateIfAbsent(ctx, addr1, data1)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.TxID == "" {
		t.Error("empty transaction ID on successful create")
	}
	if receipt.Fee == 0 {
		t.Error("zero fee on successful create")
	}

	_, err = l.CreateIfAbsent(ctx, addr1, data1)
	if !errors.Is(err, strand.ErrAlreadyExists) {
		t.Errorf("got %v on duplicate create, want ErrAlreadyExists", err)
	}

	_, err = l.CreateIfAbsent(ctx, addr2, data2)
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.Get(ctx, addr1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data1, got); diff != "" {
		t.Errorf("mismatch fetching record (-want +got):\n%s", diff)
	}

	_, err = l.Get(ctx, strand.Derive(strand.Namespace, []byte("absent")))
	if !errors.Is(err, strand.ErrNotFound) {
		t.Errorf("got %v fetching an empty address, want ErrNotFound", err)
	}

	want := map[strand.Address][]byte{
		addr1: data1,
		addr2: data2,
	}
	scanned := make(map[strand.Address][]byte)
	var prev strand.Address
	first := true
	err = l.ListRecords(ctx, func(addr strand.Address, data []byte) error {
		if !first && !prev.Less(addr) {
			t.Errorf("scan out of order: %s after %s", addr, prev)
		}
		prev, first = addr, false
		scanned[addr] = data
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, scanned); diff != "" {
		t.Errorf("mismatch scanning records (-want +got):\n%s", diff)
	}

	wantErr := errors.New("stop")
	err = l.ListRecords(ctx, func(strand.Address, []byte) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v from aborted scan, want the callback's error", err)
	}
}

func sampleRecord(t *testing.T, s string) []byte {
	t.Helper()

	rec := strand.Record{
		Original:    s,
		Fingerprint: strand.Sum([]byte(s)),
		CreatedAt:   239932800,
		Owner:       [32]byte{0xb0},
		Cost:        strand.AnchorFee(strand.RecordSpace),
	}
	return rec.Encode()
}
