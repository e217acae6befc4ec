package mem

import (
	"context"
	"testing"

	"github.com/bobg/strand"
	"github.com/bobg/strand/testutil"
)

func TestLedger(t *testing.T) {
	testutil.Ledger(context.Background(), t, New())
}

func TestScanCancellation(t *testing.T) {
	ctx := context.Background()

	l := New()
	for _, s := range []string{"one", "two", "three"} {
		_, err := l.CreateIfAbsent(ctx, strand.Derive(strand.Namespace, []byte(s)), []byte(s))
		if err != nil {
			t.Fatal(err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err := l.ListRecords(cancelled, func(strand.Address, []byte) error {
		t.Error("callback ran under a cancelled context")
		return nil
	})
	if err == nil {
		t.Error("no error from a cancelled scan")
	}
}
