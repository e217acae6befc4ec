package ledger_test

import (
	"context"
	"testing"

	"github.com/bobg/strand/ledger"
	_ "github.com/bobg/strand/ledger/mem"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()

	l, err := ledger.Create(ctx, "mem", nil)
	if err != nil {
		t.Fatal(err)
	}
	if l == nil {
		t.Fatal("nil ledger from registry")
	}

	if _, err = ledger.Create(ctx, "bogus", nil); err == nil {
		t.Error("no error creating an unregistered ledger type")
	}
}
