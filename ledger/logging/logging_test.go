package logging

import (
	"context"
	"testing"

	"github.com/bobg/strand/ledger/mem"
	"github.com/bobg/strand/testutil"
)

func TestLedger(t *testing.T) {
	testutil.Ledger(context.Background(), t, New(mem.New()))
}
