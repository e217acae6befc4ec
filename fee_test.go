package strand

import "testing"

func TestAnchorFee(t *testing.T) {
	// Rent-exempt minimum for a full record account plus the flat
	// transaction fee: (128+276)*3480*2 + 5000.
	if got, want := AnchorFee(RecordSpace), uint64(2816840); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
	if AnchorFee(0) <= transactionFee {
		t.Error("rent component missing from fee")
	}
}
