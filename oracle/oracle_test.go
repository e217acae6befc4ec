package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger/mem"
)

func newTestOracle(t *testing.T) (*Oracle, *mem.Ledger, *Seen) {
	t.Helper()

	l := mem.New()
	seen, err := NewSeen(100)
	if err != nil {
		t.Fatal(err)
	}
	return New(l, [32]byte{0xfe}, seen), l, seen
}

func TestStoreAndQuery(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOracle(t)

	rec, addr, receipt, err := o.Store(ctx, "Hello Solana!")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rec.Fingerprint.String(), "00bda10d5d95d32b261308e98c840b03"; got != want {
		t.Errorf("fingerprint %s, want %s", got, want)
	}
	if want := strand.Derive(strand.Namespace, []byte("Hello Solana!")); addr != want {
		t.Errorf("address %s, want %s", addr, want)
	}
	if receipt.Fee == 0 {
		t.Error("zero fee on successful store")
	}
	if receipt.TxID == "" {
		t.Error("empty transaction ID on successful store")
	}
	if rec.Cost != strand.AnchorFee(strand.RecordSpace) {
		t.Errorf("record cost %d, want %d", rec.Cost, strand.AnchorFee(strand.RecordSpace))
	}

	got, ok, err := o.QueryAddress(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("record not found by address")
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("mismatch querying by address (-want +got):\n%s", diff)
	}

	got, gotAddr, ok, err := o.QueryString(ctx, "Hello Solana!")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("record not found by string")
	}
	if gotAddr != addr {
		t.Errorf("query by string returned address %s, want %s", gotAddr, addr)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("mismatch querying by string (-want +got):\n%s", diff)
	}

	_, _, _, err = o.Store(ctx, "Hello Solana!")
	if !errors.Is(err, strand.ErrAlreadyExists) {
		t.Errorf("got %v on duplicate store, want ErrAlreadyExists", err)
	}
}

func TestLengthBounds(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOracle(t)

	_, _, _, err := o.Store(ctx, "")
	if !errors.Is(err, strand.ErrEmptyString) {
		t.Errorf("got %v storing an empty string, want ErrEmptyString", err)
	}
	_, _, _, err = o.QueryString(ctx, "")
	if !errors.Is(err, strand.ErrEmptyString) {
		t.Errorf("got %v querying an empty string, want ErrEmptyString", err)
	}

	if _, _, _, err = o.Store(ctx, strings.Repeat("x", strand.MaxStringLen)); err != nil {
		t.Errorf("got %v storing a maximum-length string", err)
	}

	_, _, _, err = o.Store(ctx, strings.Repeat("x", strand.MaxStringLen+1))
	if !errors.Is(err, strand.ErrStringTooLong) {
		t.Errorf("got %v storing an over-length string, want ErrStringTooLong", err)
	}
}

func TestQueryAbsent(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOracle(t)

	rec, _, ok, err := o.QueryString(ctx, "never anchored")
	if err != nil {
		t.Fatal(err)
	}
	if ok || rec != nil {
		t.Error("phantom record for a string never stored")
	}

	rec, ok, err = o.QueryAddress(ctx, strand.Derive(strand.Namespace, []byte("never anchored")))
	if err != nil {
		t.Fatal(err)
	}
	if ok || rec != nil {
		t.Error("phantom record for an empty address")
	}
}

func TestConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOracle(t)

	var (
		g          errgroup.Group
		successes  int32
		duplicates int32
	)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, _, _, err := o.Store(ctx, "contended")
			if err == nil {
				atomic.AddInt32(&successes, 1)
				return nil
			}
			if errors.Is(err, strand.ErrAlreadyExists) {
				atomic.AddInt32(&duplicates, 1)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if successes != 1 {
		t.Errorf("%d successful stores of one string, want exactly 1", successes)
	}
	if duplicates != 7 {
		t.Errorf("%d duplicate errors, want 7", duplicates)
	}
}

func TestScanFallback(t *testing.T) {
	ctx := context.Background()
	o, l, seen := newTestOracle(t)

	// Plant a well-formed record at a key the resolver cannot derive,
	// the way a foreign writer with client-generated keys would.
	const planted = "planted elsewhere"
	rec := strand.Record{
		Original:    planted,
		Fingerprint: strand.Sum([]byte(planted)),
		CreatedAt:   1,
		Cost:        strand.AnchorFee(strand.RecordSpace),
	}
	foreign := strand.Derive("foreign:keyspace", []byte(planted))
	if _, err := l.CreateIfAbsent(ctx, foreign, rec.Encode()); err != nil {
		t.Fatal(err)
	}

	// Unseen fingerprint: the cache gates the scan,
	// so the query reports absence without scanning.
	_, _, ok, err := o.QueryString(ctx, planted)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("found a record whose fingerprint was never seen")
	}

	// Seen fingerprint: the scan fallback locates the foreign record.
	seen.Add(rec.Fingerprint, foreign)
	got, gotAddr, ok, err := o.QueryString(ctx, planted)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("scan fallback missed the planted record")
	}
	if gotAddr != foreign {
		t.Errorf("scan found address %s, want %s", gotAddr, foreign)
	}
	if diff := cmp.Diff(&rec, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// FindByFingerprint scans unconditionally, cache or no cache.
	got, gotAddr, ok, err = o.FindByFingerprint(ctx, rec.Fingerprint)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotAddr != foreign {
		t.Errorf("FindByFingerprint: ok=%v addr=%s, want true %s", ok, gotAddr, foreign)
	}
	if diff := cmp.Diff(&rec, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestScanSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	o, l, _ := newTestOracle(t)

	// Garbage bytes in the record namespace must not abort a scan.
	garbageAddr := strand.Derive("foreign:keyspace", []byte("garbage"))
	if _, err := l.CreateIfAbsent(ctx, garbageAddr, []byte("not a record")); err != nil {
		t.Fatal(err)
	}

	rec, _, _, err := o.Store(ctx, "intact")
	if err != nil {
		t.Fatal(err)
	}

	got, _, ok, err := o.FindByFingerprint(ctx, rec.Fingerprint)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("scan did not survive a corrupt record")
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFingerprintMismatch(t *testing.T) {
	ctx := context.Background()
	o, l, _ := newTestOracle(t)

	// A record for one string sitting at another string's derived address
	// indicates collision or tampering, not absence.
	imposter := strand.Record{
		Original:    "imposter",
		Fingerprint: strand.Sum([]byte("imposter")),
	}
	addr := strand.Derive(strand.Namespace, []byte("target"))
	if _, err := l.CreateIfAbsent(ctx, addr, imposter.Encode()); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := o.QueryString(ctx, "target")
	if !errors.Is(err, strand.ErrCorruptRecord) {
		t.Errorf("got %v, want ErrCorruptRecord", err)
	}
}

func TestFreshProcess(t *testing.T) {
	ctx := context.Background()
	o, l, _ := newTestOracle(t)

	rec, addr, _, err := o.Store(ctx, "survives restarts")
	if err != nil {
		t.Fatal(err)
	}

	// A new oracle with an empty seen-set over the same ledger models a
	// process restart. The point lookup at the derived address still
	// resolves the string; only the scan fallback loses its gate.
	seen2, err := NewSeen(100)
	if err != nil {
		t.Fatal(err)
	}
	o2 := New(l, [32]byte{0xfe}, seen2)

	got, gotAddr, ok, err := o2.QueryString(ctx, "survives restarts")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotAddr != addr {
		t.Fatalf("restarted process: ok=%v addr=%s, want true %s", ok, gotAddr, addr)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// flaky fails reads with ErrUnavailable a fixed number of times
// before delegating to the nested ledger.
type flaky struct {
	strand.Ledger

	mu       sync.Mutex
	getFails int
	creates  int
}

func (f *flaky) CreateIfAbsent(ctx context.Context, addr strand.Address, data []byte) (strand.Receipt, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return f.Ledger.CreateIfAbsent(ctx, addr, data)
}

func (f *flaky) Get(ctx context.Context, addr strand.Address) ([]byte, error) {
	f.mu.Lock()
	fail := f.getFails > 0
	if fail {
		f.getFails--
	}
	f.mu.Unlock()

	if fail {
		return nil, strand.ErrUnavailable
	}
	return f.Ledger.Get(ctx, addr)
}

func TestUnavailableReads(t *testing.T) {
	ctx := context.Background()

	l := mem.New()
	seen, err := NewSeen(100)
	if err != nil {
		t.Fatal(err)
	}
	fl := &flaky{Ledger: l, getFails: 1}
	o := New(fl, [32]byte{0xfe}, seen)

	rec, _, _, err := o.Store(ctx, "flaky transport")
	if err != nil {
		t.Fatal(err)
	}

	// The first read fails; the resolver retries and succeeds.
	got, _, ok, err := o.QueryString(ctx, "flaky transport")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("record not found through a flaky transport")
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// unavailable fails every write.
type unavailable struct {
	strand.Ledger

	mu      sync.Mutex
	creates int
}

func (u *unavailable) CreateIfAbsent(context.Context, strand.Address, []byte) (strand.Receipt, error) {
	u.mu.Lock()
	u.creates++
	u.mu.Unlock()
	return strand.Receipt{}, strand.ErrUnavailable
}

func TestUnavailableWriteNotRetried(t *testing.T) {
	ctx := context.Background()

	seen, err := NewSeen(100)
	if err != nil {
		t.Fatal(err)
	}
	u := &unavailable{Ledger: mem.New()}
	o := New(u, [32]byte{0xfe}, seen)

	_, _, _, err = o.Store(ctx, "ambiguous outcome")
	if !errors.Is(err, strand.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if u.creates != 1 {
		t.Errorf("%d create attempts, want exactly 1: a timed-out write must not be blindly retried", u.creates)
	}
	if seen.Len() != 0 {
		t.Error("fingerprint cached despite the write not landing")
	}
}
