// Package oracle implements the string-anchoring oracle:
// the store operation and the query resolver
// layered over a ledger with atomic create-if-absent semantics.
package oracle

import (
	"context"
	stderrs "errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/bobg/strand"
)

// Oracle anchors strings in a ledger and resolves existence queries.
type Oracle struct {
	ledger strand.Ledger
	owner  [32]byte
	seen   *Seen
	now    func() time.Time
}

// New produces an Oracle writing records owned by `owner` to `ledger`.
// The caller owns `seen` and injects it;
// sharing one Seen between oracles backed by the same ledger is fine.
func New(ledger strand.Ledger, owner [32]byte, seen *Seen) *Oracle {
	return &Oracle{
		ledger: ledger,
		owner:  owner,
		seen:   seen,
		now:    time.Now,
	}
}

// Store anchors a string.
// It validates the string's length,
// derives the storage address from the content,
// and issues one atomic create-if-absent write.
// On success the fingerprint is added to the seen-set
// and the stored record is returned
// with its address and the ledger's receipt.
//
// A duplicate submission fails with strand.ErrAlreadyExists.
// A write failing with strand.ErrUnavailable has ambiguous outcome
// and is not retried here:
// re-check existence with QueryString before retrying.
func (o *Oracle) Store(ctx context.Context, s string) (*strand.Record, strand.Address, strand.Receipt, error) {
	if err := checkLength(s); err != nil {
		return nil, strand.ZeroAddress, strand.Receipt{}, err
	}

	var (
		fp   = strand.Sum([]byte(s))
		addr = strand.Derive(strand.Namespace, []byte(s))
	)

	rec := strand.Record{
		Original:    s,
		Fingerprint: fp,
		CreatedAt:   o.now().Unix(),
		Owner:       o.owner,
		Cost:        strand.AnchorFee(strand.RecordSpace),
	}

	receipt, err := o.ledger.CreateIfAbsent(ctx, addr, rec.Encode())
	if err != nil {
		return nil, addr, strand.Receipt{}, errors.Wrapf(err, "creating record at %s", addr)
	}

	o.seen.Add(fp, addr)
	return &rec, addr, receipt, nil
}

// QueryString reports whether a string is anchored.
// It recomputes the fingerprint,
// derives the address,
// and point-looks-up the ledger there.
// A record found at the derived address must carry the recomputed
// fingerprint; a mismatch is strand.ErrCorruptRecord, not absence.
//
// When the point lookup misses, the seen-set gates the scan fallback:
// a fingerprint anchored this session triggers a full scan,
// an unseen one short-circuits to "not found" without scanning.
// Use FindByFingerprint for the unconditional scan.
func (o *Oracle) QueryString(ctx context.Context, s string) (*strand.Record, strand.Address, bool, error) {
	if err := checkLength(s); err != nil {
		return nil, strand.ZeroAddress, false, err
	}

	var (
		fp   = strand.Sum([]byte(s))
		addr = strand.Derive(strand.Namespace, []byte(s))
	)

	data, err := o.get(ctx, addr)
	if err == nil {
		rec, err := strand.DecodeRecord(data)
		if err != nil {
			return nil, addr, false, errors.Wrapf(err, "decoding record at %s", addr)
		}
		if rec.Fingerprint != fp {
			return nil, addr, false, errors.Wrapf(strand.ErrCorruptRecord, "record at %s has fingerprint %s, want %s", addr, rec.Fingerprint, fp)
		}
		return &rec, addr, true, nil
	}
	if !stderrs.Is(err, strand.ErrNotFound) {
		return nil, strand.ZeroAddress, false, errors.Wrapf(err, "getting record at %s", addr)
	}

	if _, ok := o.seen.Lookup(fp); ok {
		return o.FindByFingerprint(ctx, fp)
	}
	return nil, strand.ZeroAddress, false, nil
}

// QueryAddress reports whether a record exists at addr.
// There is no independent fingerprint to cross-check,
// so the record is returned as decoded.
func (o *Oracle) QueryAddress(ctx context.Context, addr strand.Address) (*strand.Record, bool, error) {
	data, err := o.get(ctx, addr)
	if stderrs.Is(err, strand.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "getting record at %s", addr)
	}
	rec, err := strand.DecodeRecord(data)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decoding record at %s", addr)
	}
	return &rec, true, nil
}

var errStopScan = stderrs.New("stop scan")

// FindByFingerprint scans the ledger's record namespace
// for the first record carrying fp.
// Its cost is linear in the total record count;
// callers supply a cancellation budget through the context.
// A corrupt record is skipped and logged,
// never aborting the remaining scan.
func (o *Oracle) FindByFingerprint(ctx context.Context, fp strand.Fingerprint) (*strand.Record, strand.Address, bool, error) {
	var (
		found     *strand.Record
		foundAddr strand.Address
	)

	err := o.ledger.ListRecords(ctx, func(addr strand.Address, data []byte) error {
		rec, err := strand.DecodeRecord(data)
		if err != nil {
			log.Printf("skipping record at %s: %s", addr, err)
			return nil
		}
		if rec.Fingerprint == fp {
			found, foundAddr = &rec, addr
			return errStopScan
		}
		return nil
	})
	if err != nil && !stderrs.Is(err, errStopScan) {
		return nil, strand.ZeroAddress, false, errors.Wrap(err, "scanning records")
	}

	return found, foundAddr, found != nil, nil
}

const maxGetRetries = 4

// get point-looks-up the ledger,
// retrying with exponential backoff while the ledger is unavailable.
// Reads are idempotent, so retrying is safe;
// writes never come through here.
func (o *Oracle) get(ctx context.Context, addr strand.Address) ([]byte, error) {
	var data []byte
	err := backoff.Retry(func() error {
		d, err := o.ledger.Get(ctx, addr)
		if stderrs.Is(err, strand.ErrUnavailable) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		data = d
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxGetRetries), ctx))
	return data, err
}

func checkLength(s string) error {
	if len(s) == 0 {
		return strand.ErrEmptyString
	}
	if len(s) > strand.MaxStringLen {
		return strand.ErrStringTooLong
	}
	return nil
}
