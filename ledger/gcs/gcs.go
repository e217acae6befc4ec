// Package gcs implements a ledger on Google Cloud Storage.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger"
)

var _ strand.Ledger = &Ledger{}

// Ledger is a Google Cloud Storage-based implementation of a ledger.
// The atomic create-if-absent primitive is a conditional write
// with a DoesNotExist precondition.
type Ledger struct {
	bucket *storage.BucketHandle
}

// New produces a new Ledger.
func New(bucket *storage.BucketHandle) *Ledger {
	return &Ledger{bucket: bucket}
}

const objPrefix = "r:"

func objName(addr strand.Address) string {
	return objPrefix + addr.String()
}

// CreateIfAbsent writes data at addr if the address is empty.
func (l *Ledger) CreateIfAbsent(ctx context.Context, addr strand.Address, data []byte) (strand.Receipt, error) {
	var (
		name = objName(addr)
		obj  = l.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
		w    = obj.NewWriter(ctx)
	)

	_, err := w.Write(data)
	if isPreconditionFailed(err) {
		w.Close()
		return strand.Receipt{}, strand.ErrAlreadyExists
	}
	if err != nil {
		w.Close()
		return strand.Receipt{}, errors.Wrapf(strand.ErrUnavailable, "writing object %s: %s", name, err)
	}

	err = w.Close()
	if isPreconditionFailed(err) {
		return strand.Receipt{}, strand.ErrAlreadyExists
	}
	if err != nil {
		return strand.Receipt{}, errors.Wrapf(strand.ErrUnavailable, "finishing object %s: %s", name, err)
	}

	return strand.NewReceipt(addr, data), nil
}

// The precondition failure can surface on Write or on Close,
// depending on how much data was buffered.
func isPreconditionFailed(err error) bool {
	var e *googleapi.Error
	return stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed
}

// Get gets the bytes stored at addr.
func (l *Ledger) Get(ctx context.Context, addr strand.Address) ([]byte, error) {
	name := objName(addr)
	r, err := l.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, strand.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(strand.ErrUnavailable, "reading object %s: %s", name, err)
	}
	defer r.Close()

	data := make([]byte, r.Attrs.Size)
	_, err = io.ReadFull(r, data)
	if err != nil {
		return nil, errors.Wrapf(strand.ErrUnavailable, "reading contents of object %s: %s", name, err)
	}
	return data, nil
}

// ListRecords produces all records in the ledger, in address order.
func (l *Ledger) ListRecords(ctx context.Context, f func(strand.Address, []byte) error) error {
	iter := l.bucket.Objects(ctx, &storage.Query{Prefix: objPrefix})
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(strand.ErrUnavailable, "iterating objects: %s", err)
		}

		addr, err := strand.AddressFromHex(attrs.Name[len(objPrefix):])
		if err != nil {
			continue
		}

		data, err := l.Get(ctx, addr)
		if err != nil {
			return errors.Wrapf(err, "getting record %s", addr)
		}

		err = f(addr, data)
		if err != nil {
			return err
		}
	}
}

func init() {
	ledger.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (strand.Ledger, error) {
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}

		var opts []option.ClientOption
		if creds, ok := conf["creds"].(string); ok {
			opts = append(opts, option.WithCredentialsFile(creds))
		}

		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "creating storage client")
		}
		return New(client.Bucket(bucketName)), nil
	})
}
