// Package file implements a ledger as a file hierarchy.
package file

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger"
)

var _ strand.Ledger = &Ledger{}

// Ledger is a file-based implementation of a ledger.
// The atomic create-if-absent primitive is the filesystem's O_EXCL create.
type Ledger struct {
	root    string
	flocker flock.Locker
}

// New produces a new Ledger storing data beneath `root`.
func New(root string) *Ledger {
	return &Ledger{root: root}
}

func (l *Ledger) recordroot() string {
	return filepath.Join(l.root, "records")
}

func (l *Ledger) recordpath(addr strand.Address) string {
	h := addr.String()
	return filepath.Join(l.recordroot(), h[:2], h[:4], h)
}

func (l *Ledger) receiptpath() string {
	return filepath.Join(l.root, "receipts")
}

// CreateIfAbsent writes data at addr if the address is empty.
func (l *Ledger) CreateIfAbsent(_ context.Context, addr strand.Address, data []byte) (strand.Receipt, error) {
	var (
		path = l.recordpath(addr)
		dir  = filepath.Dir(path)
	)

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return strand.Receipt{}, errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return strand.Receipt{}, strand.ErrAlreadyExists
	}
	if err != nil {
		return strand.Receipt{}, errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	_, err = f.Write(data)
	if err != nil {
		return strand.Receipt{}, errors.Wrapf(err, "writing data to %s", path)
	}

	receipt := strand.NewReceipt(addr, data)
	err = l.journal(receipt, addr)
	if err != nil {
		return strand.Receipt{}, errors.Wrap(err, "journaling receipt")
	}

	return receipt, nil
}

// journal appends a receipt line to the receipts file,
// serialized against concurrent writers with a file lock.
func (l *Ledger) journal(receipt strand.Receipt, addr strand.Address) error {
	err := l.flocker.Lock(l.receiptpath())
	if err != nil {
		return errors.Wrap(err, "locking receipts file")
	}
	defer l.flocker.Unlock(l.receiptpath())

	f, err := os.OpenFile(l.receiptpath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "opening receipts file")
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s %s %d\n", receipt.TxID, addr, receipt.Fee)
	return errors.Wrap(err, "appending receipt")
}

// Get gets the bytes stored at addr.
func (l *Ledger) Get(_ context.Context, addr strand.Address) ([]byte, error) {
	path := l.recordpath(addr)
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, strand.ErrNotFound
	}
	return data, errors.Wrapf(err, "opening %s", path)
}

// ListRecords produces all records in the ledger, in address order.
func (l *Ledger) ListRecords(ctx context.Context, f func(strand.Address, []byte) error) error {
	topLevel, err := ioutil.ReadDir(l.recordroot())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", l.recordroot())
	}

	for _, topInfo := range topLevel {
		if !topInfo.IsDir() {
			continue
		}
		topName := topInfo.Name()
		if len(topName) != 2 {
			continue
		}
		if _, err = strconv.ParseInt(topName, 16, 64); err != nil {
			continue
		}

		midLevel, err := ioutil.ReadDir(filepath.Join(l.recordroot(), topName))
		if err != nil {
			return errors.Wrapf(err, "reading dir %s/%s", l.recordroot(), topName)
		}
		for _, midInfo := range midLevel {
			if !midInfo.IsDir() {
				continue
			}
			midName := midInfo.Name()
			if len(midName) != 4 {
				continue
			}
			if _, err = strconv.ParseInt(midName, 16, 64); err != nil {
				continue
			}

			recordInfos, err := ioutil.ReadDir(filepath.Join(l.recordroot(), topName, midName))
			if err != nil {
				return errors.Wrapf(err, "reading dir %s/%s/%s", l.recordroot(), topName, midName)
			}
			for _, recordInfo := range recordInfos {
				if err := ctx.Err(); err != nil {
					return err
				}

				addr, err := strand.AddressFromHex(recordInfo.Name())
				if err != nil {
					continue
				}

				data, err := ioutil.ReadFile(filepath.Join(l.recordroot(), topName, midName, recordInfo.Name()))
				if err != nil {
					return errors.Wrapf(err, "reading record %s", addr)
				}

				err = f(addr, data)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func init() {
	ledger.Register("file", func(_ context.Context, conf map[string]interface{}) (strand.Ledger, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
