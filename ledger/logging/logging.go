// Package logging implements a ledger that delegates everything to a nested
// ledger, logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger"
)

var _ strand.Ledger = &Ledger{}

type Ledger struct {
	l strand.Ledger
}

func New(l strand.Ledger) *Ledger {
	return &Ledger{l: l}
}

func (l *Ledger) CreateIfAbsent(ctx context.Context, addr strand.Address, data []byte) (strand.Receipt, error) {
	receipt, err := l.l.CreateIfAbsent(ctx, addr, data)
	if err != nil {
		log.Printf("ERROR CreateIfAbsent %s: %s", addr, err)
	} else {
		log.Printf("CreateIfAbsent %s, txid=%s, fee=%d", addr, receipt.TxID, receipt.Fee)
	}
	return receipt, err
}

func (l *Ledger) Get(ctx context.Context, addr strand.Address) ([]byte, error) {
	data, err := l.l.Get(ctx, addr)
	if err != nil {
		log.Printf("ERROR Get %s: %s", addr, err)
	} else {
		log.Printf("Get %s (%d bytes)", addr, len(data))
	}
	return data, err
}

func (l *Ledger) ListRecords(ctx context.Context, f func(strand.Address, []byte) error) error {
	log.Print("ListRecords")
	return l.l.ListRecords(ctx, func(addr strand.Address, data []byte) error {
		err := f(addr, data)
		if err != nil {
			log.Printf("  ERROR in ListRecords at %s: %s", addr, err)
		} else {
			log.Printf("  ListRecords: %s (%d bytes)", addr, len(data))
		}
		return err
	})
}

func init() {
	ledger.Register("logging", func(ctx context.Context, conf map[string]interface{}) (strand.Ledger, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedLedger, err := ledger.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested ledger")
		}
		return New(nestedLedger), nil
	})
}
