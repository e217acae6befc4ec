// Package pg implements a ledger in a Postgresql database.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"

	_ "github.com/lib/pq" // register the postgres type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger"
)

var _ strand.Ledger = &Ledger{}

// Ledger is a Postgresql-based implementation of a ledger.
type Ledger struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `records` table if it does not exist.
// (If it does exist, it must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS records (
  address BYTEA PRIMARY KEY NOT NULL,
  data BYTEA NOT NULL
);
`

// New produces a new Ledger using `db` for storage.
// It expects to create the table `records`,
// or for that table already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Ledger, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Ledger{db: db}, err
}

// CreateIfAbsent writes data at addr if the address is empty.
func (l *Ledger) CreateIfAbsent(ctx context.Context, addr strand.Address, data []byte) (strand.Receipt, error) {
	const q = `INSERT INTO records (address, data) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`

	res, err := l.db.ExecContext(ctx, q, addr[:], data)
	if err != nil {
		return strand.Receipt{}, errors.Wrapf(strand.ErrUnavailable, "inserting record: %s", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return strand.Receipt{}, errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return strand.Receipt{}, strand.ErrAlreadyExists
	}

	return strand.NewReceipt(addr, data), nil
}

// Get gets the bytes stored at addr.
func (l *Ledger) Get(ctx context.Context, addr strand.Address) ([]byte, error) {
	const q = `SELECT data FROM records WHERE address = $1`

	var data []byte
	err := l.db.QueryRowContext(ctx, q, addr[:]).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, strand.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(strand.ErrUnavailable, "querying record: %s", err)
	}
	return data, nil
}

// ListRecords produces all records in the ledger, in address order.
func (l *Ledger) ListRecords(ctx context.Context, f func(strand.Address, []byte) error) error {
	const q = `SELECT address, data FROM records ORDER BY address`

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return errors.Wrapf(strand.ErrUnavailable, "querying records: %s", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr, data []byte
		err = rows.Scan(&addr, &data)
		if err != nil {
			return errors.Wrap(err, "scanning row")
		}
		err = f(strand.AddressFromBytes(addr), data)
		if err != nil {
			return err
		}
	}
	return rows.Err()
}

func init() {
	ledger.Register("pg", func(ctx context.Context, conf map[string]interface{}) (strand.Ledger, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
