// Package sqlite3 implements a ledger in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/strand"
	"github.com/bobg/strand/ledger"
)

var _ strand.Ledger = &Ledger{}

// Ledger is a Sqlite-based implementation of a ledger.
// The atomic create-if-absent primitive is an insert
// with ON CONFLICT DO NOTHING.
type Ledger struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `records` table if it does not exist.
// (If it does exist, it must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS records (
  address BLOB PRIMARY KEY NOT NULL,
  data BLOB NOT NULL
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
	const q = `INSERT INTO records (address, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`

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

	return sqlutil.ForQueryRows(ctx, l.db, q, func(addr, data []byte) error {
		return f(strand.AddressFromBytes(addr), data)
	})
}

func init() {
	ledger.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (strand.Ledger, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
