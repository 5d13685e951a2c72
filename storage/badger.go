package storage

import (
	"time"

	"txbench/errors"
	"txbench/metrics"

	"github.com/dgraph-io/badger/v4"
)

// Logical tables. Keys inside a table are prefixed with "<table>:".
const (
	TableTransactions = "tx"
	TableCells        = "cell"
	TableInputs       = "input"
	TableKeys         = "key"
)

type Store struct {
	db *badger.DB
}

func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil)
	return badger.Open(opts)
}

func Open(path string) (*Store, error) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.StoreOpenDuration, start)

	db, err := OpenBadger(path)
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, err, "open store %s", path)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// With opens the store at path, runs fn and closes the store on every exit
// path. A close failure is reported only when fn succeeded.
func With(path string, fn func(*Store) error) (err error) {
	s, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.StoreUnavailable, cerr, "close store %s", path)
		}
	}()
	return fn(s)
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(*Txn) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Txn{txn: txn})
	})
}

// Update runs fn in a read-write transaction. Writes are committed only if fn
// returns nil.
func (s *Store) Update(fn func(*Txn) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&Txn{txn: txn})
	})
}

type Txn struct {
	txn *badger.Txn
}

func (t *Txn) Table(name string) Table {
	return Table{txn: t.txn, prefix: []byte(name + ":")}
}

type Table struct {
	txn    *badger.Txn
	prefix []byte
}

func (t Table) key(k []byte) []byte {
	out := make([]byte, 0, len(t.prefix)+len(k))
	out = append(out, t.prefix...)
	return append(out, k...)
}

// Get returns a copy of the value stored under k, or an errors.NotFound error.
func (t Table) Get(k []byte) ([]byte, error) {
	item, err := t.txn.Get(t.key(k))
	if err == badger.ErrKeyNotFound {
		return nil, errors.New(errors.NotFound, "key %q not found in %s", k, t.prefix[:len(t.prefix)-1])
	}
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, err, "read %q", k)
	}
	return item.ValueCopy(nil)
}

func (t Table) Has(k []byte) (bool, error) {
	_, err := t.txn.Get(t.key(k))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.StoreUnavailable, err, "read %q", k)
	}
	return true, nil
}

func (t Table) Put(k, v []byte) error {
	if err := t.txn.Set(t.key(k), v); err != nil {
		return errors.Wrap(errors.StoreUnavailable, err, "write %q", k)
	}
	return nil
}

func (t Table) Delete(k []byte) error {
	if err := t.txn.Delete(t.key(k)); err != nil {
		return errors.Wrap(errors.StoreUnavailable, err, "delete %q", k)
	}
	return nil
}

// ForEach calls fn for every entry of the table in key order. The key passed
// to fn has the table prefix stripped; both slices are copies.
func (t Table) ForEach(fn func(k, v []byte) error) error {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(t.prefix); it.ValidForPrefix(t.prefix); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)[len(t.prefix):]

		v, err := item.ValueCopy(nil)
		if err != nil {
			return errors.Wrap(errors.StoreUnavailable, err, "read %q", k)
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}
