package storage

import (
	"os"
	"path/filepath"
	"testing"

	"txbench/errors"

	"github.com/stretchr/testify/require"
)

func TestWithClosesAndPersists(t *testing.T) {
	dir := t.TempDir()

	err := With(dir, func(s *Store) error {
		return s.Update(func(txn *Txn) error {
			return txn.Table(TableCells).Put([]byte("out1"), []byte{0x01})
		})
	})
	require.NoError(t, err)

	// the directory lock is released, so a second acquisition succeeds
	err = With(dir, func(s *Store) error {
		return s.View(func(txn *Txn) error {
			v, err := txn.Table(TableCells).Get([]byte("out1"))
			require.NoError(t, err)
			require.Equal(t, []byte{0x01}, v)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithReleasesOnError(t *testing.T) {
	dir := t.TempDir()

	err := With(dir, func(s *Store) error {
		return errors.New(errors.NotFound, "boom")
	})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, With(dir, func(s *Store) error { return nil }))
}

func TestWithUnavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	err := With(file, func(s *Store) error { return nil })
	require.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}

func TestTablesAreIsolated(t *testing.T) {
	err := With(t.TempDir(), func(s *Store) error {
		require.NoError(t, s.Update(func(txn *Txn) error {
			require.NoError(t, txn.Table(TableCells).Put([]byte("a"), []byte("cell")))
			require.NoError(t, txn.Table(TableInputs).Put([]byte("a"), []byte("input")))
			return txn.Table(TableKeys).Put([]byte("b"), []byte("key"))
		}))

		return s.View(func(txn *Txn) error {
			_, err := txn.Table(TableKeys).Get([]byte("a"))
			require.True(t, errors.IsNotFound(err))

			var keys []string
			require.NoError(t, txn.Table(TableCells).ForEach(func(k, v []byte) error {
				keys = append(keys, string(k))
				require.Equal(t, []byte("cell"), v)
				return nil
			}))
			require.Equal(t, []string{"a"}, keys)

			ok, err := txn.Table(TableInputs).Has([]byte("a"))
			require.NoError(t, err)
			require.True(t, ok)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	err := With(t.TempDir(), func(s *Store) error {
		err := s.Update(func(txn *Txn) error {
			require.NoError(t, txn.Table(TableTransactions).Put([]byte("h"), []byte("tx")))
			return errors.New(errors.RemoteUnavailable, "remote down")
		})
		require.True(t, errors.Is(err, errors.ErrRemoteUnavailable))

		return s.View(func(txn *Txn) error {
			ok, err := txn.Table(TableTransactions).Has([]byte("h"))
			require.NoError(t, err)
			require.False(t, ok)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestDelete(t *testing.T) {
	err := With(t.TempDir(), func(s *Store) error {
		require.NoError(t, s.Update(func(txn *Txn) error {
			return txn.Table(TableTransactions).Put([]byte("h"), []byte("tx"))
		}))
		require.NoError(t, s.Update(func(txn *Txn) error {
			return txn.Table(TableTransactions).Delete([]byte("h"))
		}))
		return s.View(func(txn *Txn) error {
			_, err := txn.Table(TableTransactions).Get([]byte("h"))
			require.True(t, errors.IsNotFound(err))
			return nil
		})
	})
	require.NoError(t, err)
}
