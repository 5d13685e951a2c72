package model

import (
	"context"

	"txbench/errors"
	"txbench/storage"
)

// StagedTx is one record of the staging table.
type StagedTx struct {
	Hash Hash
	Tx   Transaction
}

func (s StagedTx) View() StagedTxView {
	return StagedTxView{Tx: s.Tx.View(), TxHash: s.Hash.String()}
}

// TransactionManager is the hash → transaction table. It lives for one store
// transaction.
type TransactionManager struct {
	table storage.Table
}

func NewTransactionManager(txn *storage.Txn) *TransactionManager {
	return &TransactionManager{table: txn.Table(storage.TableTransactions)}
}

// Add stores tx under its hash, replacing any record already there.
func (m *TransactionManager) Add(tx *Transaction) (Hash, error) {
	hash := tx.ComputeHash()
	if err := m.table.Put(hash[:], EncodeTransaction(tx)); err != nil {
		return Hash{}, err
	}
	return hash, nil
}

// Has reports whether a record is staged under hash.
func (m *TransactionManager) Has(hash Hash) (bool, error) {
	return m.table.Has(hash[:])
}

func (m *TransactionManager) Get(hash Hash) (Transaction, error) {
	raw, err := m.table.Get(hash[:])
	if errors.IsNotFound(err) {
		return Transaction{}, errors.New(errors.NotFound, "transaction %s not found", hash)
	}
	if err != nil {
		return Transaction{}, err
	}
	tx, err := DecodeTransaction(raw)
	if err != nil {
		return Transaction{}, errors.Wrap(errors.CorruptRecord, err, "transaction %s", hash)
	}
	return tx, nil
}

// Remove deletes the record and returns what it held.
func (m *TransactionManager) Remove(hash Hash) (Transaction, error) {
	tx, err := m.Get(hash)
	if err != nil {
		return Transaction{}, err
	}
	if err := m.table.Delete(hash[:]); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// List returns every staged record in hash order.
func (m *TransactionManager) List() ([]StagedTx, error) {
	var out []StagedTx
	err := m.table.ForEach(func(k, v []byte) error {
		var hash Hash
		if len(k) != HashSize {
			return errors.New(errors.CorruptRecord, "staged key %x has length %d", k, len(k))
		}
		copy(hash[:], k)

		tx, err := DecodeTransaction(v)
		if err != nil {
			return errors.Wrap(errors.CorruptRecord, err, "transaction %s", hash)
		}
		out = append(out, StagedTx{Hash: hash, Tx: tx})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveCell looks the out-point up among staged transactions, so inputs
// spending a not-yet-broadcast transaction can be signed.
func (m *TransactionManager) ResolveCell(_ context.Context, op OutPoint) (*CellOutput, error) {
	tx, err := m.Get(op.TxHash)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if int(op.Index) >= len(tx.Outputs) {
		return nil, nil
	}
	out := tx.Outputs[op.Index]
	return &out, nil
}

// SetWitnessesByKeys signs the staged transaction hash with keys and stores
// the result. Consumed cells are looked up among staged transactions first,
// then through remote.
func (m *TransactionManager) SetWitnessesByKeys(
	ctx context.Context,
	hash Hash,
	keys []Key,
	lock SignatureLock,
	remote CellResolver,
) (Transaction, int, error) {
	tx, err := m.Get(hash)
	if err != nil {
		return Transaction{}, 0, err
	}

	resolver := ChainResolver{m, remote}
	signed, err := tx.SetWitnessesByKeys(ctx, keys, lock, resolver)
	if err != nil {
		return Transaction{}, 0, err
	}

	if _, err := m.Add(&tx); err != nil {
		return Transaction{}, 0, err
	}
	return tx, signed, nil
}

// SetWitness replaces the witness of a single input.
func (m *TransactionManager) SetWitness(hash Hash, inputIndex int, w Witness) (Transaction, error) {
	tx, err := m.Get(hash)
	if err != nil {
		return Transaction{}, err
	}
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return Transaction{}, errors.New(errors.InvalidIndex, "input %d out of range: transaction %s has %d inputs", inputIndex, hash, len(tx.Inputs))
	}

	witnesses := make([]Witness, len(tx.Witnesses))
	copy(witnesses, tx.Witnesses)
	witnesses[inputIndex] = w
	tx.ReplaceWitnesses(witnesses)

	if _, err := m.Add(&tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// ChainResolver asks each resolver in turn until one knows the cell. Nil
// entries are skipped.
type ChainResolver []CellResolver

func (c ChainResolver) ResolveCell(ctx context.Context, op OutPoint) (*CellOutput, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		cell, err := r.ResolveCell(ctx, op)
		if err != nil {
			return nil, err
		}
		if cell != nil {
			return cell, nil
		}
	}
	return nil, nil
}
