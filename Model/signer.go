package model

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"txbench/errors"
	"txbench/metrics"
)

// CellResolver finds the output an input consumes. (nil, nil) means the cell
// is unknown, which is not an error for signing.
type CellResolver interface {
	ResolveCell(ctx context.Context, op OutPoint) (*CellOutput, error)
}

// SignatureLock is the matching rule between a cell lock and a stored key: the
// lock carries exactly one arg equal to the key's LockArg, and its code hash
// equals CodeHash unless CodeHash is zero.
type SignatureLock struct {
	CodeHash Hash
}

func (l SignatureLock) Matches(lock Script, k Key) bool {
	if !l.CodeHash.IsZero() && lock.CodeHash != l.CodeHash {
		return false
	}
	if len(lock.Args) != 1 || len(lock.Args[0]) != LockArgSize {
		return false
	}
	return bytes.Equal(lock.Args[0], k.LockArg())
}

// KeyFor returns the first key able to unlock lock.
func (l SignatureLock) KeyFor(lock Script, keys []Key) (Key, bool) {
	for _, k := range keys {
		if l.Matches(lock, k) {
			return k, true
		}
	}
	return Key{}, false
}

// SignInput produces the witness of input i: [signature(64), pubkey(32)].
func (t *Transaction) SignInput(i int, k Key) Witness {
	sighash := t.SigHash(i)
	sig := ed25519.Sign(k.PrivateKey(), sighash[:])
	return Witness{Data: [][]byte{sig, k.PublicKey()}}
}

// VerifyInputWitness checks the witness of input i against lock.
func (t *Transaction) VerifyInputWitness(i int, lock Script) bool {
	if i < 0 || i >= len(t.Witnesses) {
		return false
	}
	w := t.Witnesses[i]
	if len(w.Data) != 2 || len(w.Data[0]) != ed25519.SignatureSize || len(w.Data[1]) != ed25519.PublicKeySize {
		return false
	}
	if len(lock.Args) != 1 || !bytes.Equal(lock.Args[0], HashPubKey(w.Data[1])) {
		return false
	}
	sighash := t.SigHash(i)
	return ed25519.Verify(ed25519.PublicKey(w.Data[1]), sighash[:], w.Data[0])
}

// SetWitnessesByKeys rebuilds the whole witness list: for each input, find
// the cell it consumes, pick the first key whose identity the cell's lock
// names, and sign. Inputs without a known cell or a matching key get an empty
// witness. The previous witnesses are discarded, never merged. Returns the
// number of inputs signed.
func (t *Transaction) SetWitnessesByKeys(
	ctx context.Context,
	keys []Key,
	lock SignatureLock,
	resolver CellResolver,
) (int, error) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.FnDuration.WithLabelValues("tx_sign"), start)

	witnesses := EmptyWitnesses(len(t.Inputs))
	signed := 0

	for i, in := range t.Inputs {
		// -----------------------------
		// 1) Find the consumed cell
		// -----------------------------
		cell, err := resolver.ResolveCell(ctx, in.PreviousOutput)
		if err != nil {
			return 0, errors.Wrap(resolveCode(err), err, "resolve input %d (%s)", i, in.PreviousOutput)
		}
		if cell == nil {
			continue
		}

		// -----------------------------
		// 2) Match its lock against the keys
		// -----------------------------
		k, ok := lock.KeyFor(cell.Lock, keys)
		if !ok {
			continue
		}

		// -----------------------------
		// 3) Sign
		// -----------------------------
		witnesses[i] = t.SignInput(i, k)
		signed++
	}

	t.ReplaceWitnesses(witnesses)
	metrics.WitnessesSigned.Add(float64(signed))
	return signed, nil
}

// resolveCode keeps the code of local store failures; anything else came from
// the node and is reported as RemoteUnavailable.
func resolveCode(err error) errors.ErrorCode {
	switch code := errors.CodeOf(err); code {
	case errors.CorruptRecord, errors.StoreUnavailable:
		return code
	default:
		return errors.RemoteUnavailable
	}
}
