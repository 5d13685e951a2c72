// Package workbench stages transactions: it assembles them from named cells,
// signs them with stored keys and asks the remote node to dry-run them. Every
// operation opens the store for its own duration only.
package workbench

import (
	"context"
	"math"
	"time"

	model "txbench/Model"
	"txbench/errors"
	"txbench/events"
	"txbench/metrics"
	"txbench/rpc"
	"txbench/storage"

	"github.com/rs/zerolog"
)

// Notifier receives workbench events. Delivery failures are logged and never
// fail the operation that produced the event.
type Notifier interface {
	PublishTxStaged(ctx context.Context, msg events.TxStaged) error
	PublishTxSigned(ctx context.Context, msg events.TxSigned) error
	PublishTxRemoved(ctx context.Context, msg events.TxRemoved) error
	PublishTxVerified(ctx context.Context, msg events.TxVerified) error
}

type Workbench struct {
	dbPath   string
	remote   rpc.Remote
	notifier Notifier
	lock     model.SignatureLock
	logger   zerolog.Logger
}

type Option func(*Workbench)

// WithRemote sets the node used for verification and live cell lookups.
func WithRemote(r rpc.Remote) Option {
	return func(w *Workbench) { w.remote = r }
}

func WithNotifier(n Notifier) Option {
	return func(w *Workbench) { w.notifier = n }
}

// WithSignatureLock restricts signing to locks carrying the given code hash.
func WithSignatureLock(l model.SignatureLock) Option {
	return func(w *Workbench) { w.lock = l }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workbench) { w.logger = l }
}

func New(dbPath string, opts ...Option) *Workbench {
	w := &Workbench{
		dbPath: dbPath,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.With().Str("component", "workbench").Logger()
	return w
}

// AddRequest names the parts of a transaction to assemble.
type AddRequest struct {
	Deps         []string // out-point tokens, "<hash>-<index>"
	Inputs       []string // names in the input registry
	Outputs      []string // names in the cell registry
	SignWithKeys bool
}

// Add assembles and stages a transaction. Staging and the optional signing
// run in a single store transaction: a failure at any step leaves no record.
func (w *Workbench) Add(ctx context.Context, req AddRequest) (model.StagedTx, error) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.FnDuration.WithLabelValues("tx_add"), start)

	deps := make([]model.OutPoint, 0, len(req.Deps))
	for _, token := range req.Deps {
		op, err := model.ParseOutPoint(token)
		if err != nil {
			return model.StagedTx{}, err
		}
		deps = append(deps, op)
	}

	var staged model.StagedTx
	signed := 0
	replaced := false

	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			inputs, err := resolveInputs(model.NewCellInputManager(txn), req.Inputs)
			if err != nil {
				return err
			}
			outputs, err := resolveOutputs(model.NewCellManager(txn), req.Outputs)
			if err != nil {
				return err
			}

			tx := model.NewTransaction(deps, inputs, outputs)
			txs := model.NewTransactionManager(txn)
			replaced, err = txs.Has(tx.ComputeHash())
			if err != nil {
				return err
			}
			hash, err := txs.Add(&tx)
			if err != nil {
				return err
			}

			if req.SignWithKeys {
				keys, err := model.NewKeyManager(txn).List()
				if err != nil {
					return err
				}
				tx, signed, err = txs.SetWitnessesByKeys(ctx, hash, keys, w.lock, w.remote)
				if err != nil {
					return err
				}
			}

			staged = model.StagedTx{Hash: hash, Tx: tx}
			return nil
		})
	})
	if err != nil {
		return model.StagedTx{}, err
	}

	metrics.TxStagedTotal.Inc()
	w.logger.Info().
		Str("tx_hash", staged.Hash.String()).
		Int("inputs", len(staged.Tx.Inputs)).
		Int("outputs", len(staged.Tx.Outputs)).
		Int("size", staged.Tx.Size()).
		Int("signed", signed).
		Bool("replaced", replaced).
		Msg("staged transaction")

	w.notify(events.TopicTxStaged, func(n Notifier) error {
		return n.PublishTxStaged(ctx, events.TxStaged{
			TxHash:  staged.Hash.String(),
			Deps:    len(staged.Tx.Deps),
			Inputs:  len(staged.Tx.Inputs),
			Outputs: len(staged.Tx.Outputs),
			Signed:  req.SignWithKeys,
		})
	})
	return staged, nil
}

func resolveInputs(m *model.CellInputManager, names []string) ([]model.CellInput, error) {
	out := make([]model.CellInput, 0, len(names))
	for _, name := range names {
		in, err := m.Get(name)
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.UnknownReference, "unknown input %q", name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func resolveOutputs(m *model.CellManager, names []string) ([]model.CellOutput, error) {
	out := make([]model.CellOutput, 0, len(names))
	for _, name := range names {
		cell, err := m.Get(name)
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.UnknownReference, "unknown cell %q", name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cell)
	}
	return out, nil
}

func (w *Workbench) Get(hash model.Hash) (model.StagedTx, error) {
	var tx model.Transaction
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			tx, err = model.NewTransactionManager(txn).Get(hash)
			return err
		})
	})
	if err != nil {
		return model.StagedTx{}, err
	}
	return model.StagedTx{Hash: hash, Tx: tx}, nil
}

// Remove deletes the staged record and returns what it held.
func (w *Workbench) Remove(ctx context.Context, hash model.Hash) (model.StagedTx, error) {
	var tx model.Transaction
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			var err error
			tx, err = model.NewTransactionManager(txn).Remove(hash)
			return err
		})
	})
	if err != nil {
		return model.StagedTx{}, err
	}

	w.logger.Info().Str("tx_hash", hash.String()).Msg("removed transaction")
	w.notify(events.TopicTxRemoved, func(n Notifier) error {
		return n.PublishTxRemoved(ctx, events.TxRemoved{TxHash: hash.String()})
	})
	return model.StagedTx{Hash: hash, Tx: tx}, nil
}

func (w *Workbench) List() ([]model.StagedTx, error) {
	var out []model.StagedTx
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			out, err = model.NewTransactionManager(txn).List()
			return err
		})
	})
	return out, err
}

// SetWitnessesByKeys re-signs a staged transaction with every stored key and
// returns it together with the number of inputs signed.
func (w *Workbench) SetWitnessesByKeys(ctx context.Context, hash model.Hash) (model.StagedTx, int, error) {
	var tx model.Transaction
	signed := 0

	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			keys, err := model.NewKeyManager(txn).List()
			if err != nil {
				return err
			}
			tx, signed, err = model.NewTransactionManager(txn).SetWitnessesByKeys(ctx, hash, keys, w.lock, w.remote)
			return err
		})
	})
	if err != nil {
		return model.StagedTx{}, 0, err
	}

	w.logger.Info().
		Str("tx_hash", hash.String()).
		Int("inputs", len(tx.Inputs)).
		Int("signed", signed).
		Msg("signed transaction")
	w.notify(events.TopicTxSigned, func(n Notifier) error {
		return n.PublishTxSigned(ctx, events.TxSigned{TxHash: hash.String(), Inputs: len(tx.Inputs), Signed: signed})
	})
	return model.StagedTx{Hash: hash, Tx: tx}, signed, nil
}

// SetWitness replaces the witness of one input with data.
func (w *Workbench) SetWitness(hash model.Hash, inputIndex int, data [][]byte) (model.StagedTx, error) {
	var tx model.Transaction
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			var err error
			tx, err = model.NewTransactionManager(txn).SetWitness(hash, inputIndex, model.Witness{Data: data})
			return err
		})
	})
	if err != nil {
		return model.StagedTx{}, err
	}
	w.logger.Info().Str("tx_hash", hash.String()).Int("input", inputIndex).Msg("set witness")
	return model.StagedTx{Hash: hash, Tx: tx}, nil
}

// VerifyResult is the node's verdict on a staged transaction.
type VerifyResult struct {
	Hash      model.Hash `json:"tx-hash"`
	Valid     bool       `json:"valid"`
	Cycles    uint64     `json:"cycles"`
	MaxCycles uint64     `json:"max_cycles,omitempty"`
}

// Unbounded reports whether maxCycles places no cap on execution cost.
func Unbounded(maxCycles uint64) bool {
	return maxCycles == 0 || maxCycles == math.MaxUint64
}

// Verify dry-runs a staged transaction on the remote node. The store is
// closed before the node is contacted and the record is never modified.
func (w *Workbench) Verify(ctx context.Context, hash model.Hash, maxCycles uint64) (VerifyResult, error) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.FnDuration.WithLabelValues("tx_verify"), start)

	result := VerifyResult{Hash: hash}
	if !Unbounded(maxCycles) {
		result.MaxCycles = maxCycles
	}

	staged, err := w.Get(hash)
	if err != nil {
		return result, err
	}
	if w.remote == nil {
		return result, errors.New(errors.RemoteUnavailable, "no remote node configured")
	}

	cycles, err := w.remote.DryRun(ctx, &staged.Tx)
	if err == nil {
		result.Cycles = cycles
		if !Unbounded(maxCycles) && cycles > maxCycles {
			err = errors.New(errors.BudgetExceeded, "transaction %s used %d cycles, budget is %d", hash, cycles, maxCycles)
		}
	} else if code := errors.CodeOf(err); code != errors.RemoteRejected && code != errors.RemoteUnavailable {
		err = errors.Wrap(errors.RemoteUnavailable, err, "verify %s", hash)
	}
	result.Valid = err == nil

	outcome := "valid"
	if err != nil {
		outcome = string(errors.CodeOf(err))
	} else {
		metrics.TxVerifyCycles.Observe(float64(cycles))
	}
	metrics.TxVerifyTotal.WithLabelValues(outcome).Inc()

	w.logger.Info().
		Str("tx_hash", hash.String()).
		Bool("valid", result.Valid).
		Uint64("cycles", result.Cycles).
		Str("outcome", outcome).
		Msg("verified transaction")

	msg := events.TxVerified{TxHash: hash.String(), Valid: result.Valid, Cycles: result.Cycles, MaxCycles: result.MaxCycles}
	if err != nil {
		msg.Error = err.Error()
	}
	w.notify(events.TopicTxVerified, func(n Notifier) error {
		return n.PublishTxVerified(ctx, msg)
	})
	return result, err
}

func (w *Workbench) notify(topic string, publish func(Notifier) error) {
	if w.notifier == nil {
		return
	}
	if err := publish(w.notifier); err != nil {
		w.logger.Warn().Err(err).Str("topic", topic).Msg("event not published")
	}
}
