package workbench

import (
	model "txbench/Model"
	"txbench/storage"
)

// Provisioning of the named registries. Assembly only reads them.

func (w *Workbench) AddCell(name string, cell model.CellOutput) error {
	return storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			return model.NewCellManager(txn).Add(name, cell)
		})
	})
}

func (w *Workbench) GetCell(name string) (model.CellOutput, error) {
	var cell model.CellOutput
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			cell, err = model.NewCellManager(txn).Get(name)
			return err
		})
	})
	return cell, err
}

func (w *Workbench) ListCells() ([]model.NamedCell, error) {
	var cells []model.NamedCell
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			cells, err = model.NewCellManager(txn).List()
			return err
		})
	})
	return cells, err
}

func (w *Workbench) AddInput(name string, in model.CellInput) error {
	return storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			return model.NewCellInputManager(txn).Add(name, in)
		})
	})
}

func (w *Workbench) GetInput(name string) (model.CellInput, error) {
	var in model.CellInput
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			in, err = model.NewCellInputManager(txn).Get(name)
			return err
		})
	})
	return in, err
}

func (w *Workbench) ListInputs() ([]model.NamedInput, error) {
	var inputs []model.NamedInput
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			inputs, err = model.NewCellInputManager(txn).List()
			return err
		})
	})
	return inputs, err
}

func (w *Workbench) GenerateKey(name string) (model.Key, error) {
	var k model.Key
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			var err error
			k, err = model.NewKeyManager(txn).Generate(name)
			return err
		})
	})
	if err == nil {
		w.logger.Info().Str("key", name).Msg("generated key")
	}
	return k, err
}

// ImportKey stores a key given as a hex ed25519 seed.
func (w *Workbench) ImportKey(name, seedHex string) (model.Key, error) {
	k, err := model.KeyFromSeedHex(name, seedHex)
	if err != nil {
		return model.Key{}, err
	}
	err = storage.With(w.dbPath, func(s *storage.Store) error {
		return s.Update(func(txn *storage.Txn) error {
			return model.NewKeyManager(txn).Add(k)
		})
	})
	return k, err
}

func (w *Workbench) ListKeys() ([]model.Key, error) {
	var keys []model.Key
	err := storage.With(w.dbPath, func(s *storage.Store) error {
		return s.View(func(txn *storage.Txn) error {
			var err error
			keys, err = model.NewKeyManager(txn).List()
			return err
		})
	})
	return keys, err
}
