package model

import (
	"txbench/errors"
	"txbench/storage"
)

// NamedCell pairs a registry name with its cell output.
type NamedCell struct {
	Name string
	Cell CellOutput
}

// NamedInput pairs a registry name with its cell input.
type NamedInput struct {
	Name  string
	Input CellInput
}

// CellManager maps names to cell outputs.
type CellManager struct {
	table storage.Table
}

func NewCellManager(txn *storage.Txn) *CellManager {
	return &CellManager{table: txn.Table(storage.TableCells)}
}

func (m *CellManager) Add(name string, cell CellOutput) error {
	if name == "" {
		return errors.New(errors.InvalidArgument, "cell name is empty")
	}
	return m.table.Put([]byte(name), EncodeCellOutput(cell))
}

func (m *CellManager) Get(name string) (CellOutput, error) {
	raw, err := m.table.Get([]byte(name))
	if errors.IsNotFound(err) {
		return CellOutput{}, errors.New(errors.NotFound, "cell %q not found", name)
	}
	if err != nil {
		return CellOutput{}, err
	}
	cell, err := DecodeCellOutput(raw)
	if err != nil {
		return CellOutput{}, errors.Wrap(errors.CorruptRecord, err, "cell %q", name)
	}
	return cell, nil
}

func (m *CellManager) List() ([]NamedCell, error) {
	var out []NamedCell
	err := m.table.ForEach(func(k, v []byte) error {
		cell, err := DecodeCellOutput(v)
		if err != nil {
			return errors.Wrap(errors.CorruptRecord, err, "cell %q", k)
		}
		out = append(out, NamedCell{Name: string(k), Cell: cell})
		return nil
	})
	return out, err
}

// CellInputManager maps names to cell inputs.
type CellInputManager struct {
	table storage.Table
}

func NewCellInputManager(txn *storage.Txn) *CellInputManager {
	return &CellInputManager{table: txn.Table(storage.TableInputs)}
}

func (m *CellInputManager) Add(name string, in CellInput) error {
	if name == "" {
		return errors.New(errors.InvalidArgument, "input name is empty")
	}
	return m.table.Put([]byte(name), EncodeCellInput(in))
}

func (m *CellInputManager) Get(name string) (CellInput, error) {
	raw, err := m.table.Get([]byte(name))
	if errors.IsNotFound(err) {
		return CellInput{}, errors.New(errors.NotFound, "input %q not found", name)
	}
	if err != nil {
		return CellInput{}, err
	}
	in, err := DecodeCellInput(raw)
	if err != nil {
		return CellInput{}, errors.Wrap(errors.CorruptRecord, err, "input %q", name)
	}
	return in, nil
}

func (m *CellInputManager) List() ([]NamedInput, error) {
	var out []NamedInput
	err := m.table.ForEach(func(k, v []byte) error {
		in, err := DecodeCellInput(v)
		if err != nil {
			return errors.Wrap(errors.CorruptRecord, err, "input %q", k)
		}
		out = append(out, NamedInput{Name: string(k), Input: in})
		return nil
	})
	return out, err
}
