package model

import (
	"encoding/hex"
	"strconv"

	"txbench/errors"
	"txbench/helper"
)

// Display forms. They are also the JSON shapes exchanged with the remote
// node: byte strings as 0x-hex, u64 values as decimal strings.

type OutPointView struct {
	TxHash string `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

type ScriptView struct {
	CodeHash string   `json:"code_hash"`
	Args     []string `json:"args"`
}

type CellInputView struct {
	PreviousOutput OutPointView `json:"previous_output"`
	Since          string       `json:"since"`
	Args           []string     `json:"args"`
}

type CellOutputView struct {
	Capacity string      `json:"capacity"`
	Data     string      `json:"data"`
	Lock     ScriptView  `json:"lock"`
	Type     *ScriptView `json:"type"`
}

type WitnessView struct {
	Data []string `json:"data"`
}

type TransactionView struct {
	Version   uint32           `json:"version"`
	Deps      []OutPointView   `json:"deps"`
	Inputs    []CellInputView  `json:"inputs"`
	Outputs   []CellOutputView `json:"outputs"`
	Witnesses []WitnessView    `json:"witnesses"`
	Hash      string           `json:"hash"`
}

// StagedTxView pairs a staged transaction with its store key.
type StagedTxView struct {
	Tx     TransactionView `json:"tx"`
	TxHash string          `json:"tx-hash"`
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func hexList(list [][]byte) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, hexBytes(b))
	}
	return out
}

func (o OutPoint) View() OutPointView {
	return OutPointView{TxHash: o.TxHash.String(), Index: o.Index}
}

func (s Script) View() ScriptView {
	return ScriptView{CodeHash: s.CodeHash.String(), Args: hexList(s.Args)}
}

func (in CellInput) View() CellInputView {
	return CellInputView{
		PreviousOutput: in.PreviousOutput.View(),
		Since:          strconv.FormatUint(in.Since, 10),
		Args:           hexList(in.Args),
	}
}

func (out CellOutput) View() CellOutputView {
	v := CellOutputView{
		Capacity: strconv.FormatUint(out.Capacity, 10),
		Data:     hexBytes(out.Data),
		Lock:     out.Lock.View(),
	}
	if out.Type != nil {
		t := out.Type.View()
		v.Type = &t
	}
	return v
}

func (tx *Transaction) View() TransactionView {
	v := TransactionView{
		Version:   tx.Version,
		Deps:      make([]OutPointView, 0, len(tx.Deps)),
		Inputs:    make([]CellInputView, 0, len(tx.Inputs)),
		Outputs:   make([]CellOutputView, 0, len(tx.Outputs)),
		Witnesses: make([]WitnessView, 0, len(tx.Witnesses)),
		Hash:      tx.ComputeHash().String(),
	}
	for _, d := range tx.Deps {
		v.Deps = append(v.Deps, d.View())
	}
	for _, in := range tx.Inputs {
		v.Inputs = append(v.Inputs, in.View())
	}
	for _, out := range tx.Outputs {
		v.Outputs = append(v.Outputs, out.View())
	}
	for _, w := range tx.Witnesses {
		v.Witnesses = append(v.Witnesses, WitnessView{Data: hexList(w.Data)})
	}
	return v
}

// ToCellOutput converts a remote node's cell back into the model.
func (v CellOutputView) ToCellOutput() (CellOutput, error) {
	var out CellOutput
	var err error

	out.Capacity, err = strconv.ParseUint(v.Capacity, 10, 64)
	if err != nil {
		return CellOutput{}, errors.Wrap(errors.CorruptRecord, err, "capacity %q", v.Capacity)
	}
	if out.Data, err = parseHexBytes(v.Data); err != nil {
		return CellOutput{}, err
	}
	if out.Lock, err = v.Lock.ToScript(); err != nil {
		return CellOutput{}, err
	}
	if v.Type != nil {
		t, err := v.Type.ToScript()
		if err != nil {
			return CellOutput{}, err
		}
		out.Type = &t
	}
	return out, nil
}

func (v ScriptView) ToScript() (Script, error) {
	codeHash, err := ParseHash(v.CodeHash)
	if err != nil {
		return Script{}, errors.Wrap(errors.CorruptRecord, err, "script code hash")
	}
	args := make([][]byte, 0, len(v.Args))
	for _, a := range v.Args {
		b, err := parseHexBytes(a)
		if err != nil {
			return Script{}, err
		}
		args = append(args, b)
	}
	return Script{CodeHash: codeHash, Args: args}, nil
}

func parseHexBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(helper.StripHexPrefix(s))
	if err != nil {
		return nil, errors.Wrap(errors.CorruptRecord, err, "hex field %q", s)
	}
	return b, nil
}

// ParseHexBytes decodes operator-supplied hex (witness items, lock args).
func ParseHexBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(helper.StripHexPrefix(s))
	if err != nil {
		return nil, errors.Wrap(errors.InvalidArgument, err, "invalid hex %q", s)
	}
	return b, nil
}
