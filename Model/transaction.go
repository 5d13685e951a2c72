package model

import (
	"bytes"
	"encoding/binary"

	"txbench/helper"

	"github.com/minio/sha256-simd"
)

// Script is a lock (or type) condition: the code to run and its arguments.
type Script struct {
	CodeHash Hash
	Args     [][]byte
}

// CellOutput is a value-bearing unit of ledger state guarded by Lock.
type CellOutput struct {
	Capacity uint64 // shannons
	Data     []byte
	Lock     Script
	Type     *Script
}

// CellInput consumes PreviousOutput. Since carries the maturity rule.
type CellInput struct {
	PreviousOutput OutPoint
	Since          uint64
	Args           [][]byte
}

// Witness is the unlock data of the input at the same position.
type Witness struct {
	Data [][]byte
}

func (w Witness) IsEmpty() bool {
	return len(w.Data) == 0
}

type Transaction struct {
	Version   uint32
	Deps      []OutPoint
	Inputs    []CellInput
	Outputs   []CellOutput
	Witnesses []Witness
}

// NewTransaction assembles a transaction with one empty witness per input.
func NewTransaction(deps []OutPoint, inputs []CellInput, outputs []CellOutput) Transaction {
	return Transaction{
		Version:   0,
		Deps:      deps,
		Inputs:    inputs,
		Outputs:   outputs,
		Witnesses: EmptyWitnesses(len(inputs)),
	}
}

func EmptyWitnesses(n int) []Witness {
	out := make([]Witness, n)
	for i := range out {
		out[i] = Witness{Data: [][]byte{}}
	}
	return out
}

// ReplaceWitnesses swaps the whole witness list. The hash does not change.
func (tx *Transaction) ReplaceWitnesses(ws []Witness) {
	tx.Witnesses = ws
}

// Serialize encodes everything except witnesses; this is what the hash
// commits to.
func (tx *Transaction) Serialize() []byte {
	buf := new(bytes.Buffer)
	tx.writeBody(buf)
	return buf.Bytes()
}

func (tx *Transaction) writeBody(buf *bytes.Buffer) {
	// 1) version (4 bytes LE)
	binary.Write(buf, binary.LittleEndian, tx.Version)

	// 2) deps
	helper.WriteVarInt(buf, uint64(len(tx.Deps)))
	for _, dep := range tx.Deps {
		writeOutPoint(buf, dep)
	}

	// 3) inputs
	helper.WriteVarInt(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		writeCellInput(buf, in)
	}

	// 4) outputs
	helper.WriteVarInt(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeCellOutput(buf, out)
	}
}

// ComputeHash returns SHA256(SHA256(Serialize())).
func (tx *Transaction) ComputeHash() Hash {
	return doubleSha256(tx.Serialize())
}

// SigHash is the message signed for input i: SHA256d(txHash || LE32(i)).
func (tx *Transaction) SigHash(inputIndex int) Hash {
	h := tx.ComputeHash()
	msg := make([]byte, 0, HashSize+4)
	msg = append(msg, h[:]...)
	msg = binary.LittleEndian.AppendUint32(msg, uint32(inputIndex))
	return doubleSha256(msg)
}

func doubleSha256(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// Size is the length of the witness-free serialization in bytes.
func (tx *Transaction) Size() int {
	return len(tx.Serialize())
}
