package model

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"txbench/errors"
	"txbench/helper"
)

// Record layout: little-endian integers, varint-prefixed byte strings and
// lists. Script.Type is flagged with one byte (0 absent, 1 present).

func writeOutPoint(buf *bytes.Buffer, o OutPoint) {
	buf.Write(o.TxHash[:])
	binary.Write(buf, binary.LittleEndian, o.Index)
}

func readOutPoint(r *helper.Reader) OutPoint {
	var o OutPoint
	copy(o.TxHash[:], r.ReadFixed(HashSize))
	o.Index = r.ReadUint32()
	return o
}

func writeScript(buf *bytes.Buffer, s Script) {
	buf.Write(s.CodeHash[:])
	helper.WriteByteList(buf, s.Args)
}

func readScript(r *helper.Reader) Script {
	var s Script
	copy(s.CodeHash[:], r.ReadFixed(HashSize))
	s.Args = r.ReadByteList()
	return s
}

func writeCellInput(buf *bytes.Buffer, in CellInput) {
	writeOutPoint(buf, in.PreviousOutput)
	binary.Write(buf, binary.LittleEndian, in.Since)
	helper.WriteByteList(buf, in.Args)
}

func readCellInput(r *helper.Reader) CellInput {
	var in CellInput
	in.PreviousOutput = readOutPoint(r)
	in.Since = r.ReadUint64()
	in.Args = r.ReadByteList()
	return in
}

func writeCellOutput(buf *bytes.Buffer, out CellOutput) {
	binary.Write(buf, binary.LittleEndian, out.Capacity)
	helper.WriteBytes(buf, out.Data)
	writeScript(buf, out.Lock)
	if out.Type == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeScript(buf, *out.Type)
}

func readCellOutput(r *helper.Reader) CellOutput {
	var out CellOutput
	out.Capacity = r.ReadUint64()
	out.Data = r.ReadBytes()
	out.Lock = readScript(r)
	switch flag := r.ReadUint8(); flag {
	case 0:
	case 1:
		t := readScript(r)
		out.Type = &t
	default:
		r.Fail(fmt.Errorf("invalid type script flag %d", flag))
	}
	return out
}

// EncodeTransaction encodes the full record, witnesses included.
func EncodeTransaction(tx *Transaction) []byte {
	buf := new(bytes.Buffer)
	tx.writeBody(buf)
	helper.WriteVarInt(buf, uint64(len(tx.Witnesses)))
	for _, w := range tx.Witnesses {
		helper.WriteByteList(buf, w.Data)
	}
	return buf.Bytes()
}

func DecodeTransaction(data []byte) (Transaction, error) {
	r := helper.NewReader(data)
	var tx Transaction

	tx.Version = r.ReadUint32()

	n := r.ReadCount()
	tx.Deps = make([]OutPoint, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		tx.Deps = append(tx.Deps, readOutPoint(r))
	}

	n = r.ReadCount()
	tx.Inputs = make([]CellInput, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		tx.Inputs = append(tx.Inputs, readCellInput(r))
	}

	n = r.ReadCount()
	tx.Outputs = make([]CellOutput, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		tx.Outputs = append(tx.Outputs, readCellOutput(r))
	}

	n = r.ReadCount()
	tx.Witnesses = make([]Witness, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		tx.Witnesses = append(tx.Witnesses, Witness{Data: r.ReadByteList()})
	}

	if err := r.Done(); err != nil {
		return Transaction{}, errors.Wrap(errors.CorruptRecord, err, "decode transaction")
	}
	return tx, nil
}

func EncodeCellOutput(out CellOutput) []byte {
	buf := new(bytes.Buffer)
	writeCellOutput(buf, out)
	return buf.Bytes()
}

func DecodeCellOutput(data []byte) (CellOutput, error) {
	r := helper.NewReader(data)
	out := readCellOutput(r)
	if err := r.Done(); err != nil {
		return CellOutput{}, errors.Wrap(errors.CorruptRecord, err, "decode cell output")
	}
	return out, nil
}

func EncodeCellInput(in CellInput) []byte {
	buf := new(bytes.Buffer)
	writeCellInput(buf, in)
	return buf.Bytes()
}

func DecodeCellInput(data []byte) (CellInput, error) {
	r := helper.NewReader(data)
	in := readCellInput(r)
	if err := r.Done(); err != nil {
		return CellInput{}, errors.Wrap(errors.CorruptRecord, err, "decode cell input")
	}
	return in, nil
}
