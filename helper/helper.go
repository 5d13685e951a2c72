package helper

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

func WriteVarInt(buf *bytes.Buffer, n uint64) {
	if n < 0xfd {
		buf.WriteByte(byte(n))
	} else if n <= 0xffff {
		buf.WriteByte(0xfd)
		binary.Write(buf, binary.LittleEndian, uint16(n))
	} else if n <= 0xffffffff {
		buf.WriteByte(0xfe)
		binary.Write(buf, binary.LittleEndian, uint32(n))
	} else {
		buf.WriteByte(0xff)
		binary.Write(buf, binary.LittleEndian, uint64(n))
	}
}

func WriteBytes(buf *bytes.Buffer, b []byte) {
	WriteVarInt(buf, uint64(len(b)))
	buf.Write(b)
}

func WriteByteList(buf *bytes.Buffer, list [][]byte) {
	WriteVarInt(buf, uint64(len(list)))
	for _, b := range list {
		WriteBytes(buf, b)
	}
}

// StripHexPrefix drops a leading "0x" or "0X".
func StripHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// HexToBytesFixed32 decodes exactly 32 bytes of hex, with or without prefix.
func HexToBytesFixed32(hexStr string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(StripHexPrefix(hexStr))
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

var ErrTrailingBytes = errors.New("trailing bytes")

// Reader decodes what WriteVarInt/WriteBytes produced. The first error sticks;
// later reads return zero values.
type Reader struct {
	r   *bytes.Reader
	err error
}

func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

func (r *Reader) Err() error {
	return r.err
}

// Done reports the sticky error, or ErrTrailingBytes if input remains.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.r.Len() != 0 {
		return ErrTrailingBytes
	}
	return nil
}

// Fail records err unless an earlier error is already held.
func (r *Reader) Fail(err error) {
	r.fail(err)
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
	}
}

func (r *Reader) ReadUint32() uint32 {
	var v uint32
	if r.err != nil {
		return 0
	}
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		r.fail(err)
		return 0
	}
	return v
}

func (r *Reader) ReadUint64() uint64 {
	var v uint64
	if r.err != nil {
		return 0
	}
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		r.fail(err)
		return 0
	}
	return v
}

func (r *Reader) ReadUint8() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.fail(err)
		return 0
	}
	return b
}

func (r *Reader) ReadVarInt() uint64 {
	switch prefix := r.ReadUint8(); prefix {
	case 0xfd:
		var v uint16
		if r.err == nil {
			if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
				r.fail(err)
			}
		}
		return uint64(v)
	case 0xfe:
		return uint64(r.ReadUint32())
	case 0xff:
		return r.ReadUint64()
	default:
		return uint64(prefix)
	}
}

// ReadCount reads a varint length and rejects values larger than the bytes
// left, so a corrupt length cannot trigger a huge allocation.
func (r *Reader) ReadCount() int {
	n := r.ReadVarInt()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.r.Len()) {
		r.fail(fmt.Errorf("length %d exceeds remaining %d bytes", n, r.r.Len()))
		return 0
	}
	return int(n)
}

func (r *Reader) ReadFixed(n int) []byte {
	if r.err != nil {
		return nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r.r, out); err != nil {
		r.fail(err)
		return nil
	}
	return out
}

func (r *Reader) ReadBytes() []byte {
	n := r.ReadCount()
	if r.err != nil {
		return nil
	}
	return r.ReadFixed(n)
}

func (r *Reader) ReadByteList() [][]byte {
	n := r.ReadCount()
	if r.err != nil {
		return nil
	}
	list := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		b := r.ReadBytes()
		if r.err != nil {
			return nil
		}
		list = append(list, b)
	}
	return list
}
