package model

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"txbench/errors"
	"txbench/helper"
)

const HashSize = 32

type Hash [HashSize]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes 64 hex digits, with an optional 0x/0X prefix.
func ParseHash(s string) (Hash, error) {
	raw, err := helper.HexToBytesFixed32(s)
	if err != nil {
		return Hash{}, errors.Wrap(errors.InvalidHash, err, "invalid hash %q", s)
	}
	return Hash(raw), nil
}

// OutPoint references output Index of the transaction TxHash.
type OutPoint struct {
	TxHash Hash
	Index  uint32
}

// DepSeparator separates hash and index in the textual out-point form.
const DepSeparator = "-"

// ParseOutPoint parses "<hex-hash>-<decimal-index>", hash optionally prefixed
// with 0x or 0X.
func ParseOutPoint(token string) (OutPoint, error) {
	parts := strings.Split(token, DepSeparator)
	if len(parts) != 2 {
		return OutPoint{}, errors.New(errors.MalformedDependency, "invalid deps: %s", token)
	}

	hash, err := ParseHash(parts[0])
	if err != nil {
		return OutPoint{}, errors.Wrap(errors.InvalidHash, err, "invalid deps: %s", token)
	}

	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return OutPoint{}, errors.Wrap(errors.InvalidIndex, err, "invalid deps: %s", token)
	}

	return OutPoint{TxHash: hash, Index: uint32(index)}, nil
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s%s%d", o.TxHash, DepSeparator, o.Index)
}
