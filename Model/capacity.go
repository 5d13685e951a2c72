package model

import (
	"math/big"

	"txbench/errors"

	"github.com/shopspring/decimal"
)

// ShannonsPerCKB is the number of base units in one CKByte.
const ShannonsPerCKB = 100_000_000

var shannonsPerCKB = decimal.NewFromInt(ShannonsPerCKB)

// ParseCapacity converts a decimal CKByte amount such as "61" or "0.5" into
// shannons. More than 8 fractional digits, negative values and values above
// the u64 range are rejected.
func ParseCapacity(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrap(errors.InvalidArgument, err, "invalid capacity %q", s)
	}
	if d.IsNegative() {
		return 0, errors.New(errors.InvalidArgument, "negative capacity %q", s)
	}

	shannons := d.Mul(shannonsPerCKB)
	if !shannons.Equal(shannons.Truncate(0)) {
		return 0, errors.New(errors.InvalidArgument, "capacity %q has more than 8 decimal places", s)
	}
	if shannons.GreaterThan(fromUint64(^uint64(0))) {
		return 0, errors.New(errors.InvalidArgument, "capacity %q overflows", s)
	}
	return shannons.BigInt().Uint64(), nil
}

// FormatCapacity renders shannons as a CKByte decimal string.
func FormatCapacity(shannons uint64) string {
	return fromUint64(shannons).Div(shannonsPerCKB).String()
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
