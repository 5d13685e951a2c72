package model

import (
	"testing"

	"txbench/errors"

	"github.com/stretchr/testify/require"
)

func TestParseCapacity(t *testing.T) {
	cases := map[string]uint64{
		"0":          0,
		"61":         6_100_000_000,
		"0.5":        50_000_000,
		"0.00000001": 1,
		"1.23456789": 123_456_789,
	}
	for in, want := range cases {
		got, err := ParseCapacity(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"-1", "0.000000001", "abc", "184467440737.09551616"} {
		_, err := ParseCapacity(in)
		require.True(t, errors.Is(err, errors.ErrInvalidArgument), in)
	}
}

func TestFormatCapacity(t *testing.T) {
	require.Equal(t, "61", FormatCapacity(6_100_000_000))
	require.Equal(t, "0.5", FormatCapacity(50_000_000))
	require.Equal(t, "0.00000001", FormatCapacity(1))
}
