package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(NotFound, "transaction %s not found", "0xabc")

	require.True(t, Is(err, ErrNotFound))
	require.False(t, Is(err, ErrCorruptRecord))
	require.Equal(t, "transaction 0xabc not found", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(StoreUnavailable, io.ErrUnexpectedEOF, "open %s", "/tmp/db")

	require.True(t, Is(err, ErrStoreUnavailable))
	require.True(t, Is(err, io.ErrUnexpectedEOF))
	require.Equal(t, "open /tmp/db: unexpected EOF", err.Error())
}

func TestCodeOf(t *testing.T) {
	inner := New(NotFound, "cell out1 not found")
	outer := Wrap(UnknownReference, inner, "output cell %q", "out1")

	require.Equal(t, UnknownReference, CodeOf(outer))
	require.Equal(t, UnknownReference, CodeOf(fmt.Errorf("add: %w", outer)))
	require.Equal(t, UnknownError, CodeOf(io.EOF))
	require.False(t, IsNotFound(outer))
	require.True(t, Is(outer, ErrUnknownReference))
	require.False(t, Is(nil, ErrNotFound))
}
