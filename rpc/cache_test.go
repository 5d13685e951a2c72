package rpc

import (
	"context"
	"testing"
	"time"

	model "txbench/Model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingRemote struct {
	cells   map[model.OutPoint]model.CellOutput
	resolve int
	dryRuns int
}

func (r *countingRemote) DryRun(context.Context, *model.Transaction) (uint64, error) {
	r.dryRuns++
	return 7, nil
}

func (r *countingRemote) ResolveCell(_ context.Context, op model.OutPoint) (*model.CellOutput, error) {
	r.resolve++
	cell, ok := r.cells[op]
	if !ok {
		return nil, nil
	}
	return &cell, nil
}

func TestCachedRemoteFallsThroughWithoutRedis(t *testing.T) {
	op := model.OutPoint{TxHash: model.Hash{0x01}, Index: 3}
	inner := &countingRemote{cells: map[model.OutPoint]model.CellOutput{op: {Capacity: 42}}}

	// nothing listens on port 1
	cached := NewCachedRemote(inner, "127.0.0.1:1", time.Minute, zerolog.Nop())
	defer cached.Close()

	for i := 0; i < 2; i++ {
		cell, err := cached.ResolveCell(context.Background(), op)
		require.NoError(t, err)
		require.NotNil(t, cell)
		require.Equal(t, uint64(42), cell.Capacity)
	}
	require.Equal(t, 2, inner.resolve)

	cell, err := cached.ResolveCell(context.Background(), model.OutPoint{TxHash: model.Hash{0x02}})
	require.NoError(t, err)
	require.Nil(t, cell)

	cycles, err := cached.DryRun(context.Background(), &model.Transaction{})
	require.NoError(t, err)
	require.Equal(t, uint64(7), cycles)
	require.Equal(t, 1, inner.dryRuns)
}

func TestLiveCellKey(t *testing.T) {
	op := model.OutPoint{TxHash: model.Hash{0xab}, Index: 5}
	require.Equal(t, "livecell:"+op.TxHash.String()+":5", liveCellKey(op))
}
