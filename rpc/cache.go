package rpc

import (
	"context"
	"fmt"
	"time"

	model "txbench/Model"
	"txbench/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Remote is what the workbench needs from the node.
type Remote interface {
	DryRun(ctx context.Context, tx *model.Transaction) (uint64, error)
	ResolveCell(ctx context.Context, op model.OutPoint) (*model.CellOutput, error)
}

// CachedRemote keeps live cells in Redis for ttl. Redis is only a cache: any
// Redis failure falls through to the inner remote.
type CachedRemote struct {
	inner  Remote
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedRemote(inner Remote, addr string, ttl time.Duration, logger zerolog.Logger) *CachedRemote {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: time.Second,
		MaxRetries:  -1,
	})
	return &CachedRemote{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "livecell-cache").Logger(),
	}
}

func (r *CachedRemote) Close() error {
	return r.rdb.Close()
}

func liveCellKey(op model.OutPoint) string {
	return fmt.Sprintf("livecell:%s:%d", op.TxHash, op.Index)
}

func (r *CachedRemote) DryRun(ctx context.Context, tx *model.Transaction) (uint64, error) {
	return r.inner.DryRun(ctx, tx)
}

func (r *CachedRemote) ResolveCell(ctx context.Context, op model.OutPoint) (*model.CellOutput, error) {
	key := liveCellKey(op)

	// ----------------------------------
	// 1) Redis
	// ----------------------------------
	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		cell, derr := model.DecodeCellOutput(raw)
		if derr == nil {
			metrics.LiveCellCacheTotal.WithLabelValues("hit").Inc()
			return &cell, nil
		}
		r.logger.Warn().Err(derr).Str("key", key).Msg("dropping undecodable cache entry")
		_ = r.rdb.Del(ctx, key).Err()
		metrics.LiveCellCacheTotal.WithLabelValues("miss").Inc()
	case err == redis.Nil:
		metrics.LiveCellCacheTotal.WithLabelValues("miss").Inc()
	default:
		r.logger.Debug().Err(err).Str("key", key).Msg("redis get failed")
		metrics.LiveCellCacheTotal.WithLabelValues("error").Inc()
	}

	// ----------------------------------
	// 2) Node
	// ----------------------------------
	cell, err := r.inner.ResolveCell(ctx, op)
	if err != nil || cell == nil {
		return cell, err
	}

	if err := r.rdb.Set(ctx, key, model.EncodeCellOutput(*cell), r.ttl).Err(); err != nil {
		r.logger.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
	return cell, nil
}

// Ensure interface compliance.
var (
	_ Remote = (*Client)(nil)
	_ Remote = (*CachedRemote)(nil)
)
