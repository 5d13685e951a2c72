package pubsub2

import (
	"context"

	"txbench/events"
)

func (p *PubSubClient) PublishTxStaged(
	ctx context.Context,
	msg events.TxStaged,
) error {
	return p.PublishJSON(ctx, events.TopicTxStaged, msg)
}

func (p *PubSubClient) PublishTxSigned(
	ctx context.Context,
	msg events.TxSigned,
) error {
	return p.PublishJSON(ctx, events.TopicTxSigned, msg)
}

func (p *PubSubClient) PublishTxRemoved(
	ctx context.Context,
	msg events.TxRemoved,
) error {
	return p.PublishJSON(ctx, events.TopicTxRemoved, msg)
}

func (p *PubSubClient) PublishTxVerified(
	ctx context.Context,
	msg events.TxVerified,
) error {
	return p.PublishJSON(ctx, events.TopicTxVerified, msg)
}
