package subscriber

import (
	"context"
	"fmt"
	"time"

	"txbench/events"
	pubsub2 "txbench/pubsub"

	"cloud.google.com/go/pubsub"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one decoded workbench event. Payload holds one of the events.Tx*
// structs.
type Event struct {
	Name        string    `json:"event"`
	PublishedAt time.Time `json:"published_at"`
	Payload     any       `json:"payload"`
}

func Decode(msg *pubsub.Message) (Event, error) {
	name := msg.Attributes[pubsub2.EventAttribute]

	var payload any
	switch name {
	case events.TopicTxStaged:
		payload = &events.TxStaged{}
	case events.TopicTxSigned:
		payload = &events.TxSigned{}
	case events.TopicTxRemoved:
		payload = &events.TxRemoved{}
	case events.TopicTxVerified:
		payload = &events.TxVerified{}
	default:
		return Event{}, fmt.Errorf("unknown event %q", name)
	}

	if err := json.Unmarshal(msg.Data, payload); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return Event{Name: name, PublishedAt: msg.PublishTime, Payload: payload}, nil
}

// Watch delivers every event received on sub to fn until ctx is done.
// Undecodable messages are acked and dropped. fn may be called concurrently.
func Watch(
	ctx context.Context,
	sub *pubsub.Subscription,
	logger zerolog.Logger,
	fn func(Event),
) error {
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		defer msg.Ack()

		ev, err := Decode(msg)
		if err != nil {
			logger.Warn().Err(err).Str("id", msg.ID).Msg("dropping message")
			return
		}
		fn(ev)
	})
}
