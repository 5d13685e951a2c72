package pubsub2

import (
	"context"
	"os"

	"txbench/events"

	"cloud.google.com/go/pubsub"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventAttribute carries the unprefixed event name on every message.
const EventAttribute = "event"

type PubSubClient struct {
	Client *pubsub.Client
	prefix string
	logger zerolog.Logger
}

func NewPubSubClient(ctx context.Context, projectID, topicPrefix string, logger zerolog.Logger) (*PubSubClient, error) {
	logger = logger.With().Str("component", "pubsub").Logger()

	emulatorHost := os.Getenv("PUBSUB_EMULATOR_HOST")

	// the emulator needs no credentials
	if emulatorHost != "" {
		logger.Info().Str("host", emulatorHost).Msg("using pubsub emulator")
		return NewPubSubClientWithOptions(ctx, projectID, topicPrefix, logger,
			option.WithoutAuthentication(),
			option.WithEndpoint(emulatorHost),
		)
	}

	logger.Info().Msg("using Google Cloud Pub/Sub")
	return NewPubSubClientWithOptions(ctx, projectID, topicPrefix, logger)
}

func NewPubSubClientWithOptions(
	ctx context.Context,
	projectID, topicPrefix string,
	logger zerolog.Logger,
	opts ...option.ClientOption,
) (*PubSubClient, error) {
	c, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return &PubSubClient{Client: c, prefix: topicPrefix, logger: logger}, nil
}

func (p *PubSubClient) Close() error {
	return p.Client.Close()
}

func (p *PubSubClient) topicName(name string) string {
	return p.prefix + name
}

// EnsureTopics creates the workbench topics that do not exist yet.
func (p *PubSubClient) EnsureTopics(ctx context.Context) error {
	for _, name := range []string{
		events.TopicTxStaged,
		events.TopicTxSigned,
		events.TopicTxRemoved,
		events.TopicTxVerified,
	} {
		topic := p.Client.Topic(p.topicName(name))
		ok, err := topic.Exists(ctx)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := p.Client.CreateTopic(ctx, p.topicName(name)); err != nil {
			return err
		}
		p.logger.Debug().Str("topic", p.topicName(name)).Msg("created topic")
	}
	return nil
}

// Subscription returns the named subscription to topicName, creating it when
// missing.
func (p *PubSubClient) Subscription(ctx context.Context, name, topicName string) (*pubsub.Subscription, error) {
	sub := p.Client.Subscription(name)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return sub, nil
	}
	return p.Client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
		Topic: p.Client.Topic(p.topicName(topicName)),
	})
}

func (p *PubSubClient) PublishJSON(ctx context.Context, topicName string, data any) error {
	topic := p.Client.Topic(p.topicName(topicName))
	defer topic.Stop()

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	res := topic.Publish(ctx, &pubsub.Message{
		Data:       raw,
		Attributes: map[string]string{EventAttribute: topicName},
	})

	id, err := res.Get(ctx)
	if err != nil {
		return err
	}

	p.logger.Debug().Str("id", id).Str("topic", p.topicName(topicName)).Msg("published message")
	return nil
}
