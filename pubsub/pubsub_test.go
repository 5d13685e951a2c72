package pubsub2

import (
	"context"
	"testing"

	"txbench/events"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*PubSubClient, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	c, err := NewPubSubClientWithOptions(context.Background(), "txbench-test", "dev-", zerolog.Nop(), option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestPublishTxEvents(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestClient(t)

	require.NoError(t, c.EnsureTopics(ctx))
	// idempotent
	require.NoError(t, c.EnsureTopics(ctx))

	require.NoError(t, c.PublishTxStaged(ctx, events.TxStaged{TxHash: "0x01", Inputs: 2, Signed: true}))
	require.NoError(t, c.PublishTxVerified(ctx, events.TxVerified{TxHash: "0x01", Valid: true, Cycles: 1000}))

	msgs := srv.Messages()
	require.Len(t, msgs, 2)

	var payloads []string
	for _, m := range msgs {
		payloads = append(payloads, string(m.Data))
	}
	require.Contains(t, payloads, `{"tx_hash":"0x01","deps":0,"inputs":2,"outputs":0,"signed":true}`)
	require.Contains(t, payloads, `{"tx_hash":"0x01","valid":true,"cycles":1000}`)
}

func TestPublishUnknownTopic(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.PublishTxRemoved(context.Background(), events.TxRemoved{TxHash: "0x02"})
	require.Error(t, err)
}
