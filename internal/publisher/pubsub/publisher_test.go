package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakeServer(t *testing.T) (*pstest.Server, []option.ClientOption) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck

	return srv, []option.ClientOption{option.WithGRPCConn(conn)}
}

func TestPublishSendsJSON(t *testing.T) {
	ctx := context.Background()
	srv, opts := newFakeServer(t)

	admin, err := pubsub.NewClient(ctx, "demo", opts...)
	require.NoError(t, err)
	defer admin.Close() //nolint:errcheck
	_, err = admin.CreateTopic(ctx, "profiles")
	require.NoError(t, err)

	pub, err := New(ctx, "demo", opts...)
	require.NoError(t, err)

	id, err := pub.Publish(ctx, "profiles", map[string]any{"company_id": 7, "enriched": true})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	require.EqualValues(t, 7, payload["company_id"])
	require.Equal(t, true, payload["enriched"])
}

func TestPublishUnknownTopic(t *testing.T) {
	ctx := context.Background()
	_, opts := newFakeServer(t)

	pub, err := New(ctx, "demo", opts...)
	require.NoError(t, err)
	defer pub.Close() //nolint:errcheck

	_, err = pub.Publish(ctx, "missing", "payload")
	require.Error(t, err)
}

func TestPublishValidation(t *testing.T) {
	_, err := New(context.Background(), "")
	require.Error(t, err)

	var nilPub *Publisher
	_, err = nilPub.Publish(context.Background(), "t", "p")
	require.Error(t, err)
	require.NoError(t, nilPub.Close())

	_, opts := newFakeServer(t)
	pub, err := New(context.Background(), "demo", opts...)
	require.NoError(t, err)
	defer pub.Close() //nolint:errcheck
	_, err = pub.Publish(context.Background(), "", "p")
	require.Error(t, err)
	_, err = pub.Publish(context.Background(), "profiles", func() {})
	require.ErrorContains(t, err, "marshal payload")
}
