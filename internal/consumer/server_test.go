// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package consumer

import (
	"context"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedServerAndStream(t *testing.T) {
	srv, err := NewEmbeddedServer(ServerConfig{Port: -1, StoreDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	require.True(t, srv.IsRunning())

	ctx := context.Background()
	cfg := StreamConfig{Name: "RECOMMENDATION_EVENTS", MaxAge: time.Hour}

	// Create, then update in place.
	require.NoError(t, PrepareStream(ctx, srv.ClientURL(), cfg))
	cfg.MaxAge = 2 * time.Hour
	require.NoError(t, PrepareStream(ctx, srv.ClientURL(), cfg))

	nc, err := natsgo.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, cfg.Name)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, Topics, info.Config.Subjects)
	assert.Equal(t, 2*time.Hour, info.Config.MaxAge)

	_, err = js.Publish(ctx, TopicSwipe, []byte(`{"swiperId":"a"}`))
	require.NoError(t, err)
	info, err = stream.Info(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.State.Msgs)
}

func TestEnsureStreamRequiresName(t *testing.T) {
	_, err := EnsureStream(context.Background(), nil, StreamConfig{})
	assert.Error(t, err)
}
