// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package consumer

import (
	"context"
	"testing"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func natsMessage(msgID string, payload string) *natsgo.Msg {
	hdr := natsgo.Header{}
	hdr.Set(wmNats.WatermillUUIDHdr, "wm-uuid")
	if msgID != "" {
		hdr.Set(natsgo.MsgIdHdr, msgID)
	}
	return &natsgo.Msg{Subject: TopicProfileUpdate, Data: []byte(payload), Header: hdr}
}

func TestMessageIDUnmarshalerKeepsPublisherID(t *testing.T) {
	msg, err := messageIDUnmarshaler{}.Unmarshal(natsMessage("msg-1", `{"userId":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.Metadata.Get(MessageIDKey))
	assert.Equal(t, "wm-uuid", msg.UUID)
	assert.Equal(t, `{"userId":"a"}`, string(msg.Payload))

	plain, err := messageIDUnmarshaler{}.Unmarshal(natsMessage("", `{"userId":"a"}`))
	require.NoError(t, err)
	assert.Empty(t, plain.Metadata.Get(MessageIDKey), "core NATS message without an id")
}

func TestHandlerSkipsRedeliveryDecodedFromNATS(t *testing.T) {
	upd := &fakeUpdater{}
	handle := NewHandler(upd, HandlerConfig{}, zerolog.Nop()).Handle(TopicProfileUpdate)

	for range 2 {
		msg, err := messageIDUnmarshaler{}.Unmarshal(natsMessage("msg-1", `{"userId":"a"}`))
		require.NoError(t, err)
		require.NoError(t, handle(msg))
	}
	assert.Len(t, upd.Calls(), 1, "second delivery of msg-1 is skipped")
}

func TestMessageIDFromJetStream(t *testing.T) {
	srv, err := NewEmbeddedServer(ServerConfig{Port: -1, StoreDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	cfg := StreamConfig{Name: "RECOMMENDATION_EVENTS", MaxAge: time.Hour}
	require.NoError(t, PrepareStream(context.Background(), srv.ClientURL(), cfg))

	nc, err := natsgo.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	js, err := nc.JetStream()
	require.NoError(t, err)

	_, err = js.Publish(TopicSwipe, []byte(`{"swiperId":"a"}`))
	require.NoError(t, err)
	_, err = js.Publish(TopicSwipe, []byte(`{"swiperId":"b"}`), natsgo.MsgId("swipe-7"))
	require.NoError(t, err)

	sub, err := js.PullSubscribe(TopicSwipe, "message-id-test", natsgo.BindStream(cfg.Name))
	require.NoError(t, err)
	msgs, err := sub.Fetch(2, natsgo.MaxWait(5*time.Second))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var ids []string
	for _, m := range msgs {
		msg, err := messageIDUnmarshaler{}.Unmarshal(m)
		require.NoError(t, err)
		ids = append(ids, msg.Metadata.Get(MessageIDKey))
		require.NoError(t, m.Ack())
	}
	assert.Equal(t, []string{cfg.Name + ":1", "swipe-7"}, ids)
}
