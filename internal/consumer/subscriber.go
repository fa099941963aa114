// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package consumer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// SubscriberConfig holds JetStream consumer settings shared by all topics.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWait          time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// NATSSubscriberFactory returns a factory creating one durable JetStream
// subscriber per topic, bound to the shared stream.
func NATSSubscriberFactory(cfg SubscriberConfig, logger watermill.LoggerAdapter) func(topic string) (message.Subscriber, error) {
	return func(topic string) (message.Subscriber, error) {
		return NewNATSSubscriber(cfg, topic, logger)
	}
}

// NewNATSSubscriber creates the durable subscriber for topic. Durable and
// queue names are suffixed with the topic so each subject has its own
// consumer on the stream.
func NewNATSSubscriber(cfg SubscriberConfig, topic string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.SubscribersCount <= 0 {
		cfg.SubscribersCount = 1
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("affinity-" + consumerName("", topic)),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, watermill.LogFields{"topic": topic})
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{"topic": topic, "url": nc.ConnectedUrl()})
		}),
	}

	durable := consumerName(cfg.DurableName, topic)
	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWait),
		natsgo.DeliverNew(),
		natsgo.BindStream(cfg.StreamName),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: consumerName(cfg.QueueGroup, topic),
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      messageIDUnmarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    durable,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create subscriber for %s: %w", topic, err)
	}
	return sub, nil
}

// MessageIDKey is the metadata key carrying the broker's id for a message:
// the publisher's Nats-Msg-Id, or the stream sequence when none was set.
// Redeliveries of one message carry the same id.
const MessageIDKey = "affinity_message_id"

// messageIDUnmarshaler decodes like wmNats.NATSMarshaler, which drops the
// Nats-Msg-Id header, and records the id under MessageIDKey.
type messageIDUnmarshaler struct{}

func (messageIDUnmarshaler) Unmarshal(natsMsg *natsgo.Msg) (*message.Message, error) {
	msg, err := (&wmNats.NATSMarshaler{}).Unmarshal(natsMsg)
	if err != nil {
		return nil, err
	}
	if id := brokerMessageID(natsMsg); id != "" {
		msg.Metadata.Set(MessageIDKey, id)
	}
	return msg, nil
}

func brokerMessageID(natsMsg *natsgo.Msg) string {
	if id := natsMsg.Header.Get(natsgo.MsgIdHdr); id != "" {
		return id
	}
	// Metadata fails for messages that did not come from JetStream.
	if md, err := natsMsg.Metadata(); err == nil {
		return fmt.Sprintf("%s:%d", md.Stream, md.Sequence.Stream)
	}
	return ""
}

// consumerName joins prefix and topic into a valid JetStream consumer name;
// dots and wildcards are not allowed there.
func consumerName(prefix, topic string) string {
	name := strings.NewReplacer(".", "-", "*", "all", ">", "rest", " ", "-").Replace(topic)
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}
