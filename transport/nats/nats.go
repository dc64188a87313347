// Package nats provides a NATS Core transport. Messages are converted by
// adapters.NATS.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Unmarshaler converts NATS messages through the NATS adapter.
type Unmarshaler struct {
	Adapter adapters.NATS
}

func (u Unmarshaler) Unmarshal(msg *nc.Msg) (*message.Message, error) {
	return adapters.EncodeWatermill(u.Adapter.ToRawMessage(msg)), nil
}

// Build creates a new core NATS subscriber. JetStream is served by the
// nats-jetstream transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return SubscriberFactory(
		nats.SubscriberConfig{
			URL:         cfg.GetNATSURL(),
			Unmarshaler: Unmarshaler{},
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		logger,
	)
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}
