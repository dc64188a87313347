// Package kafka provides a Kafka transport. Records are converted by
// adapters.Kafka, so record keys and offsets survive as partition key and
// lock token.
package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register adds the Kafka transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// Unmarshaler turns consumed records into Watermill messages through the
// Kafka adapter.
type Unmarshaler struct {
	Adapter adapters.Kafka
}

func (u Unmarshaler) Unmarshal(msg *sarama.ConsumerMessage) (*message.Message, error) {
	return adapters.EncodeWatermill(u.Adapter.ToRawMessage(msg)), nil
}

// Build creates a new Kafka subscriber.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	saramaCfg := kafka.DefaultSaramaSubscriberConfig()
	if id := cfg.GetKafkaClientID(); id != "" {
		saramaCfg.ClientID = id
	}

	return SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               cfg.GetKafkaBrokers(),
			Unmarshaler:           Unmarshaler{},
			ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
			OverwriteSaramaConfig: saramaCfg,
		},
		logger,
	)
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
