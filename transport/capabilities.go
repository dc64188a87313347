package transport

// Capabilities describes what an inbound transport delivers to the
// normalizer. Use this to introspect behavior at runtime.
type Capabilities struct {
	// SupportsAck indicates the transport supports explicit message acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgment (redelivery).
	SupportsNack bool

	// SupportsOrdering indicates the transport guarantees message ordering.
	// When true, messages within a partition/stream are delivered in order.
	SupportsOrdering bool

	// SupportsTracing indicates the transport propagates tracing headers natively.
	SupportsTracing bool

	// SupportsNullBody indicates the broker can deliver a message without a
	// body (for example a Kafka tombstone).
	SupportsNullBody bool

	// SupportsDeliveryCount indicates the broker reports redeliveries, which
	// the adapter maps onto the handled count.
	SupportsDeliveryCount bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the transport.
	Name string
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
		SupportsNullBody: true,
	}

	// KafkaCapabilities for Apache Kafka transport.
	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsAck:      true,
		SupportsNack:     false,
		SupportsNullBody: true,
		MaxMessageSize:   1048576, // Default 1MB
	}

	// RabbitMQCapabilities for RabbitMQ/AMQP transport.
	RabbitMQCapabilities = Capabilities{
		Name:                  "rabbitmq",
		SupportsOrdering:      true,
		SupportsTracing:       true,
		SupportsAck:           true,
		SupportsNack:          true,
		SupportsDeliveryCount: true,
	}

	// NATSCapabilities for NATS Core transport.
	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1048576, // Default 1MB
	}

	// NATSJetStreamCapabilities for NATS JetStream transport.
	NATSJetStreamCapabilities = Capabilities{
		Name:                  "nats-jetstream",
		SupportsOrdering:      true,
		SupportsTracing:       true,
		SupportsAck:           true,
		SupportsNack:          true,
		SupportsDeliveryCount: true,
		MaxMessageSize:        1048576, // Default 1MB
	}

	// AWSCapabilities for AWS SQS transport.
	AWSCapabilities = Capabilities{
		Name:                  "aws",
		SupportsTracing:       true,
		SupportsAck:           true,
		SupportsNack:          true,
		SupportsDeliveryCount: true,
		MaxMessageSize:        262144, // 256KB
	}

	// AWSSNSCapabilities for SNS topics fanned into SQS queues.
	AWSSNSCapabilities = Capabilities{
		Name:                  "aws-sns",
		SupportsTracing:       true,
		SupportsAck:           true,
		SupportsNack:          true,
		SupportsDeliveryCount: true,
		MaxMessageSize:        262144, // 256KB
	}

	// HTTPCapabilities for the HTTP listener. The response waits for the ack;
	// a nacked request fails and redelivery is left to the caller.
	HTTPCapabilities = Capabilities{
		Name:             "http",
		SupportsTracing:  true,
		SupportsAck:      true,
		SupportsNullBody: true,
	}

	// PostgresCapabilities for the PostgreSQL queue table.
	PostgresCapabilities = Capabilities{
		Name:                  "postgres",
		SupportsOrdering:      true,
		SupportsAck:           true,
		SupportsNack:          true,
		SupportsNullBody:      true,
		SupportsDeliveryCount: true,
	}

	// SQLiteCapabilities for the SQLite queue table.
	SQLiteCapabilities = Capabilities{
		Name:                  "sqlite",
		SupportsOrdering:      true,
		SupportsAck:           true,
		SupportsNack:          true,
		SupportsNullBody:      true,
		SupportsDeliveryCount: true,
	}
)
