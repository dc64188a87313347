// Package transport builds the inbound Watermill subscriber for the configured
// broker. Each transport lives in its own sub-package and registers itself
// with the registry; import transport/transports to register all of them.
//
// Subscribers produced here deliver Watermill messages whose metadata was
// filled by the broker's adapter, so adapters.Watermill recovers the lock
// token, content type and correlation id regardless of the broker.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Builder creates the subscriber for a transport.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (message.Subscriber, error)

// Config provides the configuration values needed by transports.
// This interface allows transports to access only the config they need
// without depending on the full config package.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	// RabbitMQ
	GetRabbitMQURL() string
	GetRabbitMQQueueSuffix() string

	// NATS
	GetNATSURL() string

	// AWS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string

	// HTTP
	GetHTTPServerAddress() string

	// PostgreSQL
	GetPostgresURL() string
	GetPostgresSchema() string

	// SQLite
	GetSQLitePath() string
}
