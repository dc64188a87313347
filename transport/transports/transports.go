// Package transports imports all built-in transports for auto-registration.
// Import this package to have all transports registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/drblury/ingress/transport/aws"
	_ "github.com/drblury/ingress/transport/channel"
	_ "github.com/drblury/ingress/transport/http"
	_ "github.com/drblury/ingress/transport/jetstream"
	_ "github.com/drblury/ingress/transport/kafka"
	_ "github.com/drblury/ingress/transport/nats"
	_ "github.com/drblury/ingress/transport/postgres"
	_ "github.com/drblury/ingress/transport/rabbitmq"
	_ "github.com/drblury/ingress/transport/sqlite"
)
