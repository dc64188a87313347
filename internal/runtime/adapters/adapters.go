// Package adapters converts broker-native messages into message.RawMessage.
//
// Each broker gets one adapter; the normalizer only ever sees RawMessage.
// Adapters copy native metadata into the property bag without interpreting
// it, except for a few broker conventions (delivery counts, partition keys)
// that map onto normalized properties when the producer did not set them.
package adapters

import (
	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// Adapter converts a broker-native message. A nil native message yields nil.
type Adapter[T any] interface {
	ToRawMessage(T) *message.RawMessage
}

// Func adapts a function to Adapter.
type Func[T any] func(T) *message.RawMessage

// ToRawMessage calls f.
func (f Func[T]) ToRawMessage(m T) *message.RawMessage { return f(m) }

// Header names shared by the adapters.
const (
	HeaderContentType   = "content-type"
	HeaderCorrelationID = "correlation_id"
	HeaderMessageID     = "message_id"

	// watermillUUIDHeader is where Watermill's Kafka and NATS marshalers put
	// the message UUID.
	watermillUUIDHeader = "_watermill_message_uuid"
)

// setDefault stores value under key unless the producer already set it.
func setDefault(props properties.Bag, key string, value any) {
	if _, ok := props[key]; !ok {
		props[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
