package adapters

import (
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// HeaderAMQPDeliveryCount is set by RabbitMQ quorum queues on redelivery.
const HeaderAMQPDeliveryCount = "x-delivery-count"

// AMQP adapts RabbitMQ deliveries. The header table is copied with its
// native value types; the delivery tag is the lock token.
type AMQP struct{}

// ToRawMessage converts d. AMQP has no null body; an empty body stays empty.
func (AMQP) ToRawMessage(d amqp.Delivery) *message.RawMessage {
	raw := &message.RawMessage{
		ID:            d.MessageId,
		CorrelationID: d.CorrelationId,
		ContentType:   d.ContentType,
		Body:          d.Body,
		LockToken:     strconv.FormatUint(d.DeliveryTag, 10),
		Properties:    make(properties.Bag, len(d.Headers)+2),
	}
	if raw.Body == nil {
		raw.Body = []byte{}
	}
	for k, v := range d.Headers {
		raw.Properties[k] = v
	}
	if d.ReplyTo != "" {
		setDefault(raw.Properties, message.PropertyReplyTo, d.ReplyTo)
	}
	if count, ok := d.Headers[HeaderAMQPDeliveryCount]; ok {
		setDefault(raw.Properties, message.PropertyHandledCount, count)
	}
	if !d.Timestamp.IsZero() {
		setDefault(raw.Properties, message.PropertyTime, d.Timestamp)
	}
	return raw
}
