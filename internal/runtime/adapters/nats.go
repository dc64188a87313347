package adapters

import (
	"github.com/nats-io/nats.go"

	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// NATS adapts core NATS and JetStream messages. Only the first value of a
// multi-valued header is kept. The reply subject, which JetStream uses for
// acknowledgements, is the lock token.
type NATS struct{}

// ToRawMessage converts msg. Without headers or data the body is null.
func (NATS) ToRawMessage(msg *nats.Msg) *message.RawMessage {
	if msg == nil {
		return nil
	}
	raw := &message.RawMessage{
		Body:       msg.Data,
		LockToken:  msg.Reply,
		Properties: make(properties.Bag, len(msg.Header)),
	}
	var messageID, watermillUUID, jetstreamID string
	for k, values := range msg.Header {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch k {
		case HeaderContentType, "Content-Type":
			raw.ContentType = value
		case HeaderCorrelationID:
			raw.CorrelationID = value
		case HeaderMessageID:
			messageID = value
		case watermillUUIDHeader:
			watermillUUID = value
		case nats.MsgIdHdr:
			jetstreamID = value
			raw.Properties[k] = value
		default:
			raw.Properties[k] = value
		}
	}
	raw.ID = firstNonEmpty(messageID, watermillUUID, jetstreamID)
	return raw
}
