package adapters

import (
	"fmt"

	"github.com/IBM/sarama"

	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// Kafka adapts sarama consumer messages. Header values become string
// properties; a record key becomes the partition key unless a header already
// carries one. The lock token is "topic/partition/offset".
type Kafka struct{}

// ToRawMessage converts msg. A tombstone record has a null body.
func (Kafka) ToRawMessage(msg *sarama.ConsumerMessage) *message.RawMessage {
	if msg == nil {
		return nil
	}
	raw := &message.RawMessage{
		Body:       msg.Value,
		LockToken:  KafkaLockToken(msg),
		Properties: make(properties.Bag, len(msg.Headers)+1),
	}
	var messageID, watermillUUID string
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		key, value := string(h.Key), string(h.Value)
		switch key {
		case HeaderContentType:
			raw.ContentType = value
		case HeaderCorrelationID:
			raw.CorrelationID = value
		case HeaderMessageID:
			messageID = value
		case watermillUUIDHeader:
			watermillUUID = value
		default:
			raw.Properties[key] = value
		}
	}
	raw.ID = firstNonEmpty(messageID, watermillUUID, raw.LockToken)
	if msg.Key != nil {
		setDefault(raw.Properties, message.PropertyPartitionKey, string(msg.Key))
	}
	return raw
}

// KafkaLockToken identifies a record by its position.
func KafkaLockToken(msg *sarama.ConsumerMessage) string {
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
