package adapters

import (
	"encoding/json"
	"strconv"

	"github.com/drblury/ingress/internal/runtime/jsoncodec"
	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// QueueRow is a row claimed from a database queue table.
type QueueRow struct {
	ID      int64
	UUID    string
	Payload []byte
	// Metadata is a JSON object of message properties.
	Metadata   []byte
	RetryCount int
}

// SQL adapts database queue rows. Metadata values keep their JSON kind, with
// whole numbers as int64. The row id is the lock token and the retry count
// is the handled count when the producer did not set one.
type SQL struct{}

// ToRawMessage converts row. A NULL payload is a null body. Metadata that is
// not a JSON object is ignored.
func (SQL) ToRawMessage(row *QueueRow) *message.RawMessage {
	if row == nil {
		return nil
	}
	raw := &message.RawMessage{
		Body:       row.Payload,
		LockToken:  strconv.FormatInt(row.ID, 10),
		Properties: make(properties.Bag),
	}
	var metadata map[string]any
	if len(row.Metadata) > 0 {
		_ = jsoncodec.UnmarshalNumbers(row.Metadata, &metadata)
	}
	var messageID string
	for k, v := range metadata {
		if n, ok := v.(json.Number); ok {
			v = numberValue(n)
		}
		switch k {
		case HeaderContentType:
			raw.ContentType, _ = v.(string)
		case HeaderCorrelationID:
			raw.CorrelationID, _ = v.(string)
		case HeaderMessageID:
			messageID, _ = v.(string)
		default:
			raw.Properties[k] = v
		}
	}
	if row.RetryCount > 0 {
		setDefault(raw.Properties, message.PropertyHandledCount, row.RetryCount)
	}
	raw.ID = firstNonEmpty(messageID, row.UUID)
	return raw
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
