package adapters

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// SQS adapts Amazon SQS messages. Message attributes keep their data type:
// String as string, Number as int64 or float64, Binary as []byte. The receipt
// handle is the lock token.
//
// ApproximateReceiveCount counts the current receive, so one less is stored
// as the handled count. A FIFO MessageGroupId becomes the partition key.
type SQS struct{}

// ToRawMessage converts msg. A message without a body has a null body.
func (SQS) ToRawMessage(msg *types.Message) *message.RawMessage {
	if msg == nil {
		return nil
	}
	raw := &message.RawMessage{
		ID:         aws.ToString(msg.MessageId),
		LockToken:  aws.ToString(msg.ReceiptHandle),
		Properties: make(properties.Bag, len(msg.MessageAttributes)+2),
	}
	if msg.Body != nil {
		raw.Body = []byte(*msg.Body)
	}
	for k, attr := range msg.MessageAttributes {
		v, ok := sqsAttributeValue(attr)
		if !ok {
			continue
		}
		switch k {
		case HeaderContentType:
			raw.ContentType = aws.ToString(attr.StringValue)
		case HeaderCorrelationID:
			raw.CorrelationID = aws.ToString(attr.StringValue)
		default:
			raw.Properties[k] = v
		}
	}
	if count, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil && count > 0 {
		setDefault(raw.Properties, message.PropertyHandledCount, count-1)
	}
	if group := msg.Attributes[string(types.MessageSystemAttributeNameMessageGroupId)]; group != "" {
		setDefault(raw.Properties, message.PropertyPartitionKey, group)
	}
	return raw
}

func sqsAttributeValue(attr types.MessageAttributeValue) (any, bool) {
	dataType := aws.ToString(attr.DataType)
	base, _, _ := strings.Cut(dataType, ".")
	switch base {
	case "Binary":
		if attr.BinaryValue == nil {
			return nil, false
		}
		return attr.BinaryValue, true
	case "Number":
		s := aws.ToString(attr.StringValue)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		return s, true
	default:
		if attr.StringValue == nil {
			return nil, false
		}
		return *attr.StringValue, true
	}
}
