package adapters

import (
	"fmt"

	wmmessage "github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// Metadata keys used to carry RawMessage fields through Watermill.
const (
	MetadataLockToken = "ingress_lock_token"
	MetadataNullBody  = "ingress_null_body"
)

// Watermill adapts Watermill messages. Metadata becomes string properties.
type Watermill struct {
	ContentTypeKey   string
	CorrelationIDKey string
}

// NewWatermill returns a Watermill adapter using the default header names.
func NewWatermill() Watermill {
	return Watermill{ContentTypeKey: HeaderContentType, CorrelationIDKey: HeaderCorrelationID}
}

// ToRawMessage converts msg. A nil payload is a null body. The lock token is
// the one carried in metadata by EncodeWatermill, or the message UUID.
func (w Watermill) ToRawMessage(msg *wmmessage.Message) *message.RawMessage {
	if msg == nil {
		return nil
	}
	raw := &message.RawMessage{
		ID:         msg.UUID,
		Body:       msg.Payload,
		LockToken:  msg.UUID,
		Properties: make(properties.Bag, len(msg.Metadata)),
	}
	for k, v := range msg.Metadata {
		switch k {
		case w.ContentTypeKey:
			raw.ContentType = v
		case w.CorrelationIDKey:
			raw.CorrelationID = v
		case MetadataLockToken:
			raw.LockToken = v
		case MetadataNullBody:
		default:
			raw.Properties[k] = v
		}
	}
	if msg.Metadata.Get(MetadataNullBody) == "true" {
		raw.Body = nil
	}
	return raw
}

// EncodeWatermill is the inverse of Watermill.ToRawMessage with the default
// header names. Property values are stored as text. Returns nil for nil.
func EncodeWatermill(raw *message.RawMessage) *wmmessage.Message {
	if raw == nil {
		return nil
	}
	msg := wmmessage.NewMessage(raw.ID, raw.Body)
	for k, v := range raw.Properties {
		msg.Metadata.Set(k, metadataString(v))
	}
	if raw.ContentType != "" {
		msg.Metadata.Set(HeaderContentType, raw.ContentType)
	}
	if raw.CorrelationID != "" {
		msg.Metadata.Set(HeaderCorrelationID, raw.CorrelationID)
	}
	if raw.LockToken != "" {
		msg.Metadata.Set(MetadataLockToken, raw.LockToken)
	}
	if raw.Body == nil {
		msg.Metadata.Set(MetadataNullBody, "true")
	}
	return msg
}

func metadataString(v any) string {
	if v == nil {
		return ""
	}
	if s, err := properties.Of(v).AsString(); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
