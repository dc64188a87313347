// Package message defines the broker-agnostic message produced by inbound
// normalization, and the raw shape broker adapters hand to it.
package message

import (
	"net/url"
	"time"

	idspkg "github.com/drblury/ingress/internal/runtime/ids"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// DefaultSourceURI backs the source and data schema headers when the producer
// supplied none, so CloudEvents consumers always see an absolute URI.
const DefaultSourceURI = "http://goparamore.io"

// ContentTypeTextPlain is used when the broker message carries no content type.
const ContentTypeTextPlain = "text/plain"

// Reserved bag keys. A raw property with the same name never overrides the
// value the normalizer stores under these keys.
const (
	BagKeyLockToken    = "LockToken"
	BagKeyHandledCount = "HandledCount"
	BagKeyBaggage      = "baggage"
)

// IsReservedBagKey reports whether key is owned by the normalizer.
func IsReservedBagKey(key string) bool {
	switch key {
	case BagKeyLockToken, BagKeyHandledCount, BagKeyBaggage:
		return true
	}
	return false
}

// RawMessage is a broker message adapted to a common shape. A nil body means
// the broker delivered no body at all.
type RawMessage struct {
	ID            string
	CorrelationID string
	Body          []byte
	ContentType   string
	LockToken     string
	Properties    properties.Bag
}

// Bag holds header values with no first-class field.
type Bag map[string]any

// Header is the structured part of a canonical message.
type Header struct {
	ID            string
	Topic         RoutingKey
	MessageType   MessageType
	Source        *url.URL
	Type          CloudEventsType
	TimeStamp     time.Time
	CorrelationID string
	ReplyTo       RoutingKey
	ContentType   string
	HandledCount  int
	DataSchema    *url.URL
	Subject       string
	Delayed       time.Duration
	TraceParent   TraceParent
	TraceState    TraceState
	Baggage       Baggage
	PartitionKey  PartitionKey
	Bag           Bag
}

// Body is the payload text of a canonical message.
type Body struct {
	Bytes       []byte
	ContentType string
}

// Value returns the body as text.
func (b Body) Value() string { return string(b.Bytes) }

// Message is the canonical, broker-agnostic message.
type Message struct {
	Header Header
	Body   Body
}

// IsFailure reports whether m is the sentinel returned for a null delivery.
func (m Message) IsFailure() bool {
	return m.Header.MessageType == MessageTypeUnacceptable
}

// DefaultSource returns a fresh copy of the placeholder URI.
func DefaultSource() *url.URL {
	u, _ := url.Parse(DefaultSourceURI)
	return u
}

// FailureMessage builds the sentinel for a delivery that carried no message.
// Only the topic is meaningful; the body is empty.
func FailureMessage(topic RoutingKey) Message {
	now := time.Now().UTC()
	return Message{
		Header: Header{
			ID:           idspkg.CreateULIDAt(now),
			Topic:        topic,
			MessageType:  MessageTypeUnacceptable,
			Source:       DefaultSource(),
			TimeStamp:    now,
			ContentType:  ContentTypeTextPlain,
			DataSchema:   DefaultSource(),
			Baggage:      Baggage{},
			PartitionKey: EmptyPartitionKey,
			Bag:          Bag{},
		},
		Body: Body{Bytes: []byte{}, ContentType: ContentTypeTextPlain},
	}
}
