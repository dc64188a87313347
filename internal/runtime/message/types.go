package message

import (
	"strconv"
	"strings"
)

// MessageType tells the dispatch pipeline how to route a message.
type MessageType int

const (
	MessageTypeNone MessageType = iota
	MessageTypeCommand
	MessageTypeEvent
	MessageTypeDocument
	MessageTypeQuit
	MessageTypeUnacceptable
)

var messageTypeNames = map[MessageType]string{
	MessageTypeNone:         "MT_NONE",
	MessageTypeCommand:      "MT_COMMAND",
	MessageTypeEvent:        "MT_EVENT",
	MessageTypeDocument:     "MT_DOCUMENT",
	MessageTypeQuit:         "MT_QUIT",
	MessageTypeUnacceptable: "MT_UNACCEPTABLE",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "MT_NONE"
}

// ParseMessageType matches case-insensitively with or without the MT_ prefix,
// so "event", "MT_EVENT" and "mt_event" all resolve to MessageTypeEvent. The
// numeric value of a defined type ("2") is accepted too; undefined numbers are
// not.
func ParseMessageType(s string) (MessageType, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return MessageTypeNone, false
	}
	if n, err := strconv.Atoi(name); err == nil {
		if _, known := messageTypeNames[MessageType(n)]; known {
			return MessageType(n), true
		}
		return MessageTypeNone, false
	}
	if !strings.HasPrefix(name, "MT_") {
		name = "MT_" + name
	}
	for t, candidate := range messageTypeNames {
		if candidate == name {
			return t, true
		}
	}
	return MessageTypeNone, false
}

// RoutingKey names a topic.
type RoutingKey string

func (k RoutingKey) String() string { return string(k) }

// IsEmpty reports whether no topic is set.
func (k RoutingKey) IsEmpty() bool { return strings.TrimSpace(string(k)) == "" }

// CloudEventsType is the CloudEvents "type" attribute.
type CloudEventsType string

func (t CloudEventsType) String() string { return string(t) }

// PartitionKey carries a partitioning hint. The zero value is the empty
// partition key, which is distinct from a key explicitly set to "".
type PartitionKey struct {
	value   string
	present bool
}

// EmptyPartitionKey means the producer supplied no partition key.
var EmptyPartitionKey = PartitionKey{}

// NewPartitionKey returns a present key, even when value is "".
func NewPartitionKey(value string) PartitionKey {
	return PartitionKey{value: value, present: true}
}

// IsEmpty reports whether the key is the empty partition key sentinel.
func (k PartitionKey) IsEmpty() bool { return !k.present }

func (k PartitionKey) String() string { return k.value }
