package normalizer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/drblury/ingress/internal/runtime/diagnostics"
	errspkg "github.com/drblury/ingress/internal/runtime/errors"
	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// fields extracts named header fields from the application properties. Each
// method records exactly one diagnostic when it falls back to its default.
type fields struct {
	props properties.Bag
	rec   *diagnostics.Recorder
}

func (f fields) lookup(key string) (properties.Value, bool) {
	v, ok := f.props.Lookup(key)
	if !ok {
		f.rec.NotFound(key)
	}
	return v, ok
}

func (f fields) text(key string) string {
	v, ok := f.lookup(key)
	if !ok {
		return ""
	}
	s, err := v.AsString()
	if err != nil {
		f.rec.ParseFailed(key, err)
		return ""
	}
	return s
}

func (f fields) uri(key string) *url.URL {
	v, ok := f.lookup(key)
	if !ok {
		return message.DefaultSource()
	}
	u, err := v.AsURI()
	if err != nil {
		f.rec.ParseFailed(key, err)
		return message.DefaultSource()
	}
	return u
}

func (f fields) timestamp(now func() time.Time) time.Time {
	v, ok := f.lookup(message.PropertyTime)
	if !ok {
		return now().UTC()
	}
	t, err := v.AsTime()
	if err != nil {
		f.rec.ParseFailed(message.PropertyTime, err)
		return now().UTC()
	}
	return t
}

func (f fields) messageType() message.MessageType {
	v, ok := f.lookup(message.PropertyMessageType)
	if !ok {
		return message.MessageTypeEvent
	}
	s, err := v.AsString()
	if err != nil {
		f.rec.ParseFailed(message.PropertyMessageType, err)
		return message.MessageTypeEvent
	}
	t, known := message.ParseMessageType(s)
	// The unacceptable type marks the failure sentinel and cannot be claimed
	// by a producer.
	if !known || t == message.MessageTypeUnacceptable {
		f.rec.ParseFailed(message.PropertyMessageType, fmt.Errorf("%w: %q", errspkg.ErrPropertyUnknownKind, s))
		return message.MessageTypeEvent
	}
	return t
}

// handledCount reports whether the property was present, even when its value
// was rejected.
func (f fields) handledCount() (int, bool) {
	v, ok := f.lookup(message.PropertyHandledCount)
	if !ok {
		return 0, false
	}
	n, err := v.AsInt()
	if err != nil {
		f.rec.ParseFailed(message.PropertyHandledCount, err)
		return 0, true
	}
	if n < 0 {
		f.rec.ParseFailed(message.PropertyHandledCount, fmt.Errorf("%w: %d", errspkg.ErrPropertyNegative, n))
		return 0, true
	}
	return n, true
}

func (f fields) partitionKey() message.PartitionKey {
	v, ok := f.lookup(message.PropertyPartitionKey)
	if !ok {
		return message.EmptyPartitionKey
	}
	s, err := v.AsString()
	if err != nil {
		f.rec.ParseFailed(message.PropertyPartitionKey, err)
		return message.EmptyPartitionKey
	}
	return message.NewPartitionKey(s)
}

// baggage skips malformed members individually; only a value that is not
// text at all counts as a parse failure.
func (f fields) baggage() (message.Baggage, bool) {
	v, ok := f.lookup(message.PropertyBaggage)
	if !ok {
		return message.Baggage{}, false
	}
	s, err := v.AsString()
	if err != nil {
		f.rec.ParseFailed(message.PropertyBaggage, err)
		return message.Baggage{}, true
	}
	b, _ := message.ParseBaggage(s)
	return b, true
}

func (f fields) contentType(raw string) string {
	if strings.TrimSpace(raw) == "" {
		f.rec.NotFound(message.FieldContentType)
		return message.ContentTypeTextPlain
	}
	return raw
}
