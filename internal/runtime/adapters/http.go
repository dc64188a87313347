package adapters

import (
	"io"
	"net/http"
	"strings"

	"github.com/drblury/ingress/internal/runtime/jsoncodec"
	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/properties"
)

// Header names set by Watermill's HTTP publisher.
const (
	HeaderWatermillUUID     = "Message-Uuid"
	HeaderWatermillMetadata = "Message-Metadata"
)

// cloudEventsHeaderPrefix marks CloudEvents binary-mode attributes.
const cloudEventsHeaderPrefix = "ce-"

// requestHeaders describe the HTTP exchange rather than the message.
var requestHeaders = map[string]bool{
	"accept":            true,
	"accept-encoding":   true,
	"connection":        true,
	"content-length":    true,
	"transfer-encoding": true,
	"user-agent":        true,
}

// knownProperties maps lowercased names to the exact property keys the
// normalizer reads, since HTTP header names are case-insensitive.
var knownProperties = func() map[string]string {
	keys := []string{
		message.PropertyMessageType,
		message.PropertyHandledCount,
		message.PropertyReplyTo,
		message.PropertySource,
		message.PropertyType,
		message.PropertyTime,
		message.PropertyDataSchema,
		message.PropertySubject,
		message.PropertyPartitionKey,
		message.PropertyTraceParent,
		message.PropertyTraceState,
		message.PropertyBaggage,
	}
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[strings.ToLower(k)] = k
	}
	return m
}()

// HTTP adapts inbound HTTP requests. Headers become string properties: known
// property names keep their canonical spelling, others are lowercased.
// Metadata published by Watermill's HTTP publisher is unpacked, and
// CloudEvents binary-mode ce-* headers fill the cloudEvents_* properties the
// producer did not set. Only the first value of a repeated header is kept.
type HTTP struct{}

// ToRawMessage reads and converts r. An empty body is a null body. A request
// whose body cannot be read yields nil.
func (HTTP) ToRawMessage(r *http.Request) *message.RawMessage {
	if r == nil {
		return nil
	}
	var body []byte
	if r.Body != nil {
		read, err := io.ReadAll(r.Body)
		if err != nil {
			return nil
		}
		if len(read) > 0 {
			body = read
		}
	}

	raw := &message.RawMessage{
		Body:       body,
		Properties: make(properties.Bag, len(r.Header)),
	}
	fields := httpFields{}
	if encoded := r.Header.Get(HeaderWatermillMetadata); encoded != "" {
		var metadata map[string]string
		if err := jsoncodec.Unmarshal([]byte(encoded), &metadata); err == nil {
			for k, v := range metadata {
				fields.set(raw, k, v)
			}
		}
	}
	for k, values := range r.Header {
		if len(values) == 0 || strings.EqualFold(k, HeaderWatermillMetadata) {
			continue
		}
		fields.set(raw, k, values[0])
	}

	for attr, value := range fields.cloudEvents {
		setDefault(raw.Properties, "cloudEvents_"+attr, value)
	}
	raw.ID = firstNonEmpty(fields.messageID, fields.watermillUUID, fields.cloudEventsID)
	return raw
}

type httpFields struct {
	messageID     string
	watermillUUID string
	cloudEventsID string
	cloudEvents   map[string]string
}

func (f *httpFields) set(raw *message.RawMessage, name, value string) {
	lower := strings.ToLower(name)
	switch {
	case requestHeaders[lower]:
	case lower == HeaderContentType:
		raw.ContentType = value
	case lower == HeaderCorrelationID:
		raw.CorrelationID = value
	case lower == HeaderMessageID:
		f.messageID = value
	case lower == strings.ToLower(HeaderWatermillUUID):
		f.watermillUUID = value
	case lower == cloudEventsHeaderPrefix+"id":
		f.cloudEventsID = value
	case lower == cloudEventsHeaderPrefix+"specversion":
	case strings.HasPrefix(lower, cloudEventsHeaderPrefix):
		if f.cloudEvents == nil {
			f.cloudEvents = make(map[string]string)
		}
		f.cloudEvents[strings.TrimPrefix(lower, cloudEventsHeaderPrefix)] = value
	default:
		if key, ok := knownProperties[lower]; ok {
			raw.Properties[key] = value
			return
		}
		raw.Properties[lower] = value
	}
}
