package message

import (
	"fmt"
	"net/url"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/drblury/ingress/internal/runtime/properties"
)

// Context attribute names that bag entries must not shadow.
var cloudEventsAttributes = map[string]bool{
	"specversion":     true,
	"id":              true,
	"source":          true,
	"type":            true,
	"time":            true,
	"subject":         true,
	"dataschema":      true,
	"datacontenttype": true,
	"data":            true,
	"data_base64":     true,
}

// ToCloudEvent converts m into a binary-mode CloudEvent. Trace context and
// the partition key travel as the distributed tracing and partitioning
// extensions; bag entries whose names are valid extension names follow.
func ToCloudEvent(m Message) (*cloudevents.Event, error) {
	h := m.Header

	e := cloudevents.NewEvent()
	e.SetID(h.ID)
	e.SetSource(urlString(h.Source))
	e.SetType(h.Type.String())
	e.SetTime(h.TimeStamp)
	e.SetDataSchema(urlString(h.DataSchema))
	if h.Subject != "" {
		e.SetSubject(h.Subject)
	}
	if h.TraceParent != "" {
		e.SetExtension("traceparent", h.TraceParent.String())
	}
	if h.TraceState != "" {
		e.SetExtension("tracestate", h.TraceState.String())
	}
	if !h.PartitionKey.IsEmpty() {
		e.SetExtension("partitionkey", h.PartitionKey.String())
	}

	for key, raw := range h.Bag {
		if cloudEventsAttributes[key] || !validExtensionName(key) {
			continue
		}
		if _, taken := e.Extensions()[key]; taken {
			continue
		}
		s, err := properties.Of(raw).AsString()
		if err != nil {
			continue
		}
		e.SetExtension(key, s)
	}

	if err := e.SetData(h.ContentType, m.Body.Bytes); err != nil {
		return nil, fmt.Errorf("set data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// validExtensionName applies the CloudEvents naming rule: lower-case ASCII
// letters and digits, at most 20 characters.
func validExtensionName(name string) bool {
	if name == "" || len(name) > 20 {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
