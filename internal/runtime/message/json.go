package message

import (
	"time"

	"github.com/drblury/ingress/internal/runtime/jsoncodec"
)

type wireMessage struct {
	Header wireHeader `json:"header"`
	Body   wireBody   `json:"body"`
}

type wireHeader struct {
	ID            string         `json:"id"`
	Topic         string         `json:"topic"`
	MessageType   string         `json:"messageType"`
	Source        string         `json:"source"`
	Type          string         `json:"type,omitempty"`
	TimeStamp     time.Time      `json:"timeStamp"`
	CorrelationID string         `json:"correlationId,omitempty"`
	ReplyTo       string         `json:"replyTo,omitempty"`
	ContentType   string         `json:"contentType"`
	HandledCount  int            `json:"handledCount"`
	DataSchema    string         `json:"dataSchema"`
	Subject       string         `json:"subject,omitempty"`
	DelayedMs     int64          `json:"delayedMilliseconds"`
	TraceParent   string         `json:"traceParent,omitempty"`
	TraceState    string         `json:"traceState,omitempty"`
	Baggage       string         `json:"baggage,omitempty"`
	PartitionKey  *string        `json:"partitionKey,omitempty"`
	Bag           map[string]any `json:"bag,omitempty"`
}

type wireBody struct {
	Value       string `json:"value"`
	ContentType string `json:"contentType"`
}

// MarshalJSON renders the canonical envelope used in logs and for hand-off to
// the dispatch pipeline.
func (m Message) MarshalJSON() ([]byte, error) {
	h := m.Header
	w := wireMessage{
		Header: wireHeader{
			ID:            h.ID,
			Topic:         h.Topic.String(),
			MessageType:   h.MessageType.String(),
			Source:        urlString(h.Source),
			Type:          h.Type.String(),
			TimeStamp:     h.TimeStamp,
			CorrelationID: h.CorrelationID,
			ReplyTo:       h.ReplyTo.String(),
			ContentType:   h.ContentType,
			HandledCount:  h.HandledCount,
			DataSchema:    urlString(h.DataSchema),
			Subject:       h.Subject,
			DelayedMs:     h.Delayed.Milliseconds(),
			TraceParent:   h.TraceParent.String(),
			TraceState:    h.TraceState.String(),
			Baggage:       h.Baggage.String(),
			Bag:           h.Bag,
		},
		Body: wireBody{Value: m.Body.Value(), ContentType: m.Body.ContentType},
	}
	if !h.PartitionKey.IsEmpty() {
		pk := h.PartitionKey.String()
		w.Header.PartitionKey = &pk
	}
	return jsoncodec.Marshal(w)
}
