// Package normalizer turns an adapted broker message into the canonical
// message handed to the dispatch pipeline.
//
// Normalization never fails for a present message. Missing or malformed
// metadata falls back to a per-field default and is reported through the
// diagnostics emitter; only a nil message yields the failure sentinel.
package normalizer

import (
	"time"

	"github.com/drblury/ingress/internal/runtime/diagnostics"
	"github.com/drblury/ingress/internal/runtime/message"
	"github.com/drblury/ingress/internal/runtime/textenc"
)

// Subscription identifies where messages are received. RoutingKey becomes
// the topic of every message normalized for it.
type Subscription struct {
	RoutingKey message.RoutingKey
	Name       string
}

// BodyDecoder turns body bytes into text.
type BodyDecoder interface {
	Decode([]byte) string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithEmitter sets the diagnostics sink. Nil keeps the current one.
func WithEmitter(e diagnostics.Emitter) Option {
	return func(n *Normalizer) {
		if e != nil {
			n.emitter = diagnostics.Safe(e)
		}
	}
}

// WithClock replaces time.Now for the timestamp default.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithBodyDecoder replaces the system default text decoder.
func WithBodyDecoder(d BodyDecoder) Option {
	return func(n *Normalizer) {
		if d != nil {
			n.decoder = d
		}
	}
}

// Normalizer normalizes messages for one subscription. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	sub     Subscription
	emitter diagnostics.Emitter
	now     func() time.Time
	decoder BodyDecoder
}

// New builds a Normalizer. Diagnostics are discarded unless WithEmitter is
// given; bodies are decoded with the host's default text encoding.
func New(sub Subscription, opts ...Option) *Normalizer {
	n := &Normalizer{
		sub:     sub,
		emitter: diagnostics.Discard,
		now:     time.Now,
		decoder: textenc.System(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscription returns the subscription n is bound to.
func (n *Normalizer) Subscription() Subscription {
	return n.sub
}

// Normalize converts raw into a canonical message. A nil raw yields
// message.FailureMessage for the subscription's routing key.
func (n *Normalizer) Normalize(raw *message.RawMessage) message.Message {
	rec := diagnostics.NewRecorder(n.sub.RoutingKey.String(), n.sub.Name)
	defer func() { n.emitter.Emit(rec.Report()) }()

	if raw == nil {
		rec.NullMessage()
		return message.FailureMessage(n.sub.RoutingKey)
	}
	rec.SetMessageID(raw.ID)

	body := raw.Body
	if body == nil {
		rec.NullBody()
		body = []byte{}
	}
	text := n.decoder.Decode(body)
	rec.Received(text)

	f := fields{props: raw.Properties, rec: rec}
	handledCount, handledPresent := f.handledCount()
	baggage, baggagePresent := f.baggage()
	contentType := f.contentType(raw.ContentType)

	header := message.Header{
		ID:            raw.ID,
		Topic:         n.sub.RoutingKey,
		MessageType:   f.messageType(),
		Source:        f.uri(message.PropertySource),
		Type:          message.CloudEventsType(f.text(message.PropertyType)),
		TimeStamp:     f.timestamp(n.now),
		CorrelationID: raw.CorrelationID,
		ReplyTo:       message.RoutingKey(f.text(message.PropertyReplyTo)),
		ContentType:   contentType,
		HandledCount:  handledCount,
		DataSchema:    f.uri(message.PropertyDataSchema),
		Subject:       f.text(message.PropertySubject),
		TraceParent:   message.TraceParent(f.text(message.PropertyTraceParent)),
		TraceState:    message.TraceState(f.text(message.PropertyTraceState)),
		Baggage:       baggage,
		PartitionKey:  f.partitionKey(),
	}

	bag := message.Bag{}
	if raw.LockToken != "" {
		bag[message.BagKeyLockToken] = raw.LockToken
	}
	if handledPresent {
		bag[message.BagKeyHandledCount] = handledCount
	}
	if baggagePresent {
		bag[message.BagKeyBaggage] = baggage.String()
	}
	for k, v := range raw.Properties {
		if _, set := bag[k]; set && message.IsReservedBagKey(k) {
			continue
		}
		bag[k] = v
	}
	header.Bag = bag

	return message.Message{
		Header: header,
		Body:   message.Body{Bytes: []byte(text), ContentType: contentType},
	}
}
