package message

import (
	"strings"

	"go.opentelemetry.io/otel/baggage"
)

// BaggageMember is one key/value pair of W3C baggage.
type BaggageMember struct {
	Key   string
	Value string
}

// Baggage is ordered W3C baggage. Keys are case sensitive and unique.
type Baggage []BaggageMember

// ParseBaggage reads a baggage header value. Members are comma separated
// key=value pairs with percent-encoded values; member properties after ';'
// are dropped. A malformed member is skipped without discarding the rest.
// The returned slice is never nil.
func ParseBaggage(header string) (Baggage, int) {
	result := Baggage{}
	skipped := 0
	for _, raw := range strings.Split(header, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := baggage.Parse(raw)
		if err != nil || parsed.Len() != 1 {
			skipped++
			continue
		}
		member := parsed.Members()[0]
		result = result.With(member.Key(), member.Value())
	}
	return result, skipped
}

// Get returns the value for key.
func (b Baggage) Get(key string) (string, bool) {
	for _, m := range b {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// With returns baggage containing key=value. An existing key keeps its
// position and takes the new value.
func (b Baggage) With(key, value string) Baggage {
	out := make(Baggage, len(b), len(b)+1)
	copy(out, b)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, BaggageMember{Key: key, Value: value})
}

// String encodes the baggage as a header value. Members whose key is not a
// valid W3C token are left out.
func (b Baggage) String() string {
	parts := make([]string, 0, len(b))
	for _, m := range b {
		if member, ok := m.otel(); ok {
			parts = append(parts, member.String())
		}
	}
	return strings.Join(parts, ",")
}

// OTel converts to OpenTelemetry baggage for context propagation.
func (b Baggage) OTel() baggage.Baggage {
	members := make([]baggage.Member, 0, len(b))
	for _, m := range b {
		if member, ok := m.otel(); ok {
			members = append(members, member)
		}
	}
	bag, err := baggage.New(members...)
	if err != nil {
		return baggage.Baggage{}
	}
	return bag
}

// otel converts m. NewMemberRaw accepts keys that are not W3C tokens, but
// such members encode to an empty string, so they are rejected here.
func (m BaggageMember) otel() (baggage.Member, bool) {
	member, err := baggage.NewMemberRaw(m.Key, m.Value)
	if err != nil || member.String() == "" {
		return baggage.Member{}, false
	}
	return member, true
}
