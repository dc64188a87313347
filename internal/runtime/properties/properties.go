// Package properties wraps the untyped key/value bag a broker attaches to a
// message with typed accessors. Every target kind has exactly one coercion
// function so the defaulting policy built on top of it stays testable in one
// place.
package properties

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	ce "github.com/drblury/ingress/internal/runtime/cloudevents"
	errspkg "github.com/drblury/ingress/internal/runtime/errors"
)

// Bag holds broker application properties. Values keep the type the broker
// client produced them with.
type Bag map[string]any

// Lookup returns the typed accessor for key.
func (b Bag) Lookup(key string) (Value, bool) {
	v, ok := b[key]
	if !ok {
		return Value{}, false
	}
	return Value{raw: v}, true
}

// Clone returns a shallow copy; nil becomes an empty bag.
func (b Bag) Clone() Bag {
	cloned := make(Bag, len(b))
	for k, v := range b {
		cloned[k] = v
	}
	return cloned
}

// Keys returns the property names in lexical order.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Kind tags the dynamic type of a property value.
type Kind int

const (
	KindNil Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBool
	KindBytes
	KindTime
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	default:
		return "other"
	}
}

// Value is a single property value with coercion helpers.
type Value struct {
	raw any
}

// Of wraps an arbitrary value.
func Of(v any) Value {
	return Value{raw: v}
}

// Raw returns the value exactly as the broker supplied it.
func (v Value) Raw() any {
	return v.raw
}

// Kind classifies the raw value.
func (v Value) Kind() Kind {
	switch v.raw.(type) {
	case nil:
		return KindNil
	case string:
		return KindString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case float32, float64:
		return KindFloat
	case bool:
		return KindBool
	case []byte:
		return KindBytes
	case time.Time, *time.Time:
		return KindTime
	default:
		return KindOther
	}
}

// AsString renders scalar values as text. Nil and composite values fail.
func (v Value) AsString() (string, error) {
	switch t := v.raw.(type) {
	case nil:
		return "", errspkg.ErrPropertyNil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case time.Time:
		return ce.FormatTime(t), nil
	}
	s, err := cast.ToStringE(v.raw)
	if err != nil {
		return "", fmt.Errorf("%w: %T", errspkg.ErrPropertyType, v.raw)
	}
	return s, nil
}

// AsInt parses integers. Strings must hold a base-10 integer, surrounding
// whitespace is ignored.
func (v Value) AsInt() (int, error) {
	switch t := v.raw.(type) {
	case nil:
		return 0, errspkg.ErrPropertyNil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	case []byte:
		return strconv.Atoi(strings.TrimSpace(string(t)))
	case bool:
		return 0, fmt.Errorf("%w: %T", errspkg.ErrPropertyType, v.raw)
	}
	n, err := cast.ToIntE(v.raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %T", errspkg.ErrPropertyType, v.raw)
	}
	return n, nil
}

// AsBytes returns a copy of byte values or the UTF-8 form of text values.
func (v Value) AsBytes() ([]byte, error) {
	if b, ok := v.raw.([]byte); ok {
		return append([]byte(nil), b...), nil
	}
	s, err := v.AsString()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// AsTime accepts time values, CloudEvents time strings and unix seconds.
func (v Value) AsTime() (time.Time, error) {
	switch t := v.raw.(type) {
	case nil:
		return time.Time{}, errspkg.ErrPropertyNil
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, errspkg.ErrPropertyNil
		}
		return *t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, errspkg.ErrPropertyEmpty
		}
		return ce.ParseTime(t)
	case []byte:
		return ce.ParseTime(string(t))
	}
	parsed, err := cast.ToTimeE(v.raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %T", errspkg.ErrPropertyType, v.raw)
	}
	return parsed, nil
}

// AsURI parses an absolute URI. Only string values qualify; bytes and
// pre-parsed URLs are rejected like any other non-string kind.
func (v Value) AsURI() (*url.URL, error) {
	var s string
	switch t := v.raw.(type) {
	case nil:
		return nil, errspkg.ErrPropertyNil
	case string:
		s = t
	default:
		return nil, fmt.Errorf("%w: %T", errspkg.ErrPropertyType, v.raw)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errspkg.ErrPropertyEmpty
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", errspkg.ErrPropertyNotAbsolute, s)
	}
	return u, nil
}
