package properties

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/ingress/internal/runtime/errors"
)

func TestBagLookup(t *testing.T) {
	bag := Bag{"present": "x", "nil": nil}

	v, ok := bag.Lookup("present")
	require.True(t, ok)
	assert.Equal(t, "x", v.Raw())

	v, ok = bag.Lookup("nil")
	require.True(t, ok)
	assert.Equal(t, KindNil, v.Kind())

	_, ok = bag.Lookup("missing")
	assert.False(t, ok)

	var empty Bag
	_, ok = empty.Lookup("anything")
	assert.False(t, ok)
}

func TestBagCloneAndKeys(t *testing.T) {
	bag := Bag{"b": 1, "a": 2}
	cloned := bag.Clone()
	cloned["c"] = 3

	assert.Len(t, bag, 2)
	assert.Equal(t, []string{"a", "b", "c"}, cloned.Keys())

	var nilBag Bag
	assert.NotNil(t, nilBag.Clone())
}

func TestValueKind(t *testing.T) {
	tests := []struct {
		raw  any
		kind Kind
	}{
		{nil, KindNil},
		{"s", KindString},
		{int64(3), KindInteger},
		{uint8(3), KindInteger},
		{3.5, KindFloat},
		{true, KindBool},
		{[]byte("b"), KindBytes},
		{time.Now(), KindTime},
		{map[string]any{}, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, Of(tt.raw).Kind())
		})
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    string
		wantErr error
	}{
		{name: "string", raw: "hello", want: "hello"},
		{name: "empty string", raw: "", want: ""},
		{name: "bytes", raw: []byte("raw"), want: "raw"},
		{name: "int", raw: 42, want: "42"},
		{name: "bool", raw: true, want: "true"},
		{name: "time", raw: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), want: "2024-05-01T08:00:00Z"},
		{name: "nil", raw: nil, wantErr: errspkg.ErrPropertyNil},
		{name: "map", raw: map[string]any{"a": 1}, wantErr: errspkg.ErrPropertyType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.raw).AsString()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int
		wantErr bool
	}{
		{name: "numeric string", raw: "3", want: 3},
		{name: "padded string", raw: " 7 ", want: 7},
		{name: "negative string", raw: "-2", want: -2},
		{name: "int32", raw: int32(5), want: 5},
		{name: "int64", raw: int64(9), want: 9},
		{name: "bytes", raw: []byte("11"), want: 11},
		{name: "letters", raw: "abc", wantErr: true},
		{name: "hex is not decimal", raw: "0x10", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "bool", raw: true, wantErr: true},
		{name: "nil", raw: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.raw).AsInt()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsBytes(t *testing.T) {
	src := []byte("abc")
	got, err := Of(src).AsBytes()
	require.NoError(t, err)
	assert.Equal(t, src, got)

	got[0] = 'z'
	assert.Equal(t, byte('a'), src[0], "AsBytes must copy")

	got, err = Of("text").AsBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("text"), got)

	_, err = Of(nil).AsBytes()
	assert.ErrorIs(t, err, errspkg.ErrPropertyNil)
}

func TestAsTime(t *testing.T) {
	want := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	got, err := Of("2024-03-04T05:06:07Z").AsTime()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = Of(want).AsTime()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = Of(&want).AsTime()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = Of(want.Unix()).AsTime()
	require.NoError(t, err)
	assert.Equal(t, want.Unix(), got.Unix())

	_, err = Of("yesterday").AsTime()
	assert.Error(t, err)

	_, err = Of("  ").AsTime()
	assert.ErrorIs(t, err, errspkg.ErrPropertyEmpty)

	_, err = Of(nil).AsTime()
	assert.ErrorIs(t, err, errspkg.ErrPropertyNil)
}

func TestAsURI(t *testing.T) {
	u, err := Of("https://example.com/orders").AsURI()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/orders", u.String())

	u, err = Of("urn:example:source").AsURI()
	require.NoError(t, err)
	assert.Equal(t, "urn", u.Scheme)

	for _, raw := range []any{[]byte("https://example.com"), &url.URL{Scheme: "https", Host: "example.com"}, url.URL{Scheme: "https", Host: "example.com"}} {
		_, err = Of(raw).AsURI()
		assert.ErrorIs(t, err, errspkg.ErrPropertyType, "%T", raw)
	}

	_, err = Of("").AsURI()
	assert.ErrorIs(t, err, errspkg.ErrPropertyEmpty)

	_, err = Of("/relative/path").AsURI()
	assert.ErrorIs(t, err, errspkg.ErrPropertyNotAbsolute)

	_, err = Of(42).AsURI()
	assert.ErrorIs(t, err, errspkg.ErrPropertyType)

	_, err = Of("http://bad host/%zz").AsURI()
	assert.Error(t, err)
}
