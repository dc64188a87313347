// Package textenc decodes message bodies using the host's default text
// encoding.
//
// The default encoding is taken from the POSIX locale variables (LC_ALL,
// LC_CTYPE, LANG, first non-empty wins). Locales without a charset known to
// the WHATWG index resolve to UTF-8, including C and POSIX.
// Two hosts with different locales can therefore decode the same non-ASCII
// payload differently.
package textenc

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const utf8Name = "utf-8"

// Decoder converts body bytes into text.
type Decoder struct {
	enc  encoding.Encoding
	name string
}

// UTF8 decodes bytes as UTF-8 without transformation.
var UTF8 = Decoder{enc: unicode.UTF8, name: utf8Name}

// New returns a decoder for a WHATWG encoding label such as "utf-8",
// "iso-8859-1" or "shift_jis".
func New(label string) (Decoder, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return Decoder{}, err
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(strings.TrimSpace(label))
	}
	return Decoder{enc: enc, name: name}, nil
}

// Name returns the canonical encoding name.
func (d Decoder) Name() string {
	if d.enc == nil {
		return utf8Name
	}
	return d.name
}

// Decode returns b as text. Bytes that are invalid in the encoding are
// replaced, and a decoder failure falls back to the raw bytes.
func (d Decoder) Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if d.enc == nil || d.name == utf8Name {
		return string(b)
	}
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Resolve picks a decoder from a locale string like "de_DE.ISO-8859-1@euro".
func Resolve(locale string) Decoder {
	charset := charsetOf(locale)
	if charset == "" {
		return UTF8
	}
	d, err := New(charset)
	if err != nil {
		return UTF8
	}
	return d
}

func charsetOf(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		locale = locale[:i]
	}
	i := strings.IndexByte(locale, '.')
	if i < 0 {
		return ""
	}
	return locale[i+1:]
}

// LocaleFromEnv returns the effective LC_CTYPE locale using lookup.
func LocaleFromEnv(lookup func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := lookup(key); v != "" {
			return v
		}
	}
	return ""
}

var (
	systemOnce    sync.Once
	systemDecoder Decoder
)

// System returns the decoder for the process locale. It is resolved once.
func System() Decoder {
	systemOnce.Do(func() {
		systemDecoder = Resolve(LocaleFromEnv(os.Getenv))
	})
	return systemDecoder
}
