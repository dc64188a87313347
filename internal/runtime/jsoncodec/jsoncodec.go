// Package jsoncodec is the JSON codec used for canonical message envelopes.
package jsoncodec

import "github.com/bytedance/sonic"

var defaultConfig = sonic.ConfigStd

// Marshal encodes v with encoding/json compatible semantics.
func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

// Unmarshal decodes data into v with encoding/json compatible semantics.
func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

var numberConfig = sonic.Config{UseNumber: true}.Froze()

// UnmarshalNumbers is Unmarshal that decodes numbers into interface values as
// json.Number instead of float64.
func UnmarshalNumbers(data []byte, v any) error {
	return numberConfig.Unmarshal(data, v)
}
