package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
)

// Signals is the flat JSON object Datastar posts as the request body. The
// accessors are lenient: a missing key or a value of the wrong type reads
// as the zero value, which lets handlers treat absent gesture fields as
// "unchanged" without per-key error plumbing.
type Signals map[string]any

// ParseSignals decodes a raw Datastar request body.
func ParseSignals(body []byte) (Signals, error) {
	var s Signals
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Has reports whether the key was posted at all, zero-valued or not.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String reads a string signal.
func (s Signals) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Float reads a numeric signal. JSON numbers always decode as float64.
func (s Signals) Float(key string) float64 {
	v, _ := s[key].(float64)
	return v
}

// Int reads a numeric signal truncated to int.
func (s Signals) Int(key string) int {
	return int(s.Float(key))
}

// Bool reads a boolean signal.
func (s Signals) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// EmptyInput is the shared input struct for handlers with no parameters.
type EmptyInput struct{}

// SignalsInput is the input struct for handlers that receive Datastar
// signals. Huma fills RawBody with the unparsed request body.
type SignalsInput struct {
	RawBody []byte
}

// MustParse decodes the signals, mapping a malformed body to a 400.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}
