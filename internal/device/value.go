package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Value is a decoded JSON value. Numbers are kept as json.Number so that
// integers survive a round trip unchanged.
type Value = any

// DecodeValue decodes exactly one JSON value from data.
// Empty input, syntax errors and trailing data yield ErrMalformedValue.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v Value
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty", ErrMalformedValue)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedValue, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after value", ErrMalformedValue)
	}
	return v, nil
}

// FormatValue renders v for plain-text replies. Strings are returned as-is,
// everything else as compact JSON.
func FormatValue(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// sameValue reports whether a and b encode to the same JSON.
func sameValue(a, b Value) bool {
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// validate checks v against a compiled write schema.
func validate(schema *gojsonschema.Schema, v Value) error {
	if schema == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(msgs, "; "))
	}
	return nil
}

// Numeric converts v to a float64 when it is a number or a boolean.
func Numeric(v Value) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
