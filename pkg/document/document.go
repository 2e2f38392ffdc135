// Package document defines the untyped structured payload that flows between
// an API call, the cache and the caller.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a decoded JSON object. A nil Document means "no payload".
type Document map[string]any

// Decode parses a serialized JSON object. Numbers are kept as json.Number so a
// Decode/Encode round-trip does not lose precision.
func Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to decode document: payload is null")
	}
	return doc, nil
}

// Encode serializes the document as a JSON object.
func Encode(doc Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("cannot encode a nil document")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// MustDecode is Decode for literals in tests and examples. It panics on error.
func MustDecode(s string) Document {
	doc, err := Decode([]byte(s))
	if err != nil {
		panic(err)
	}
	return doc
}

// String returns the compact JSON form, or "null" for a nil document.
func (d Document) String() string {
	if d == nil {
		return "null"
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid document: %v>", err)
	}
	return string(data)
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(vv)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
