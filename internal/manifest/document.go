// Package manifest reads, edits and writes package.json documents while
// keeping the key order of every object, and sorts them against a schema.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Document is a JSON object that remembers the insertion order of its keys.
// Values are *Document, []any, string, json.Number, bool or nil.
type Document struct {
	keys   []string
	values map[string]any
}

// New returns an empty document.
func New() *Document {
	return &Document{values: map[string]any{}}
}

// Len returns the number of keys.
func (d *Document) Len() int { return len(d.keys) }

// Keys returns the keys in order. The slice is a copy.
func (d *Document) Keys() []string { return slices.Clone(d.keys) }

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Object returns the value under key if it is a nested document.
func (d *Document) Object(key string) (*Document, bool) {
	v, ok := d.values[key]
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Document)
	return obj, ok
}

// String returns the value under key if it is a string.
func (d *Document) String(key string) (string, bool) {
	v, ok := d.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = map[string]any{}
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Delete removes key and reports whether it was present.
func (d *Document) Delete(key string) bool {
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
	return true
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{keys: slices.Clone(d.keys), values: make(map[string]any, len(d.values))}
	for k, v := range d.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *Document:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, it := range val {
			out[i] = cloneValue(it)
		}
		return out
	default:
		return val
	}
}

// Parse decodes a JSON object. Key order and number literals are kept as
// written. When a key repeats, the last value wins at the first position.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if tok != json.Delim('{') {
		return nil, errors.New("parse manifest: top-level value is not an object")
	}
	doc, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse manifest: unexpected data after top-level object")
	}
	return doc, nil
}

func decodeObject(dec *json.Decoder) (*Document, error) {
	doc := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		doc.Set(key, val)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			list := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	default:
		// string, json.Number, bool or nil
		return t, nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalJSON implements json.Marshaler. The output is compact.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Marshal renders doc the way npm writes package.json: two-space indent
// and a trailing newline.
func Marshal(doc *Document) ([]byte, error) {
	var compact bytes.Buffer
	if err := encodeValue(&compact, doc); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case *Document:
		buf.WriteByte('{')
		for i, k := range val.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeValue(buf, val.values[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, it := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, it); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return encodeScalar(buf, val)
	}
	return nil
}

func encodeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
