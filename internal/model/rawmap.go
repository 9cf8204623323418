package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
	KindObject
	KindArray
)

// Value is one JSON value from a log line, tagged by kind.
type Value struct {
	Kind Kind
	Str  string
	Num  json.Number
	Bool bool
	Obj  RawMap
	Arr  []Value
}

// String returns the value if it is a JSON string, otherwise "".
func (v Value) String() (string, bool) {
	if v.Kind == KindString {
		return v.Str, true
	}
	return "", false
}

// Field is one key/value pair of a RawMap.
type Field struct {
	Key   string
	Value Value
}

// RawMap is a JSON object that preserves key insertion order, so a log line
// re-serializes with its fields in the order the producer wrote them.
type RawMap struct {
	fields []Field
}

// Set appends a field, replacing an existing value for the same key in place.
func (m *RawMap) Set(key string, v Value) {
	for i := range m.fields {
		if m.fields[i].Key == key {
			m.fields[i].Value = v
			return
		}
	}
	m.fields = append(m.fields, Field{Key: key, Value: v})
}

// Get returns the value for key.
func (m RawMap) Get(key string) (Value, bool) {
	for _, f := range m.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the string value for key, or "" if absent or not a string.
func (m RawMap) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.String()
}

// Fields returns the fields in insertion order. The slice must not be mutated.
func (m RawMap) Fields() []Field {
	return m.fields
}

// Len returns the number of fields.
func (m RawMap) Len() int {
	return len(m.fields)
}

// MarshalJSON writes the object with keys in insertion order.
func (m RawMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeValue(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch v.Kind {
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindNumber:
		if v.Num == "" {
			buf.WriteByte('0')
		} else {
			buf.WriteString(string(v.Num))
		}
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNull:
		buf.WriteString("null")
	case KindObject:
		b, err := v.Obj.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, el := range v.Arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (m *RawMap) UnmarshalJSON(data []byte) error {
	parsed, err := DecodeRawMap(data)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DecodeRawMap parses data as a single JSON object, preserving key order.
// Anything other than exactly one object (arrays, scalars, trailing garbage)
// is an error.
func DecodeRawMap(data []byte) (RawMap, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return RawMap{}, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return RawMap{}, errors.New("not a JSON object")
	}

	m, err := readObject(dec)
	if err != nil {
		return RawMap{}, err
	}

	// Reject trailing content after the object.
	if _, err := dec.Token(); err == nil {
		return RawMap{}, errors.New("trailing data after JSON object")
	}
	return m, nil
}

// readObject consumes fields up to and including the closing brace. The
// opening brace has already been consumed.
func readObject(dec *json.Decoder) (RawMap, error) {
	var m RawMap
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return RawMap{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return RawMap{}, fmt.Errorf("object key is %T, not string", tok)
		}
		v, err := readValue(dec)
		if err != nil {
			return RawMap{}, err
		}
		m.fields = append(m.fields, Field{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return RawMap{}, err
	}
	return m, nil
}

func readValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := readObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindObject, Obj: obj}, nil
		case '[':
			var arr []Value
			for dec.More() {
				el, err := readValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, el)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return Value{}, err
			}
			return Value{Kind: KindArray, Arr: arr}, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return Value{Kind: KindNumber, Num: t}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %T", tok)
	}
}
