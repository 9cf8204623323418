package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRawMapPreservesOrder(t *testing.T) {
	line := `{"zebra":1,"alpha":"x","mid":{"b":true,"a":null},"list":[1,"two",false]}`

	m, err := DecodeRawMap([]byte(line))
	require.NoError(t, err)

	keys := make([]string, 0, m.Len())
	for _, f := range m.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"zebra", "alpha", "mid", "list"}, keys)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, line, string(out))
}

func TestDecodeRawMapKinds(t *testing.T) {
	m, err := DecodeRawMap([]byte(`{"s":"str","n":3.25,"i":42,"b":false,"z":null}`))
	require.NoError(t, err)

	v, ok := m.Get("s")
	require.True(t, ok)
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, "str", v.Str)

	v, _ = m.Get("n")
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, json.Number("3.25"), v.Num)

	v, _ = m.Get("i")
	assert.Equal(t, json.Number("42"), v.Num)

	v, _ = m.Get("b")
	assert.Equal(t, KindBool, v.Kind)
	assert.False(t, v.Bool)

	v, _ = m.Get("z")
	assert.Equal(t, KindNull, v.Kind)
}

func TestDecodeRawMapRejectsNonObjects(t *testing.T) {
	for _, bad := range []string{
		`not json at all`,
		`[1,2,3]`,
		`"just a string"`,
		`42`,
		`{"a":1} trailing`,
		`{"a":1}{"b":2}`,
		`{"a":`,
		``,
	} {
		_, err := DecodeRawMap([]byte(bad))
		assert.Error(t, err, "input %q should not decode", bad)
	}
}

func TestRawMapSetReplaces(t *testing.T) {
	var m RawMap
	m.Set("a", Value{Kind: KindString, Str: "one"})
	m.Set("b", Value{Kind: KindString, Str: "two"})
	m.Set("a", Value{Kind: KindString, Str: "three"})

	require.Equal(t, 2, m.Len())
	v, _ := m.Get("a")
	assert.Equal(t, "three", v.Str)
	assert.Equal(t, "a", m.Fields()[0].Key)
}

func TestGetString(t *testing.T) {
	m, err := DecodeRawMap([]byte(`{"msg":"hello","count":3}`))
	require.NoError(t, err)

	s, ok := m.GetString("msg")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	// Non-string values are not coerced.
	_, ok = m.GetString("count")
	assert.False(t, ok)

	_, ok = m.GetString("absent")
	assert.False(t, ok)
}

func TestUnmarshalJSONRoundTrip(t *testing.T) {
	line := `{"time":"2026-08-29T10:00:00Z","level":"INFO","nested":{"y":"z","x":[{"k":"v"}]}}`

	var m RawMap
	require.NoError(t, json.Unmarshal([]byte(line), &m))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, line, string(out))
}
