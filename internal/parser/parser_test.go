package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKnownFields(t *testing.T) {
	line := `{"time":"2026-08-29T10:30:00Z","level":"INFO","section":"loader",` +
		`"group":"batch-2","run_name":"train","run_id":"r42",` +
		`"message":"loaded 10 shards","cache_path":"plots/loss.png","step":10}`

	rec := Parse(line, 1)

	require.False(t, rec.ParseError)
	assert.Equal(t, uint64(1), rec.Seq)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC), rec.Time.UTC())
	assert.Equal(t, "INFO", rec.Level)
	assert.Equal(t, "loader", rec.Section)
	assert.Equal(t, "batch-2", rec.Group)
	assert.Equal(t, "train", rec.RunName)
	assert.Equal(t, "r42", rec.RunID)
	assert.Equal(t, "loaded 10 shards", rec.Message)
	assert.Equal(t, "plots/loss.png", rec.CachePath)

	// Every field, known and unknown, stays in Raw.
	assert.Equal(t, 9, rec.Raw.Len())
	_, ok := rec.Raw.Get("step")
	assert.True(t, ok)
}

func TestParseMsgFallback(t *testing.T) {
	rec := Parse(`{"msg":"short form"}`, 1)
	assert.Equal(t, "short form", rec.Message)

	// "message" wins when both are present.
	rec = Parse(`{"msg":"b","message":"a"}`, 2)
	assert.Equal(t, "a", rec.Message)
}

func TestParseLevelCasePreserved(t *testing.T) {
	rec := Parse(`{"level":"Error"}`, 1)
	assert.Equal(t, "Error", rec.Level)
	assert.Equal(t, "error", rec.LevelKey())
}

func TestParseTimestamps(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-08-29T10:00:00Z", time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)},
		{"2026-08-29T12:00:00+02:00", time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)},
		// No timezone designator means UTC.
		{"2026-08-29T10:00:00", time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)},
		{"2026-08-29T10:00:00.250", time.Date(2026, 8, 29, 10, 0, 0, 250000000, time.UTC)},
		{"2026-08-29 10:00:00", time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		rec := Parse(`{"time":"`+tc.in+`"}`, 1)
		require.True(t, rec.HasTime(), "time %q should parse", tc.in)
		assert.True(t, rec.Time.UTC().Equal(tc.want), "time %q: got %v", tc.in, rec.Time)
	}
}

func TestParseUnparsableTimestamp(t *testing.T) {
	for _, in := range []string{"yesterday", "29/08/2026", ""} {
		rec := Parse(`{"time":"`+in+`","level":"INFO"}`, 1)
		assert.False(t, rec.ParseError)
		assert.False(t, rec.HasTime(), "time %q should not parse", in)
	}
}

func TestParseFailure(t *testing.T) {
	rec := Parse("not json at all", 5)

	assert.True(t, rec.ParseError)
	assert.Equal(t, uint64(5), rec.Seq)
	assert.Equal(t, "not json at all", rec.RawText)
	assert.Empty(t, rec.Level)
	assert.Empty(t, rec.Message)
	assert.Equal(t, 0, rec.Raw.Len())
}

func TestParseNonObjectJSON(t *testing.T) {
	// Valid JSON that is not an object is still a parse failure.
	for _, line := range []string{`[1,2,3]`, `"hello"`, `42`} {
		rec := Parse(line, 1)
		assert.True(t, rec.ParseError, "line %q", line)
		assert.Equal(t, line, rec.RawText)
	}
}

func TestParseNonStringFieldValues(t *testing.T) {
	// A numeric level or section is kept in Raw but not lifted into the
	// typed fields.
	rec := Parse(`{"level":3,"section":true,"message":"ok"}`, 1)

	assert.False(t, rec.ParseError)
	assert.Empty(t, rec.Level)
	assert.Empty(t, rec.Section)
	assert.Equal(t, "ok", rec.Message)
	assert.Equal(t, 3, rec.Raw.Len())
}
