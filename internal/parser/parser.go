package parser

import (
	"time"

	"github.com/atikulmunna/logboard/internal/model"
)

// Known field names mapped into typed Record fields. Everything is also kept
// in Record.Raw for full-detail display.
const (
	fieldTime      = "time"
	fieldLevel     = "level"
	fieldSection   = "section"
	fieldGroup     = "group"
	fieldRunName   = "run_name"
	fieldRunID     = "run_id"
	fieldMessage   = "message"
	fieldMsg       = "msg"
	fieldCachePath = "cache_path"
)

// timeLayouts are the accepted ISO-8601 shapes. Layouts without a timezone
// designator are interpreted as UTC.
var timeLayouts = []struct {
	layout string
	utc    bool
}{
	{time.RFC3339Nano, false},
	{time.RFC3339, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
}

// Parse converts one raw line into a Record with the given sequence number.
// It never fails: a line that is not a JSON object comes back as a Record
// with ParseError set and the literal text in RawText. Such records are
// still ingested and broadcast; they just carry no structured fields.
func Parse(line string, seq uint64) model.Record {
	raw, err := model.DecodeRawMap([]byte(line))
	if err != nil {
		return model.Record{
			Seq:        seq,
			ParseError: true,
			RawText:    line,
		}
	}

	rec := model.Record{
		Seq: seq,
		Raw: raw,
	}

	if v, ok := raw.GetString(fieldTime); ok {
		rec.Time = parseTime(v)
	}
	if v, ok := raw.GetString(fieldLevel); ok {
		rec.Level = v
	}
	if v, ok := raw.GetString(fieldSection); ok {
		rec.Section = v
	}
	if v, ok := raw.GetString(fieldGroup); ok {
		rec.Group = v
	}
	if v, ok := raw.GetString(fieldRunName); ok {
		rec.RunName = v
	}
	if v, ok := raw.GetString(fieldRunID); ok {
		rec.RunID = v
	}
	if v, ok := strField(raw, fieldMessage, fieldMsg); ok {
		rec.Message = v
	}
	if v, ok := raw.GetString(fieldCachePath); ok {
		rec.CachePath = v
	}

	return rec
}

// parseTime parses an ISO-8601 timestamp, returning the zero time if no
// layout matches.
func parseTime(s string) time.Time {
	for _, l := range timeLayouts {
		var t time.Time
		var err error
		if l.utc {
			t, err = time.ParseInLocation(l.layout, s, time.UTC)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// strField returns the first non-empty string value among keys.
func strField(raw model.RawMap, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := raw.GetString(k); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
