package model

import (
	"strings"
	"time"
)

// Record represents a single ingested log line.
//
// Seq is assigned at ingestion and is the only total order over records;
// timestamps may be missing or out of order relative to ingestion. A Record
// is immutable once created.
type Record struct {
	Seq       uint64
	Session   uint64    // bumped on every truncation resync; Seq restarts with it
	Time      time.Time // zero value means unknown
	Level     string    // as written in the log line
	Section   string
	Group     string
	RunName   string
	RunID     string
	Message   string
	CachePath string
	Raw       RawMap // every field of the line, known and unknown, in order

	// ParseError marks a line that was not valid JSON. RawText holds the
	// literal line; all structured fields above are unset.
	ParseError bool
	RawText    string
}

// HasTime reports whether the record carries a parsed timestamp.
func (r Record) HasTime() bool {
	return !r.Time.IsZero()
}

// LevelKey returns the case-folded level used for matching and facet
// identity, so "ERROR", "Error" and "error" are one logical level.
func (r Record) LevelKey() string {
	return strings.ToLower(r.Level)
}

// Document returns the external representation of the record: the full
// ordered field bag for structured records, or a parse_error/raw pair for
// lines that failed to decode. Marshaling a structured record's document
// reproduces the original line's fields without loss.
func (r Record) Document() RawMap {
	if !r.ParseError {
		return r.Raw
	}
	var doc RawMap
	doc.Set("parse_error", Value{Kind: KindBool, Bool: true})
	doc.Set("raw", Value{Kind: KindString, Str: r.RawText})
	return doc
}
