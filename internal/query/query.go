package query

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atikulmunna/logboard/internal/index"
	"github.com/atikulmunna/logboard/internal/model"
)

// ErrInvalidPage is returned for a non-positive page or page size. It is the
// only error the engine produces; data content never fails a query.
var ErrInvalidPage = errors.New("page and page_size must be positive")

// DefaultPageSize is used when the caller does not specify one. The UI
// offers 20/50/100/200, but the engine accepts any positive size.
const DefaultPageSize = 50

// Sort selects the ordering of query results. Sequence number, not
// timestamp, is the sort key: it is total and always defined, while
// timestamps may be missing or out of order relative to ingestion.
type Sort int

const (
	NewestFirst Sort = iota
	OldestFirst
)

// ParseSort maps an order parameter to a Sort, defaulting to newest first.
func ParseSort(s string) Sort {
	if strings.EqualFold(s, "oldest") || strings.EqualFold(s, "oldest_first") {
		return OldestFirst
	}
	return NewestFirst
}

// Filter is a parsed filter specification. All active conditions are ANDed;
// empty fields are inactive. Level is an exact case-folded match; the other
// text fields are case-insensitive substring matches. A record missing a
// field never matches a non-empty filter for it, so an unknown level name
// simply matches nothing rather than erroring.
type Filter struct {
	Level   string
	Section string
	Group   string
	RunName string
	RunID   string
	Since   time.Duration // keep records within this much of query-time now
}

// ParseFilter builds a Filter from URL-query-style parameters. A malformed
// or non-positive "since" value is ignored.
func ParseFilter(values url.Values) Filter {
	f := Filter{
		Level:   values.Get("level"),
		Section: values.Get("section"),
		Group:   values.Get("group"),
		RunName: values.Get("run_name"),
		RunID:   values.Get("run_id"),
	}
	if raw := values.Get("since"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
			f.Since = time.Duration(secs) * time.Second
		}
	}
	return f
}

// Matches reports whether rec satisfies every active condition at the given
// evaluation time.
func (f Filter) Matches(rec model.Record, now time.Time) bool {
	if f.Level != "" && !strings.EqualFold(rec.Level, f.Level) {
		return false
	}
	if !substring(rec.Section, f.Section) {
		return false
	}
	if !substring(rec.Group, f.Group) {
		return false
	}
	if !substring(rec.RunName, f.RunName) {
		return false
	}
	if !substring(rec.RunID, f.RunID) {
		return false
	}
	if f.Since > 0 {
		if !rec.HasTime() {
			return false
		}
		if now.Sub(rec.Time) > f.Since {
			return false
		}
	}
	return true
}

// substring is a case-insensitive substring test; an empty want is inactive
// and an empty field never matches a non-empty want.
func substring(field, want string) bool {
	if want == "" {
		return true
	}
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(want))
}

// Result is one page of matching records plus the information the rendering
// layer needs for "Showing X–Y of Z" and filter controls.
type Result struct {
	Records  []model.Record
	Total    int
	Page     int
	PageSize int
	Facets   *index.Facets
}

// Engine answers filtered, sorted, paginated queries against an Index.
type Engine struct {
	idx *index.Index
}

// New creates an Engine reading from idx.
func New(idx *index.Index) *Engine {
	return &Engine{idx: idx}
}

// Query scans the full index, applies the filter, orders by sequence and
// returns the requested 1-indexed page. A page past the end of the matches
// is an empty page with the correct total, not an error.
func (e *Engine) Query(f Filter, order Sort, page, pageSize int) (Result, error) {
	if page < 1 || pageSize < 1 {
		return Result{}, ErrInvalidPage
	}

	records := e.idx.Snapshot()
	now := time.Now()

	// Records arrive in ascending sequence order, so the scan direction is
	// the sort.
	matched := make([]model.Record, 0, pageSize)
	total := 0
	if order == OldestFirst {
		for _, rec := range records {
			if f.Matches(rec, now) {
				matched = append(matched, rec)
				total++
			}
		}
	} else {
		for i := len(records) - 1; i >= 0; i-- {
			if f.Matches(records[i], now) {
				matched = append(matched, records[i])
				total++
			}
		}
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return Result{
		Records:  matched[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Facets:   e.idx.Facets(),
	}, nil
}
