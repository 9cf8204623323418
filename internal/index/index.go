package index

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atikulmunna/logboard/internal/model"
)

// epsWindow is the sliding window used for the events-per-second stat.
const epsWindow = 5 * time.Second

// Facets is an immutable snapshot of the filter-control aggregates. A new
// snapshot is published on the rare append that introduces a level or
// section, so readers always observe a complete set.
type Facets struct {
	Levels   []string `json:"levels"`   // first-seen casing, sorted case-insensitively
	Sections []string `json:"sections"` // sorted
}

// RunIDStat summarizes one run_id within a run. Earliest and Latest are nil
// when no record of the run carried a parsed timestamp, so they disappear
// from the JSON instead of rendering as the zero time.
type RunIDStat struct {
	RunID    string     `json:"run_id"`
	Count    int        `json:"count"`
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}

// RunStat summarizes one run_name.
type RunStat struct {
	Name   string      `json:"name"`
	Total  int         `json:"total"`
	RunIDs []RunIDStat `json:"run_ids"`
}

// Stats is a point-in-time snapshot of ingestion metrics.
type Stats struct {
	Uptime      string           `json:"uptime"`
	Total       int              `json:"total"`
	ParseErrors int              `json:"parse_errors"`
	LevelCounts map[string]int64 `json:"level_counts"`
	EPS         float64          `json:"eps"`
}

type runAgg struct {
	total int
	ids   map[string]*idAgg
}

type idAgg struct {
	count    int
	earliest time.Time
	latest   time.Time
}

// Index is the in-memory, append-only store of records for one watched file,
// plus the derived facets maintained incrementally on each append.
//
// Exactly one writer (the ingestion pipeline) calls Append and Reset; any
// number of readers may call the snapshot methods concurrently.
type Index struct {
	mu      sync.RWMutex
	records []model.Record

	parseErrors int
	levelCase   map[string]string // folded level -> first-seen casing
	levelCounts map[string]int64  // folded level -> count
	sections    map[string]struct{}
	runs        map[string]*runAgg

	facets atomic.Pointer[Facets]

	start  time.Time
	window []time.Time // ingest instants inside epsWindow
}

// New creates an empty Index.
func New() *Index {
	idx := &Index{start: time.Now()}
	idx.initAggregates()
	idx.facets.Store(&Facets{})
	return idx
}

func (idx *Index) initAggregates() {
	idx.levelCase = make(map[string]string)
	idx.levelCounts = make(map[string]int64)
	idx.sections = make(map[string]struct{})
	idx.runs = make(map[string]*runAgg)
}

// Append stores a record and folds it into the aggregates. Records are
// immutable and never removed except by Reset. Parse-error records are
// stored and counted but contribute to no facet.
func (idx *Index) Append(rec model.Record) {
	now := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = append(idx.records, rec)
	idx.window = append(idx.window, now)
	idx.pruneWindow(now)

	if rec.ParseError {
		idx.parseErrors++
		return
	}

	facetsDirty := false

	if rec.Level != "" {
		key := rec.LevelKey()
		if _, seen := idx.levelCase[key]; !seen {
			idx.levelCase[key] = rec.Level
			facetsDirty = true
		}
		idx.levelCounts[key]++
	}

	if rec.Section != "" {
		if _, seen := idx.sections[rec.Section]; !seen {
			idx.sections[rec.Section] = struct{}{}
			facetsDirty = true
		}
	}

	if rec.RunName != "" {
		run := idx.runs[rec.RunName]
		if run == nil {
			run = &runAgg{ids: make(map[string]*idAgg)}
			idx.runs[rec.RunName] = run
		}
		run.total++
		if rec.RunID != "" {
			id := run.ids[rec.RunID]
			if id == nil {
				id = &idAgg{}
				run.ids[rec.RunID] = id
			}
			id.count++
			if rec.HasTime() {
				if id.earliest.IsZero() || rec.Time.Before(id.earliest) {
					id.earliest = rec.Time
				}
				if id.latest.IsZero() || rec.Time.After(id.latest) {
					id.latest = rec.Time
				}
			}
		}
	}

	if facetsDirty {
		idx.facets.Store(idx.buildFacets())
	}
}

// Reset discards every record and aggregate, for a full resync after the
// watched file was truncated or rotated.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = nil
	idx.parseErrors = 0
	idx.window = nil
	idx.initAggregates()
	idx.facets.Store(&Facets{})
}

// Snapshot returns the records in ingestion order. The returned slice is a
// stable view: the writer only ever appends past its length and records are
// immutable, so callers may read it without holding any lock.
func (idx *Index) Snapshot() []model.Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.records[:len(idx.records):len(idx.records)]
}

// Len returns the number of records held.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Facets returns the current facet snapshot without locking.
func (idx *Index) Facets() *Facets {
	return idx.facets.Load()
}

// RunsReport returns per-run totals built from the incrementally maintained
// aggregates: run names sorted by descending total then name, and run_ids
// within each run sorted the same way.
func (idx *Index) RunsReport() []RunStat {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	report := make([]RunStat, 0, len(idx.runs))
	for name, run := range idx.runs {
		stat := RunStat{
			Name:   name,
			Total:  run.total,
			RunIDs: make([]RunIDStat, 0, len(run.ids)),
		}
		for id, agg := range run.ids {
			s := RunIDStat{RunID: id, Count: agg.count}
			if !agg.earliest.IsZero() {
				e, l := agg.earliest, agg.latest
				s.Earliest, s.Latest = &e, &l
			}
			stat.RunIDs = append(stat.RunIDs, s)
		}
		sort.Slice(stat.RunIDs, func(i, j int) bool {
			a, b := stat.RunIDs[i], stat.RunIDs[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.RunID < b.RunID
		})
		report = append(report, stat)
	}

	sort.Slice(report, func(i, j int) bool {
		a, b := report[i], report[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Name < b.Name
	})
	return report
}

// Stats returns the current ingestion metrics.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	counts := make(map[string]int64, len(idx.levelCounts))
	for key, n := range idx.levelCounts {
		counts[idx.levelCase[key]] = n
	}

	cutoff := time.Now().Add(-epsWindow)
	var recent int
	for _, t := range idx.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:      time.Since(idx.start).Truncate(time.Second).String(),
		Total:       len(idx.records),
		ParseErrors: idx.parseErrors,
		LevelCounts: counts,
		EPS:         float64(recent) / epsWindow.Seconds(),
	}
}

// buildFacets constructs a fresh snapshot from the aggregate maps.
// Caller holds the write lock.
func (idx *Index) buildFacets() *Facets {
	f := &Facets{
		Levels:   make([]string, 0, len(idx.levelCase)),
		Sections: make([]string, 0, len(idx.sections)),
	}
	for _, display := range idx.levelCase {
		f.Levels = append(f.Levels, display)
	}
	sort.Slice(f.Levels, func(i, j int) bool {
		return strings.ToLower(f.Levels[i]) < strings.ToLower(f.Levels[j])
	})
	for s := range idx.sections {
		f.Sections = append(f.Sections, s)
	}
	sort.Strings(f.Sections)
	return f
}

// pruneWindow drops ingest instants older than the EPS window.
// Caller holds the write lock.
func (idx *Index) pruneWindow(now time.Time) {
	cutoff := now.Add(-epsWindow)
	i := 0
	for _, t := range idx.window {
		if t.After(cutoff) {
			idx.window[i] = t
			i++
		}
	}
	idx.window = idx.window[:i]
}
