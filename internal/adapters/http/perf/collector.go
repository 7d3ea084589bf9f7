// Package perf keeps a bounded window of request and query timings for the
// manager dashboard.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the number of timings kept.
const DefaultRingSize = 4096

// EntryKind tells request timings from store statement timings.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timing.
type Entry struct {
	Kind       EntryKind
	Path       string // "METHOD /route" or the leading SQL verb and table
	StatusCode int    // zero for queries
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring of timings. When full the oldest is overwritten;
// aggregation only happens in Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	total   atomic.Int64
}

// NewCollector allocates a ring of the given size, or DefaultRingSize when size <= 0.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record stores e, overwriting the oldest timing when the ring is full.
// A nil collector ignores the call.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.next] = e
	c.next = (c.next + 1) % len(c.entries)
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded counts every timing ever recorded, including overwritten ones.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.total.Load()
}

// Snapshot is the aggregate the dashboard renders.
type Snapshot struct {
	Since         time.Time
	Requests      int
	ServerErrors  int // responses with status >= 500
	RequestP50Ms  float64
	RequestP95Ms  float64
	RequestP99Ms  float64
	SlowestRoutes []PathStat
	SlowestSQL    []PathStat
}

// ErrorRate is the share of requests that ended in a server error.
func (s Snapshot) ErrorRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.ServerErrors) / float64(s.Requests)
}

// PathStat aggregates the timings of one route or statement.
type PathStat struct {
	Path    string
	Count   int
	AvgMs   float64
	MaxMs   float64
	TotalMs float64
}

func (p *PathStat) add(ms float64) {
	p.Count++
	p.TotalMs += ms
	p.MaxMs = max(p.MaxMs, ms)
}

// Snapshot aggregates timings recorded at or after since, keeping the topN
// slowest routes and statements by average.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	snap := Snapshot{Since: since}
	if c == nil {
		return snap
	}
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	var durations []float64
	routes := map[string]*PathStat{}
	queries := map[string]*PathStat{}
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		stats := queries
		if e.Kind == KindRequest {
			stats = routes
			durations = append(durations, e.DurationMs)
			if e.StatusCode >= 500 {
				snap.ServerErrors++
			}
		}
		s, ok := stats[e.Path]
		if !ok {
			s = &PathStat{Path: e.Path}
			stats[e.Path] = s
		}
		s.add(e.DurationMs)
	}

	snap.Requests = len(durations)
	snap.SlowestRoutes = slowest(routes, topN)
	snap.SlowestSQL = slowest(queries, topN)
	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.RequestP50Ms = percentile(durations, 50)
		snap.RequestP95Ms = percentile(durations, 95)
		snap.RequestP99Ms = percentile(durations, 99)
	}
	return snap
}

// percentile interpolates the p-th percentile of an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func slowest(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
