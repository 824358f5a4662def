// Package telemetry aggregates search query statistics in memory. Nothing
// leaves the process; the HTTP API exposes a snapshot under /api/stats.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket maps a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one search request.
type QueryEvent struct {
	Query   string
	Hits    int
	Latency time.Duration

	// Failed marks requests rejected by validation or failed in the index.
	Failed bool
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the aggregates.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	FailedQueries       int64                   `json:"failed_queries"`
	ZeroHitQueries      int64                   `json:"zero_hit_queries"`
	RecentZeroHit       []string                `json:"recent_zero_hit"`
	TopTerms            []TermCount             `json:"top_terms"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	Since               time.Time               `json:"since"`
}

// ZeroHitPercentage returns the share of successful queries without hits.
func (s *Snapshot) ZeroHitPercentage() float64 {
	ok := s.TotalQueries - s.FailedQueries
	if ok <= 0 {
		return 0
	}
	return float64(s.ZeroHitQueries) / float64(ok) * 100
}

// Config sizes the bounded aggregates.
type Config struct {
	TopTermsCapacity int
	ZeroHitCapacity  int
	MinTermLength    int
}

// DefaultConfig returns the default capacities.
func DefaultConfig() Config {
	return Config{TopTermsCapacity: 100, ZeroHitCapacity: 50, MinTermLength: 3}
}

// QueryMetrics collects query statistics. It is safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	cfg       Config
	terms     *lru.Cache[string, int64]
	zeroHit   []string
	latencies map[LatencyBucket]int64
	total     int64
	failed    int64
	zeroCount int64
	since     time.Time
}

// NewQueryMetrics creates a collector. Non-positive capacities take the
// defaults.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroHitCapacity <= 0 {
		cfg.ZeroHitCapacity = def.ZeroHitCapacity
	}
	if cfg.MinTermLength <= 0 {
		cfg.MinTermLength = def.MinTermLength
	}
	terms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	return &QueryMetrics{
		cfg:       cfg,
		terms:     terms,
		latencies: make(map[LatencyBucket]int64),
		since:     time.Now(),
	}
}

// Record adds ev to the aggregates. A nil collector ignores it.
func (m *QueryMetrics) Record(ev QueryEvent) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latencies[LatencyToBucket(ev.Latency)]++
	if ev.Failed {
		m.failed++
		return
	}

	for _, term := range m.extractTerms(ev.Query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}
	if ev.Hits == 0 {
		m.zeroCount++
		m.zeroHit = append(m.zeroHit, ev.Query)
		if len(m.zeroHit) > m.cfg.ZeroHitCapacity {
			m.zeroHit = m.zeroHit[len(m.zeroHit)-m.cfg.ZeroHitCapacity:]
		}
	}
}

// Snapshot copies the current aggregates. Top terms are ordered by count,
// then alphabetically.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	terms := make([]TermCount, 0, m.terms.Len())
	for _, k := range m.terms.Keys() {
		if n, ok := m.terms.Peek(k); ok {
			terms = append(terms, TermCount{Term: k, Count: n})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		TotalQueries:        m.total,
		FailedQueries:       m.failed,
		ZeroHitQueries:      m.zeroCount,
		RecentZeroHit:       append([]string{}, m.zeroHit...),
		TopTerms:            terms,
		LatencyDistribution: latencies,
		Since:               m.since,
	}
}

func (m *QueryMetrics) extractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `"'+-()*?`)
		if len([]rune(w)) >= m.cfg.MinTermLength {
			terms = append(terms, w)
		}
	}
	return terms
}
