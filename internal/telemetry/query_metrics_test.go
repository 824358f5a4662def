package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{499 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), tt.d.String())
	}
}

func TestRecord_Aggregates(t *testing.T) {
	// Given: a mix of successful, empty and failed queries
	m := NewQueryMetrics(Config{})
	m.Record(QueryEvent{Query: "rust async", Hits: 3, Latency: 2 * time.Millisecond})
	m.Record(QueryEvent{Query: "Rust", Hits: 1, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "zebra crossing", Hits: 0, Latency: 2 * time.Millisecond})
	m.Record(QueryEvent{Query: "", Failed: true})

	// When: taking a snapshot
	s := m.Snapshot()

	// Then: totals, terms and buckets add up
	assert.Equal(t, int64(4), s.TotalQueries)
	assert.Equal(t, int64(1), s.FailedQueries)
	assert.Equal(t, int64(1), s.ZeroHitQueries)
	assert.Equal(t, []string{"zebra crossing"}, s.RecentZeroHit)
	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "rust", Count: 2}, s.TopTerms[0])
	assert.Equal(t, int64(3), s.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketP50])
	assert.InDelta(t, 33.3, s.ZeroHitPercentage(), 0.1)
}

func TestRecord_ShortTermsIgnored(t *testing.T) {
	m := NewQueryMetrics(Config{})

	m.Record(QueryEvent{Query: "go is ok", Hits: 1})

	assert.Empty(t, m.Snapshot().TopTerms)
}

func TestRecord_ZeroHitBufferBounded(t *testing.T) {
	m := NewQueryMetrics(Config{ZeroHitCapacity: 2})

	for i := 0; i < 5; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("q%d", i)})
	}

	s := m.Snapshot()
	assert.Equal(t, int64(5), s.ZeroHitQueries)
	assert.Equal(t, []string{"q3", "q4"}, s.RecentZeroHit)
}

func TestRecord_NilIsNoop(t *testing.T) {
	var m *QueryMetrics
	assert.NotPanics(t, func() { m.Record(QueryEvent{Query: "x"}) })
}

func TestRecord_Concurrent(t *testing.T) {
	m := NewQueryMetrics(Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: "podcast", Hits: 1})
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(800), s.TotalQueries)
	assert.Equal(t, int64(800), s.TopTerms[0].Count)
}

func TestSnapshot_EmptyPercentage(t *testing.T) {
	assert.Zero(t, NewQueryMetrics(Config{}).Snapshot().ZeroHitPercentage())
}
