// Package stats keeps in-process request counters, including the running
// count of access-denied responses reported back to callers.
package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds the service counters. All fields are atomic; one instance is
// shared by the whole process.
type Stats struct {
	startTime time.Time

	totalRequests  atomic.Int64
	lyricsRequests atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
	forbiddenHits  atomic.Int64
	cacheHits      atomic.Int64
}

// New builds a Stats anchored at the current time.
func New() *Stats {
	return &Stats{startTime: time.Now()}
}

// RecordRequest counts any inbound request.
func (s *Stats) RecordRequest() { s.totalRequests.Add(1) }

// RecordLyricsRequest counts a /lyrics request.
func (s *Stats) RecordLyricsRequest() { s.lyricsRequests.Add(1) }

// RecordSuccess counts a completed scrape.
func (s *Stats) RecordSuccess() { s.succeeded.Add(1) }

// RecordFailure counts an exhausted scrape.
func (s *Stats) RecordFailure() { s.failed.Add(1) }

// RecordCacheHit counts a request served from the cache.
func (s *Stats) RecordCacheHit() { s.cacheHits.Add(1) }

// RecordForbidden bumps the access-denied counter and returns the running
// total, which the 403 response carries.
func (s *Stats) RecordForbidden() int64 {
	return s.forbiddenHits.Add(1)
}

// ForbiddenHits returns the running access-denied count.
func (s *Stats) ForbiddenHits() int64 { return s.forbiddenHits.Load() }

// ResetForbidden zeroes the access-denied counter and returns the value it
// held.
func (s *Stats) ResetForbidden() int64 {
	return s.forbiddenHits.Swap(0)
}

// Snapshot is the JSON shape served by the stats endpoint.
type Snapshot struct {
	UptimeSeconds  int64 `json:"uptimeSeconds"`
	TotalRequests  int64 `json:"totalRequests"`
	LyricsRequests int64 `json:"lyricsRequests"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed"`
	ForbiddenHits  int64 `json:"forbiddenHits"`
	CacheHits      int64 `json:"cacheHits"`
}

// Snapshot captures the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		TotalRequests:  s.totalRequests.Load(),
		LyricsRequests: s.lyricsRequests.Load(),
		Succeeded:      s.succeeded.Load(),
		Failed:         s.failed.Load(),
		ForbiddenHits:  s.forbiddenHits.Load(),
		CacheHits:      s.cacheHits.Load(),
	}
}
