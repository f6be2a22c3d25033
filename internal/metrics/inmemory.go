package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RedirectCacheHits       uint64
	RedirectCacheMisses     uint64
	RedirectDurationCount   uint64
	RedirectDurationTotalNs int64
	LinksCreated            uint64
	LinksUpdated            uint64
	LinksDeleted            uint64
	QuotaDenied             uint64
	ClickEventsPublished    uint64
	ClickEventsDropped      uint64
	ClickEventsProcessed    uint64
	ClickEventsFailed       uint64
	ClickQueueDepth         int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	redirectCacheHits       uint64
	redirectCacheMisses     uint64
	redirectDurationCount   uint64
	redirectDurationTotalNs int64
	linksCreated            uint64
	linksUpdated            uint64
	linksDeleted            uint64
	quotaDenied             uint64
	clickEventsPublished    uint64
	clickEventsDropped      uint64
	clickEventsProcessed    uint64
	clickEventsFailed       uint64
	clickQueueDepth         int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RedirectCacheHits:       atomic.LoadUint64(&m.redirectCacheHits),
		RedirectCacheMisses:     atomic.LoadUint64(&m.redirectCacheMisses),
		RedirectDurationCount:   atomic.LoadUint64(&m.redirectDurationCount),
		RedirectDurationTotalNs: atomic.LoadInt64(&m.redirectDurationTotalNs),
		LinksCreated:            atomic.LoadUint64(&m.linksCreated),
		LinksUpdated:            atomic.LoadUint64(&m.linksUpdated),
		LinksDeleted:            atomic.LoadUint64(&m.linksDeleted),
		QuotaDenied:             atomic.LoadUint64(&m.quotaDenied),
		ClickEventsPublished:    atomic.LoadUint64(&m.clickEventsPublished),
		ClickEventsDropped:      atomic.LoadUint64(&m.clickEventsDropped),
		ClickEventsProcessed:    atomic.LoadUint64(&m.clickEventsProcessed),
		ClickEventsFailed:       atomic.LoadUint64(&m.clickEventsFailed),
		ClickQueueDepth:         atomic.LoadInt64(&m.clickQueueDepth),
	}
}

// IncRedirectCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncRedirectCacheHit() {
	atomic.AddUint64(&m.redirectCacheHits, 1)
}

// IncRedirectCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncRedirectCacheMiss() {
	atomic.AddUint64(&m.redirectCacheMisses, 1)
}

// ObserveRedirectDuration records redirect duration.
func (m *InMemoryRecorder) ObserveRedirectDuration(duration time.Duration) {
	atomic.AddUint64(&m.redirectDurationCount, 1)
	atomic.AddInt64(&m.redirectDurationTotalNs, duration.Nanoseconds())
}

// IncLinkCreated increments link created counter.
func (m *InMemoryRecorder) IncLinkCreated() {
	atomic.AddUint64(&m.linksCreated, 1)
}

// IncLinkUpdated increments link updated counter.
func (m *InMemoryRecorder) IncLinkUpdated() {
	atomic.AddUint64(&m.linksUpdated, 1)
}

// IncLinkDeleted increments link deleted counter.
func (m *InMemoryRecorder) IncLinkDeleted() {
	atomic.AddUint64(&m.linksDeleted, 1)
}

// IncQuotaDenied increments the quota denial counter.
func (m *InMemoryRecorder) IncQuotaDenied() {
	atomic.AddUint64(&m.quotaDenied, 1)
}

// IncClickEventPublished counts publish attempts by status.
func (m *InMemoryRecorder) IncClickEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.clickEventsPublished, 1)
	}
}

// IncClickEventDropped counts events discarded due to a full backlog.
func (m *InMemoryRecorder) IncClickEventDropped() {
	atomic.AddUint64(&m.clickEventsDropped, 1)
}

// IncClickEventProcessed counts processed events by status.
func (m *InMemoryRecorder) IncClickEventProcessed(status string) {
	if status == "success" {
		atomic.AddUint64(&m.clickEventsProcessed, 1)
	} else {
		atomic.AddUint64(&m.clickEventsFailed, 1)
	}
}

// ObserveClickBatchSize records batch size.
func (m *InMemoryRecorder) ObserveClickBatchSize(size int) {}

// ObserveClickBatchDuration records batch processing duration.
func (m *InMemoryRecorder) ObserveClickBatchDuration(duration time.Duration) {}

// SetClickQueueDepth records the stream backlog depth.
func (m *InMemoryRecorder) SetClickQueueDepth(depth int64) {
	atomic.StoreInt64(&m.clickQueueDepth, depth)
}

// ObserveClickIngestLag records end-to-end event lag.
func (m *InMemoryRecorder) ObserveClickIngestLag(lag time.Duration) {}
