package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRedirectCacheHit is a no-op.
func (n *NoopRecorder) IncRedirectCacheHit() {}

// IncRedirectCacheMiss is a no-op.
func (n *NoopRecorder) IncRedirectCacheMiss() {}

// ObserveRedirectDuration is a no-op.
func (n *NoopRecorder) ObserveRedirectDuration(duration time.Duration) {}

// IncLinkCreated is a no-op.
func (n *NoopRecorder) IncLinkCreated() {}

// IncLinkUpdated is a no-op.
func (n *NoopRecorder) IncLinkUpdated() {}

// IncLinkDeleted is a no-op.
func (n *NoopRecorder) IncLinkDeleted() {}

// IncQuotaDenied is a no-op.
func (n *NoopRecorder) IncQuotaDenied() {}

// IncClickEventPublished is a no-op.
func (n *NoopRecorder) IncClickEventPublished(status string) {}

// IncClickEventDropped is a no-op.
func (n *NoopRecorder) IncClickEventDropped() {}

// IncClickEventProcessed is a no-op.
func (n *NoopRecorder) IncClickEventProcessed(status string) {}

// ObserveClickBatchSize is a no-op.
func (n *NoopRecorder) ObserveClickBatchSize(size int) {}

// ObserveClickBatchDuration is a no-op.
func (n *NoopRecorder) ObserveClickBatchDuration(duration time.Duration) {}

// SetClickQueueDepth is a no-op.
func (n *NoopRecorder) SetClickQueueDepth(depth int64) {}

// ObserveClickIngestLag is a no-op.
func (n *NoopRecorder) ObserveClickIngestLag(lag time.Duration) {}
