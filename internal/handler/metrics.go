package handler

import (
	"fmt"
	"net/http"

	"github.com/linkcut/linkcut/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "linkcut_redirect_cache_hits_total %d\n", snap.RedirectCacheHits)
	writeMetric(w, "linkcut_redirect_cache_misses_total %d\n", snap.RedirectCacheMisses)
	writeMetric(w, "linkcut_redirect_duration_seconds_count %d\n", snap.RedirectDurationCount)
	writeMetric(w, "linkcut_redirect_duration_seconds_sum %.6f\n", float64(snap.RedirectDurationTotalNs)/1e9)

	writeMetric(w, "linkcut_links_created_total %d\n", snap.LinksCreated)
	writeMetric(w, "linkcut_links_updated_total %d\n", snap.LinksUpdated)
	writeMetric(w, "linkcut_links_deleted_total %d\n", snap.LinksDeleted)
	writeMetric(w, "linkcut_quota_denied_total %d\n", snap.QuotaDenied)

	writeMetric(w, "linkcut_click_events_published_total{status=\"success\"} %d\n", snap.ClickEventsPublished)
	writeMetric(w, "linkcut_click_events_published_total{status=\"dropped\"} %d\n", snap.ClickEventsDropped)

	writeMetric(w, "linkcut_click_events_processed_total{status=\"success\"} %d\n", snap.ClickEventsProcessed)
	writeMetric(w, "linkcut_click_events_processed_total{status=\"failed\"} %d\n", snap.ClickEventsFailed)

	writeMetric(w, "linkcut_click_queue_depth %d\n", snap.ClickQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
