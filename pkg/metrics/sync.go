package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records message delivery and live-feed reconciliation outcomes.
type SyncMetrics struct {
	messages        *prometheus.CounterVec
	feedRebuilds    *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat message delivery outcomes.",
	}, []string{"outcome"})
	feedRebuilds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_rebuild_total",
		Help: "Live feed subscription rebuild outcomes.",
	}, []string{"result"})
	rebuildDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_rebuild_duration_seconds",
		Help:    "Duration of feed subscription rebuilds in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})
	reg.MustRegister(messages, feedRebuilds, rebuildDuration)
	return &SyncMetrics{
		messages:        messages,
		feedRebuilds:    feedRebuilds,
		rebuildDuration: rebuildDuration,
	}
}

// IncMessageSent increments the sent-message counter.
func (s *SyncMetrics) IncMessageSent() {
	s.incMessage("sent")
}

// IncMessageFailed increments the failed-message counter.
func (s *SyncMetrics) IncMessageFailed() {
	s.incMessage("failed")
}

// IncMessageRetried increments the retried-message counter.
func (s *SyncMetrics) IncMessageRetried() {
	s.incMessage("retried")
}

func (s *SyncMetrics) incMessage(outcome string) {
	if s == nil || s.messages == nil {
		return
	}
	s.messages.WithLabelValues(outcome).Inc()
}

// IncFeedRebuilt increments the rebuild counter for feeds that re-subscribed.
func (s *SyncMetrics) IncFeedRebuilt() {
	s.incFeedRebuild("rebuilt")
}

// IncFeedSkipped increments the rebuild counter for feeds whose scope was unchanged.
func (s *SyncMetrics) IncFeedSkipped() {
	s.incFeedRebuild("skipped")
}

func (s *SyncMetrics) incFeedRebuild(result string) {
	if s == nil || s.feedRebuilds == nil {
		return
	}
	s.feedRebuilds.WithLabelValues(result).Inc()
}

// ObserveRebuildDuration records how long the named feed took to rebuild.
func (s *SyncMetrics) ObserveRebuildDuration(feed string, duration time.Duration) {
	if s == nil || s.rebuildDuration == nil {
		return
	}
	s.rebuildDuration.WithLabelValues(normalizeLabel(feed)).Observe(duration.Seconds())
}

func normalizeLabel(feed string) string {
	if feed == "" {
		return "unknown"
	}
	return feed
}
