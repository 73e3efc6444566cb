package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics tracks order sync and downstream notification outcomes.
type SyncMetrics struct {
	ordersUpserted *prometheus.CounterVec
	fetchFailures  prometheus.Counter
	blingNotify    *prometheus.CounterVec
	scanOutcomes   *prometheus.CounterVec
}

// NewSyncMetrics registers the sync collectors on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	ordersUpserted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_orders_upserted_total",
		Help: "Orders merged into the store by the sync engine.",
	}, []string{"status"})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_detail_fetch_failures_total",
		Help: "Per-order detail fetches that failed and were skipped.",
	})
	blingNotify := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bling_notify_total",
		Help: "Bling status notifications by outcome.",
	}, []string{"outcome"})
	scanOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_resolutions_total",
		Help: "Barcode scan resolutions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersUpserted, fetchFailures, blingNotify, scanOutcomes)
	return &SyncMetrics{
		ordersUpserted: ordersUpserted,
		fetchFailures:  fetchFailures,
		blingNotify:    blingNotify,
		scanOutcomes:   scanOutcomes,
	}
}

// IncOrderUpserted counts one merged order with its canonical status label.
func (s *SyncMetrics) IncOrderUpserted(status string) {
	if s == nil || s.ordersUpserted == nil {
		return
	}
	s.ordersUpserted.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncFetchFailure counts a swallowed per-order detail failure.
func (s *SyncMetrics) IncFetchFailure() {
	if s == nil || s.fetchFailures == nil {
		return
	}
	s.fetchFailures.Inc()
}

// IncBlingNotify counts a Bling notification outcome (success, failure, skipped).
func (s *SyncMetrics) IncBlingNotify(outcome string) {
	if s == nil || s.blingNotify == nil {
		return
	}
	s.blingNotify.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncScanOutcome counts a scan resolution outcome (updated, already_ready, rejected, not_found).
func (s *SyncMetrics) IncScanOutcome(outcome string) {
	if s == nil || s.scanOutcomes == nil {
		return
	}
	s.scanOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
