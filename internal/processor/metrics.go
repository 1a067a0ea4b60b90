package processor

import (
	"sync/atomic"
	"time"
)

// ServiceMetrics keeps in-process counters for the periodic log report.
// Prometheus carries the same numbers per result label.
type ServiceMetrics struct {
	totalProcessed  int64
	totalFailed     int64
	totalSkipped    int64
	totalDurationNs int64
	lastResetNs     int64
}

type Stats struct {
	Processed     int64
	Failed        int64
	Skipped       int64
	RatePerSecond float64
	AvgDuration   time.Duration
	Uptime        time.Duration
}

func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{
		lastResetNs: time.Now().UnixNano(),
	}
}

func (m *ServiceMetrics) RecordSuccess(duration time.Duration) {
	atomic.AddInt64(&m.totalProcessed, 1)
	atomic.AddInt64(&m.totalDurationNs, int64(duration))
}

func (m *ServiceMetrics) RecordFailure() {
	atomic.AddInt64(&m.totalFailed, 1)
}

// RecordSkip counts callbacks acked without reconciling (duplicates, malformed).
func (m *ServiceMetrics) RecordSkip() {
	atomic.AddInt64(&m.totalSkipped, 1)
}

func (m *ServiceMetrics) GetStats() Stats {
	processed := atomic.LoadInt64(&m.totalProcessed)
	durationNs := atomic.LoadInt64(&m.totalDurationNs)
	elapsed := time.Since(time.Unix(0, atomic.LoadInt64(&m.lastResetNs)))

	s := Stats{
		Processed: processed,
		Failed:    atomic.LoadInt64(&m.totalFailed),
		Skipped:   atomic.LoadInt64(&m.totalSkipped),
		Uptime:    elapsed,
	}
	if elapsed > 0 {
		s.RatePerSecond = float64(processed) / elapsed.Seconds()
	}
	if processed > 0 {
		s.AvgDuration = time.Duration(durationNs / processed)
	}
	return s
}

func (m *ServiceMetrics) Reset() {
	atomic.StoreInt64(&m.totalProcessed, 0)
	atomic.StoreInt64(&m.totalFailed, 0)
	atomic.StoreInt64(&m.totalSkipped, 0)
	atomic.StoreInt64(&m.totalDurationNs, 0)
	atomic.StoreInt64(&m.lastResetNs, time.Now().UnixNano())
}
