package qdispatch

import (
	"slices"
	"sync"
	"time"
)

/*
Metrics tracks task counters and latency for a pool. Latency percentiles are
computed over a sliding window of the most recent executions.
*/
type Metrics struct {
	mu sync.RWMutex

	Submitted int64
	Completed int64
	Failed    int64
	Dropped   int64
	Cancelled int64
	Retries   int64

	TotalJobTime      time.Duration
	AverageJobLatency time.Duration
	P95JobLatency     time.Duration
	P99JobLatency     time.Duration
	JobSuccessRate    float64

	latencyWindow []time.Duration
	windowSize    int
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencyWindow: make([]time.Duration, 0, 1000),
		windowSize:    1000,
	}
}

func (m *Metrics) recordSubmit() {
	m.mu.Lock()
	m.Submitted++
	m.mu.Unlock()
}

func (m *Metrics) recordDropped(n int) {
	m.mu.Lock()
	m.Dropped += int64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCancelled() {
	m.mu.Lock()
	m.Cancelled++
	m.mu.Unlock()
}

func (m *Metrics) recordRetry() {
	m.mu.Lock()
	m.Retries++
	m.mu.Unlock()
}

// recordJobExecution accounts one finished task.
func (m *Metrics) recordJobExecution(duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalJobTime += duration
	if success {
		m.Completed++
	} else {
		m.Failed++
	}

	finished := m.Completed + m.Failed
	m.JobSuccessRate = float64(m.Completed) / float64(finished)
	m.AverageJobLatency = m.TotalJobTime / time.Duration(finished)

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.latencyWindow = append(m.latencyWindow, duration)
	if len(m.latencyWindow) > m.windowSize {
		m.latencyWindow = m.latencyWindow[1:]
	}

	sorted := slices.Clone(m.latencyWindow)
	slices.Sort(sorted)

	p95Index := min(int(float64(len(sorted))*0.95), len(sorted)-1)
	p99Index := min(int(float64(len(sorted))*0.99), len(sorted)-1)

	m.P95JobLatency = sorted[p95Index]
	m.P99JobLatency = sorted[p99Index]
}

// ExportMetrics flattens the counters for logging or an external collector.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"submitted":    m.Submitted,
		"completed":    m.Completed,
		"failed":       m.Failed,
		"dropped":      m.Dropped,
		"cancelled":    m.Cancelled,
		"retries":      m.Retries,
		"success_rate": m.JobSuccessRate,
		"avg_latency":  m.AverageJobLatency.Milliseconds(),
		"p95_latency":  m.P95JobLatency.Milliseconds(),
		"p99_latency":  m.P99JobLatency.Milliseconds(),
	}
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers    int
	QueueDepth int
	InFlight   int
	Submitted  int64
	Completed  int64
	Failed     int64
	Dropped    int64
	Cancelled  int64
	Retries    int64
	AvgLatency time.Duration
	P95Latency time.Duration
}

func (m *Metrics) snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Submitted:  m.Submitted,
		Completed:  m.Completed,
		Failed:     m.Failed,
		Dropped:    m.Dropped,
		Cancelled:  m.Cancelled,
		Retries:    m.Retries,
		AvgLatency: m.AverageJobLatency,
		P95Latency: m.P95JobLatency,
	}
}
