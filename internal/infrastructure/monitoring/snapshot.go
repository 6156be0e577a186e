package monitoring

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// windowSize is how many recent transfer sizes feed the JSON summary.
const windowSize = 1024

// window is a fixed-size ring of recent samples.
type window struct {
	samples []float64
	next    int
	full    bool
}

func newWindow(size int) *window {
	return &window{samples: make([]float64, size)}
}

func (w *window) add(v float64) {
	w.samples[w.next] = v
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

func (w *window) values() []float64 {
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	out := make([]float64, n)
	copy(out, w.samples[:n])
	return out
}

// SizeSummary describes recent transfer sizes in bytes.
type SizeSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

func summarize(x []float64) SizeSummary {
	if len(x) == 0 {
		return SizeSummary{}
	}
	sort.Float64s(x)

	s := SizeSummary{
		Count: len(x),
		Mean:  stat.Mean(x, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, x, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, x, nil),
		Max:   x[len(x)-1],
	}
	if len(x) > 1 {
		s.StdDev = stat.StdDev(x, nil)
	}
	return s
}

// Snapshot is the JSON view of the collector.
type Snapshot struct {
	UptimeSeconds     float64     `json:"uptime_seconds"`
	TotalRequests     int64       `json:"total_requests"`
	TotalErrors       int64       `json:"total_errors"`
	AvgLatencyMs      float64     `json:"avg_latency_ms"`
	ActiveConnections int64       `json:"active_connections"`
	PipesCreated      int64       `json:"pipes_created"`
	PipesRemoved      int64       `json:"pipes_removed"`
	BytesRead         int64       `json:"bytes_read"`
	BytesWritten      int64       `json:"bytes_written"`
	FailedTransfers   int64       `json:"failed_transfers"`
	ReadSizes         SizeSummary `json:"read_sizes"`
	WriteSizes        SizeSummary `json:"write_sizes"`
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	c := m.snapshot
	reads := m.reads.values()
	writes := m.writes.values()
	m.mu.Unlock()

	s := Snapshot{
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
		TotalRequests:     c.requests,
		TotalErrors:       c.errors,
		ActiveConnections: c.connections,
		PipesCreated:      c.created,
		PipesRemoved:      c.removed,
		BytesRead:         c.bytesRead,
		BytesWritten:      c.bytesWritten,
		FailedTransfers:   c.failures,
		ReadSizes:         summarize(reads),
		WriteSizes:        summarize(writes),
	}
	if c.requests > 0 {
		s.AvgLatencyMs = c.totalDuration / float64(c.requests) * 1000
	}
	return s
}
