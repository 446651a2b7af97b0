package metrics

import (
	"math"
	"slices"
	"sync"
	"time"
)

const defaultWindow = 4096

// Histogram keeps the most recent duration samples in a fixed-size ring and
// answers percentile queries over them.
type Histogram struct {
	mu      sync.Mutex
	samples []float64 // milliseconds
	next    int
	full    bool
}

// NewHistogram creates a histogram over the last window samples.
func NewHistogram(window int) *Histogram {
	if window <= 0 {
		window = defaultWindow
	}
	return &Histogram{samples: make([]float64, window)}
}

// Record adds a sample, overwriting the oldest once the window is full.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.next] = float64(d.Microseconds()) / 1000
	h.next++
	if h.next == len(h.samples) {
		h.next = 0
		h.full = true
	}
}

func (h *Histogram) window() []float64 {
	if h.full {
		return h.samples
	}
	return h.samples[:h.next]
}

// Summary computes latency statistics in milliseconds.
func (h *Histogram) Summary() LatencyStats {
	h.mu.Lock()
	sorted := slices.Clone(h.window())
	h.mu.Unlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return LatencyStats{
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		P99:   percentile(sorted, 99),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	idx := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Count returns the number of samples in the window.
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.window())
}

// Reset drops every sample.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next, h.full = 0, false
}
