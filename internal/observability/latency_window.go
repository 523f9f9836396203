package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Soft p95 target surfaced next to the percentiles on the staff page.
const ttfaTargetP95MS = 1400

// LatencyStats summarizes the recent time-to-first-audio samples.
type LatencyStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LatencySnapshot is the payload behind the staff perf endpoint.
type LatencySnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	TTFA        LatencyStats `json:"ttfa"`
	Incidents   []Indicator  `json:"incidents,omitempty"`
}

// ttfaWindow keeps a fixed ring of recent TTFA samples plus incident
// counters (stream errors).
type ttfaWindow struct {
	mu        sync.RWMutex
	values    []float64
	next      int
	filled    bool
	last      float64
	incidents map[string]int
}

func newTTFAWindow(maxSamples int) *ttfaWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &ttfaWindow{
		values:    make([]float64, maxSamples),
		incidents: make(map[string]int),
	}
}

func (w *ttfaWindow) Observe(ms float64) {
	if ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.values[w.next] = ms
	w.last = ms
	w.next++
	if w.next >= len(w.values) {
		w.next = 0
		w.filled = true
	}
}

func (w *ttfaWindow) ObserveIncident(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.incidents[name]++
}

func (w *ttfaWindow) Snapshot() LatencySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := w.next
	if w.filled {
		n = len(w.values)
	}

	stats := LatencyStats{Stage: StageTTFA, TargetP95MS: ttfaTargetP95MS}
	if n > 0 {
		samples := make([]float64, n)
		copy(samples, w.values[:n])
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}

		stats.Samples = n
		stats.LastMS = round2(w.last)
		stats.AvgMS = round2(sum / float64(n))
		stats.P50MS = round2(quantile(samples, 0.50))
		stats.P95MS = round2(quantile(samples, 0.95))
		stats.P99MS = round2(quantile(samples, 0.99))
	}

	names := make([]string, 0, len(w.incidents))
	for name := range w.incidents {
		names = append(names, name)
	}
	sort.Strings(names)

	incidents := make([]Indicator, 0, len(names))
	for _, name := range names {
		if w.incidents[name] <= 0 {
			continue
		}
		incidents = append(incidents, Indicator{Name: name, Count: w.incidents[name]})
	}

	return LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  len(w.values),
		TTFA:        stats,
		Incidents:   incidents,
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
