// Package metrics implements the process-wide metrics manager for metricsd.
// Measurement instruments (counters, gauges, histograms) are grouped into
// named scopes, can be toggled on and off at runtime without restarting the
// process, and can be dumped as a structured snapshot while recordings
// continue on other goroutines.
package metrics

import (
	"sort"
	"sync"
)

// Kind represents the type of an instrument.
type Kind string

const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindHistogram Kind = "histogram"
)

// Valid reports whether k is one of the known instrument kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCounter, KindGauge, KindHistogram:
		return true
	}
	return false
}

// DefaultBuckets are the histogram bucket upper bounds used when an
// instrument is created without explicit buckets.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0}

// Instrument is a single measurable quantity. Identity (scope, name, kind)
// is immutable after creation; instruments live for the process lifetime.
//
// The mutex guards both the enabled flag and the value state, so toggling
// and a single recording are atomic relative to each other: a recording
// either completes before a disable takes effect or is dropped entirely.
type Instrument struct {
	scope string
	name  string
	kind  Kind

	mu      sync.Mutex
	enabled bool
	counter int64
	gauge   float64
	hist    histogram
}

// histogram is the accumulator state for a histogram instrument. bounds are
// the bucket upper bounds; counts has one extra slot for the overflow bucket.
type histogram struct {
	bounds []float64
	counts []uint64
	sum    float64
	count  uint64
}

func newInstrument(scope, name string, kind Kind, buckets []float64) *Instrument {
	inst := &Instrument{
		scope:   scope,
		name:    name,
		kind:    kind,
		enabled: true,
	}
	if kind == KindHistogram {
		if len(buckets) == 0 {
			buckets = DefaultBuckets
		}
		bounds := make([]float64, len(buckets))
		copy(bounds, buckets)
		sort.Float64s(bounds)
		inst.hist = histogram{
			bounds: bounds,
			counts: make([]uint64, len(bounds)+1),
		}
	}
	return inst
}

// Scope returns the name of the scope owning the instrument.
func (i *Instrument) Scope() string { return i.scope }

// Name returns the instrument name, unique within its scope.
func (i *Instrument) Name() string { return i.name }

// Kind returns the instrument kind.
func (i *Instrument) Kind() Kind { return i.kind }

// Enabled reports whether the instrument currently accepts recordings.
func (i *Instrument) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}

// SetEnabled toggles whether the instrument accepts recordings. Disabling
// freezes the value state; enabling resumes recordings without resetting it.
func (i *Instrument) SetEnabled(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.enabled = enabled
}

// Record applies a measurement. Recordings against a disabled instrument are
// dropped silently; disabled-ness is a normal operating mode, not a fault.
// For counters the value is added as an integer delta; negative deltas would
// break monotonicity and are dropped.
func (i *Instrument) Record(value float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled {
		return
	}

	switch i.kind {
	case KindCounter:
		if value < 0 {
			return
		}
		i.counter += int64(value)
	case KindGauge:
		i.gauge = value
	case KindHistogram:
		idx := sort.SearchFloat64s(i.hist.bounds, value)
		i.hist.counts[idx]++
		i.hist.sum += value
		i.hist.count++
	}
}

// snapshot returns a deep copy of the instrument's current state. The lock
// is held only for the duration of one instrument read.
func (i *Instrument) snapshot() InstrumentSnapshot {
	i.mu.Lock()
	defer i.mu.Unlock()

	snap := InstrumentSnapshot{
		Name:    i.name,
		Kind:    i.kind,
		Enabled: i.enabled,
	}

	switch i.kind {
	case KindCounter:
		v := i.counter
		snap.Counter = &v
	case KindGauge:
		v := i.gauge
		snap.Gauge = &v
	case KindHistogram:
		buckets := make([]BucketSnapshot, len(i.hist.bounds)+1)
		cumulative := uint64(0)
		for idx, bound := range i.hist.bounds {
			cumulative += i.hist.counts[idx]
			buckets[idx] = BucketSnapshot{UpperBound: bound, Count: cumulative}
		}
		cumulative += i.hist.counts[len(i.hist.bounds)]
		buckets[len(i.hist.bounds)] = BucketSnapshot{UpperBound: posInf, Count: cumulative}
		snap.Histogram = &HistogramSnapshot{
			Buckets: buckets,
			Sum:     i.hist.sum,
			Count:   i.hist.count,
		}
	}

	return snap
}
