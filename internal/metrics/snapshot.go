package metrics

import (
	"math"
	"time"
)

var posInf = math.Inf(1)

// Snapshot is an immutable point-in-time view of the whole registry. It
// never aliases live instrument state; every value is a deep copy taken
// under the owning instrument's lock.
type Snapshot struct {
	TakenAt time.Time       `json:"taken_at" yaml:"taken_at"`
	Scopes  []ScopeSnapshot `json:"scopes" yaml:"scopes"`
}

// ScopeSnapshot holds the instruments of one scope in creation order.
type ScopeSnapshot struct {
	Name        string               `json:"name" yaml:"name"`
	Instruments []InstrumentSnapshot `json:"instruments" yaml:"instruments"`
}

// InstrumentSnapshot is the frozen state of a single instrument. Exactly one
// of Counter, Gauge or Histogram is set, matching Kind.
type InstrumentSnapshot struct {
	Name      string             `json:"name" yaml:"name"`
	Kind      Kind               `json:"kind" yaml:"kind"`
	Enabled   bool               `json:"enabled" yaml:"enabled"`
	Counter   *int64             `json:"counter,omitempty" yaml:"counter,omitempty"`
	Gauge     *float64           `json:"gauge,omitempty" yaml:"gauge,omitempty"`
	Histogram *HistogramSnapshot `json:"histogram,omitempty" yaml:"histogram,omitempty"`
}

// HistogramSnapshot holds cumulative bucket counts plus sum and count.
type HistogramSnapshot struct {
	Buckets []BucketSnapshot `json:"buckets" yaml:"buckets"`
	Sum     float64          `json:"sum" yaml:"sum"`
	Count   uint64           `json:"count" yaml:"count"`
}

// BucketSnapshot is one cumulative histogram bucket. The final bucket has an
// upper bound of +Inf and its count equals the histogram count.
type BucketSnapshot struct {
	UpperBound float64 `json:"le" yaml:"le"`
	Count      uint64  `json:"count" yaml:"count"`
}

// Lookup returns the snapshot of a named instrument, or false if the scope
// or instrument is not present in the snapshot.
func (s Snapshot) Lookup(scope, instrument string) (InstrumentSnapshot, bool) {
	for _, sc := range s.Scopes {
		if sc.Name != scope {
			continue
		}
		for _, inst := range sc.Instruments {
			if inst.Name == instrument {
				return inst, true
			}
		}
	}
	return InstrumentSnapshot{}, false
}
