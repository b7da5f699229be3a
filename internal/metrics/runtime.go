package metrics

import (
	"context"
	"runtime"
	"time"
)

// Runtime sampler scope and instrument names.
const (
	RuntimeScope = "runtime"

	MetricGoroutines  = "goroutines"
	MetricHeapAlloc   = "heap_alloc_bytes"
	MetricHeapObjects = "heap_objects"
	MetricGCCycles    = "gc_cycles"
	MetricUptime      = "uptime_seconds"
)

// RuntimeSampler periodically records Go runtime measurements into the
// manager so they show up in dumps like any other instrument and can be
// toggled through the normal enable path.
type RuntimeSampler struct {
	manager   *Manager
	interval  time.Duration
	startTime time.Time
}

// NewRuntimeSampler creates a sampler recording into the given manager.
func NewRuntimeSampler(manager *Manager, interval time.Duration) *RuntimeSampler {
	return &RuntimeSampler{
		manager:   manager,
		interval:  interval,
		startTime: time.Now(),
	}
}

// Run samples immediately and then on every tick until the context is
// canceled.
func (s *RuntimeSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sample()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample records one round of runtime measurements.
func (s *RuntimeSampler) Sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	_ = s.manager.Set(RuntimeScope, MetricGoroutines, float64(runtime.NumGoroutine()))
	_ = s.manager.Set(RuntimeScope, MetricHeapAlloc, float64(memStats.Alloc))
	_ = s.manager.Set(RuntimeScope, MetricHeapObjects, float64(memStats.HeapObjects))
	_ = s.manager.Set(RuntimeScope, MetricGCCycles, float64(memStats.NumGC))
	_ = s.manager.Set(RuntimeScope, MetricUptime, time.Since(s.startTime).Seconds())
}
