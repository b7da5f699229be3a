// Prometheus bridge for the metrics manager. The manager remains the source
// of truth; the bridge translates a dump into Prometheus exposition on each
// scrape instead of double-writing into a second registry.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace for all exported metricsd metrics.
const namespace = "metricsd"

// Bridge exposes the manager's instruments as a prometheus.Collector. Each
// scrape takes a fresh dump, so exported values are exactly as consistent as
// the dump itself. Disabled instruments are still exported with their frozen
// values.
type Bridge struct {
	manager  *Manager
	registry *prometheus.Registry
}

// NewBridge creates a bridge backed by its own Prometheus registry, with the
// standard Go and process collectors registered alongside the manager.
func NewBridge(manager *Manager) *Bridge {
	registry := prometheus.NewRegistry()

	b := &Bridge{
		manager:  manager,
		registry: registry,
	}

	registry.MustRegister(b)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return b
}

// Registry returns the Prometheus registry for the HTTP exposition handler.
func (b *Bridge) Registry() *prometheus.Registry {
	return b.registry
}

// Describe implements prometheus.Collector. The instrument set grows at
// runtime, so the bridge is an unchecked collector and sends no descriptors.
func (b *Bridge) Describe(_ chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (b *Bridge) Collect(ch chan<- prometheus.Metric) {
	snap := b.manager.Dump()

	for _, scope := range snap.Scopes {
		for _, inst := range scope.Instruments {
			fqName := prometheus.BuildFQName(namespace, sanitizeName(scope.Name), sanitizeName(inst.Name))
			desc := prometheus.NewDesc(fqName, "metricsd managed instrument", nil, nil)

			switch inst.Kind {
			case KindCounter:
				if inst.Counter != nil {
					ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(*inst.Counter))
				}
			case KindGauge:
				if inst.Gauge != nil {
					ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, *inst.Gauge)
				}
			case KindHistogram:
				if inst.Histogram != nil {
					buckets := make(map[float64]uint64, len(inst.Histogram.Buckets))
					for _, bucket := range inst.Histogram.Buckets {
						if bucket.UpperBound == posInf {
							continue // +Inf is implied by the observation count
						}
						buckets[bucket.UpperBound] = bucket.Count
					}
					ch <- prometheus.MustNewConstHistogram(desc,
						inst.Histogram.Count, inst.Histogram.Sum, buckets)
				}
			}
		}
	}
}

// sanitizeName maps an arbitrary scope or instrument name onto the
// Prometheus metric name charset.
func sanitizeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for idx, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			sb.WriteRune(r)
		case r >= '0' && r <= '9' && idx > 0:
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
