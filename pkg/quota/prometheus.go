package quota

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder is a MetricsRecorder backed by a Prometheus registerer.
// Counters and histograms are created lazily on first use, with metric names
// sanitized into Prometheus form ("quota.call" becomes "quota_call").
type PrometheusRecorder struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusRecorder creates a recorder registering metrics on registerer.
// Pass prometheus.DefaultRegisterer to use the process-wide registry.
func NewPrometheusRecorder(registerer prometheus.Registerer) *PrometheusRecorder {
	return &PrometheusRecorder{
		registerer: registerer,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Add increments the counter identified by name. Tags are folded into the
// metric help text only; high-cardinality bucket ids do not become labels.
func (p *PrometheusRecorder) Add(name string, value float64, tags map[string]string) {
	p.mu.Lock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Name: sanitizeMetricName(name),
			Help: "call-quota counter " + name,
		})
		p.registerer.MustRegister(c)
		p.counters[name] = c
	}
	p.mu.Unlock()

	c.Add(value)
}

// Observe records value on the histogram identified by name.
func (p *PrometheusRecorder) Observe(name string, value float64, tags map[string]string) {
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    sanitizeMetricName(name),
			Help:    "call-quota observation " + name,
			Buckets: prometheus.DefBuckets,
		})
		p.registerer.MustRegister(h)
		p.histograms[name] = h
	}
	p.mu.Unlock()

	h.Observe(value)
}

func sanitizeMetricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
