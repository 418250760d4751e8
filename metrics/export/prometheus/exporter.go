package prometheus

import (
	"net/http"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is what the exporter reads on every scrape. *blogAuth.Engine
// satisfies it.
type MetricsSource interface {
	MetricsSnapshot() blogAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Collector adapts engine metrics to a prometheus.Collector. Values are
// read from a fresh snapshot per scrape, so nothing is cached here.
type Collector struct {
	source       MetricsSource
	counters     []*prometheus.Desc
	histograms   []*prometheus.Desc
	auditDropped *prometheus.Desc
	bounds       []float64
}

// NewCollector builds a collector over source.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms:   make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		bounds:       internaldefs.UpperBounds(),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(c.bounds))
		for j, bound := range c.bounds {
			buckets[bound] = cumulative[j]
		}
		// The engine does not track a running sum.
		ch <- prometheus.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Exporter owns a private registry holding the engine collector.
type Exporter struct {
	registry *prometheus.Registry
}

// NewExporter registers an engine collector on a new registry.
func NewExporter(engine *blogAuth.Engine) (*Exporter, error) {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource is NewExporter over any MetricsSource.
func NewExporterFromSource(source MetricsSource) (*Exporter, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(source)); err != nil {
		return nil, err
	}
	return &Exporter{registry: registry}, nil
}

// Registry exposes the registry so callers can add process or Go collectors.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
