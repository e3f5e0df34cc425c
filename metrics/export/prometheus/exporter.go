package prometheus

import (
	"bytes"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	DroppedEvents() uint64
}

// PrometheusExporter exposes goSession metrics through client_golang.
//
// It owns a private registry; use [PrometheusExporter.Collector] to add the
// same metrics to an application registry instead.
type PrometheusExporter struct {
	source    metricsSource
	collector *Collector
	registry  *prom.Registry
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *goSession.Client) *PrometheusExporter {
	return NewPrometheusExporterFromSource(client)
}

// NewPrometheusExporterFromSource creates an exporter from any value that
// reports a snapshot and a dropped-event count.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	c := NewCollector(source)
	reg := prom.NewRegistry()
	reg.MustRegister(c)
	return &PrometheusExporter{source: source, collector: c, registry: reg}
}

// Collector returns the exporter's prometheus.Collector.
func (p *PrometheusExporter) Collector() *Collector {
	if p == nil {
		return nil
	}
	return p.collector
}

// Handler serves the metrics in the text exposition format.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Render returns the current metrics in text exposition format, or "" when
// nothing has been recorded.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	if isEmpty(p.source.MetricsSnapshot(), p.source.DroppedEvents()) {
		return ""
	}

	families, err := p.registry.Gather()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return ""
		}
	}
	return buf.String()
}

func isEmpty(s goSession.MetricsSnapshot, dropped uint64) bool {
	return len(s.Counters) == 0 && len(s.Histograms) == 0 && dropped == 0
}

// Collector implements prometheus.Collector over a metrics snapshot. Values
// are read at scrape time.
type Collector struct {
	source     metricsSource
	counters   []*prom.Desc
	histograms []*prom.Desc
	dropped    *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector builds a Collector for source.
func NewCollector(source metricsSource) *Collector {
	c := &Collector{
		source:  source,
		dropped: prom.NewDesc(internaldefs.DroppedEventsName, internaldefs.DroppedEventsHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.dropped
}

// Collect implements prometheus.Collector. Disabled metrics produce nothing.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snap := c.source.MetricsSnapshot()
	dropped := c.source.DroppedEvents()
	if isEmpty(snap, dropped) {
		return
	}

	if len(snap.Counters) > 0 {
		for i, def := range internaldefs.CounterDefs {
			ch <- prom.MustNewConstMetric(c.counters[i], prom.CounterValue, float64(snap.Counters[def.ID]))
		}
	}
	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snap.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, ub := range internaldefs.HistogramUpperBounds {
			buckets[ub] = cumulative[j]
		}
		// Snapshots carry no sum.
		ch <- prom.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- prom.MustNewConstMetric(c.dropped, prom.CounterValue, float64(dropped))
}
