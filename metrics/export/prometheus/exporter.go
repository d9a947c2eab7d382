package prometheus

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source is what the collector reads. *goSession.Client satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   goSession.MetricID
	desc *prometheus.Desc
}

// Collector reads one snapshot per scrape.
type Collector struct {
	source       Source
	counters     []counterDesc
	histograms   []counterDesc
	auditDropped *prometheus.Desc
	inFlight     *prometheus.Desc
	waiters      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(source Source) *Collector {
	c := &Collector{
		source:       source,
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, "Audit events dropped due to dispatcher backpressure.", nil, nil),
		inFlight:     prometheus.NewDesc(internaldefs.RefreshInFlightName, internaldefs.RefreshInFlightHelp, nil, nil),
		waiters:      prometheus.NewDesc(internaldefs.RefreshWaitersName, internaldefs.RefreshWaitersHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.auditDropped
	ch <- c.inFlight
	ch <- c.waiters
}

// Collect emits the counters present in the snapshot. A client with metrics
// disabled yields only the audit drop counter and, when the source reports
// it, the refresh state.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, d := range c.counters {
		v, ok := snapshot.Counters[d.id]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(v))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.UpperBounds))
		for i, bound := range internaldefs.UpperBounds {
			buckets[bound] = cumulative[i]
		}
		// Sample sums are not tracked.
		ch <- prometheus.MustNewConstHistogram(d.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))

	if inFlight, waiters, ok := internaldefs.RefreshGauges(c.source); ok {
		ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(inFlight))
		ch <- prometheus.MustNewConstMetric(c.waiters, prometheus.GaugeValue, float64(waiters))
	}
}

// Handler serves source on a private registry.
func Handler(source Source) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
