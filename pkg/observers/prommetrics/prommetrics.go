// Package prommetrics exposes cache events and counters as Prometheus metrics.
package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/notify"
)

const defaultNamespace = "atoms"

// Observer counts cache events by cache name and kind.
type Observer struct {
	events *prometheus.CounterVec
}

var _ notify.Observer = (*Observer)(nil)

// NewObserver creates an Observer. An empty namespace defaults to "atoms".
func NewObserver(namespace string) *Observer {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Observer{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache lifecycle events by cache and kind.",
		}, []string{"cache", "kind"}),
	}
}

// Register registers the observer's metrics with reg.
func (o *Observer) Register(reg prometheus.Registerer) error {
	return reg.Register(o.events)
}

func (o *Observer) inc(cache string, kind models.EventKind) error {
	o.events.WithLabelValues(cache, kind.String()).Inc()
	return nil
}

func (o *Observer) OnPut(cache, _ string, _ any) error {
	return o.inc(cache, models.EventPut)
}

func (o *Observer) OnRemoved(cache, _ string) error {
	return o.inc(cache, models.EventRemoved)
}

func (o *Observer) OnEvicted(cache, _ string, _ any) error {
	return o.inc(cache, models.EventEvicted)
}

func (o *Observer) OnExpired(cache, _ string) error {
	return o.inc(cache, models.EventExpired)
}

func (o *Observer) OnClearAll(cache string) error {
	return o.inc(cache, models.EventClearedAll)
}

// StatsSource is a cache whose counters can be collected.
type StatsSource interface {
	Name() string
	Stats() models.Stats
}

// Collector reports the counters of a fixed set of caches on every scrape.
type Collector struct {
	sources []StatsSource

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
	rejections  *prometheus.Desc
	size        *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector over sources.
func NewCollector(namespace string, sources ...StatsSource) *Collector {
	if namespace == "" {
		namespace = defaultNamespace
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, []string{"cache"}, nil)
	}
	return &Collector{
		sources:     sources,
		hits:        desc("hits_total", "Lookups that found a live entry."),
		misses:      desc("misses_total", "Lookups that found nothing or an expired entry."),
		evictions:   desc("evictions_total", "Entries removed to make room for new keys."),
		expirations: desc("expirations_total", "Entries removed because their TTL elapsed."),
		rejections:  desc("rejections_total", "Puts rejected because the cache was full."),
		size:        desc("entries", "Entries currently stored."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.expirations
	ch <- c.rejections
	ch <- c.size
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		name := src.Name()
		s := src.Stats()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), name)
		ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions), name)
		ch <- prometheus.MustNewConstMetric(c.expirations, prometheus.CounterValue, float64(s.Expirations), name)
		ch <- prometheus.MustNewConstMetric(c.rejections, prometheus.CounterValue, float64(s.Rejections), name)
		ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size), name)
	}
}
