// Package metrics exposes Prometheus metrics for sentence ingestion.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FocuswithJustin/xmlinput/core/sentence"
)

// Namespace prefixes every metric name.
const Namespace = "xmlinput"

// Result labels.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Collector owns a private registry and the ingestion metrics.
// All methods are safe for concurrent use; a nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	sentencesTotal    *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	annotationsTotal  *prometheus.CounterVec
	tokensPerSentence prometheus.Histogram
	cacheHitsTotal    prometheus.Counter
	cacheMissesTotal  prometheus.Counter
	configReloads     prometheus.Counter
}

// New creates a collector. A nil registry gets a fresh one with the Go
// runtime and process collectors attached.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		sentencesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sentences_total",
			Help:      "Sentences ingested, by path and result.",
		}, []string{"path", "result"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rejections_total",
			Help:      "Rejected sentences, by error kind.",
		}, []string{"kind"}),
		annotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "annotations_total",
			Help:      "Markup annotations materialized, by constraint class.",
		}, []string{"tag"}),
		tokensPerSentence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "tokens_per_sentence",
			Help:      "Token count of accepted sentences.",
			Buckets:   []float64{1, 5, 10, 20, 40, 80, 160, 320},
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Sentence cache hits.",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_misses_total",
			Help:      "Sentence cache misses.",
		}),
		configReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration hot reloads applied.",
		}),
	}

	registry.MustRegister(
		c.sentencesTotal,
		c.rejectionsTotal,
		c.annotationsTotal,
		c.tokensPerSentence,
		c.cacheHitsTotal,
		c.cacheMissesTotal,
		c.configReloads,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordAccepted records an ingested sentence of tokens tokens. tags lists
// the constraint class of each annotation (see TagClass).
func (c *Collector) RecordAccepted(path string, tokens int, tags []string) {
	if c == nil {
		return
	}
	c.sentencesTotal.WithLabelValues(path, ResultAccepted).Inc()
	c.tokensPerSentence.Observe(float64(tokens))
	for _, tag := range tags {
		c.annotationsTotal.WithLabelValues(TagClass(tag)).Inc()
	}
}

// RecordRejected records a sentence rejected with an error of kind.
func (c *Collector) RecordRejected(path, kind string) {
	if c == nil {
		return
	}
	c.sentencesTotal.WithLabelValues(path, ResultRejected).Inc()
	c.rejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordCache records a sentence cache lookup.
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheHitsTotal.Inc()
	} else {
		c.cacheMissesTotal.Inc()
	}
}

// RecordConfigReload records an applied configuration reload.
func (c *Collector) RecordConfigReload() {
	if c == nil {
		return
	}
	c.configReloads.Inc()
}

// TagClass maps an element name to a bounded label value: the reserved
// tags keep their name and every other tag counts as "forced".
func TagClass(tag string) string {
	switch tag {
	case sentence.TagWall, sentence.TagZone, sentence.TagPlaceholder:
		return tag
	}
	return "forced"
}
