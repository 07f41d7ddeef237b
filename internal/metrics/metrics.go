package metrics

import (
	"errors"
	"net/http"

	evbus "github.com/asaskevich/EventBus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventhub/internal/events"
	"eventhub/internal/scraper"
)

const namespace = "eventhub"

// Metrics records ingestion activity from the service bus.
type Metrics struct {
	Registry *prometheus.Registry

	ingestRuns   *prometheus.CounterVec
	eventsAdded  *prometheus.CounterVec
	pages        prometheus.Counter
	pageFailures prometheus.Counter
	storeEvents  prometheus.Gauge
	lastSuccess  prometheus.Gauge
	savedToggles prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.ingestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_runs_total",
		Help:      "Ingestion runs by outcome (upstream, fallback, noop, failed).",
	}, []string{"outcome"})
	m.eventsAdded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_added_total",
		Help:      "Events appended to the store by origin.",
	}, []string{"origin"})
	m.pages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_pages_total",
		Help:      "Upstream page requests issued.",
	})
	m.pageFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_page_failures_total",
		Help:      "Upstream page requests that stopped pagination with an error.",
	})
	m.storeEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_events",
		Help:      "Events in the store after the last successful run.",
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run.",
	})
	m.savedToggles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saved_toggles_total",
		Help:      "Saved flag changes.",
	})

	m.Registry.MustRegister(
		m.ingestRuns, m.eventsAdded, m.pages, m.pageFailures,
		m.storeEvents, m.lastSuccess, m.savedToggles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Attach subscribes synchronously so counters are current when a refresh
// returns.
func (m *Metrics) Attach(bus evbus.Bus) error {
	return errors.Join(
		bus.Subscribe(events.TopicIngested, m.ObserveIngest),
		bus.Subscribe(events.TopicIngestFailed, m.ObserveFailure),
		bus.Subscribe(events.TopicSaved, func(events.SavedEvent) { m.savedToggles.Inc() }),
	)
}

func (m *Metrics) ObserveIngest(e events.IngestedEvent) {
	outcome := "upstream"
	origin := "upstream"
	switch {
	case len(e.Added) == 0:
		outcome = "noop"
	case e.Fallback:
		outcome = "fallback"
		origin = "fallback"
	}
	m.ingestRuns.WithLabelValues(outcome).Inc()
	m.eventsAdded.WithLabelValues(origin).Add(float64(len(e.Added)))
	m.pages.Add(float64(e.Pages))
	if errors.Is(e.PageErr, scraper.ErrUpstreamPageFailed) {
		m.pageFailures.Inc()
	}
	m.storeEvents.Set(float64(e.Total))
	m.lastSuccess.Set(float64(e.At.Unix()))
}

func (m *Metrics) ObserveFailure(events.IngestFailedEvent) {
	m.ingestRuns.WithLabelValues("failed").Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
