// Package metrics tracks scraper and delivery metrics in a Prometheus registry.
//
// A Metrics value owns its own registry so tests and multiple instances never collide
// on the global default registerer. It satisfies scraper.Recorder, and Handler exposes
// the registry in the Prometheus text format for the API's /metrics endpoint.
//
// Example usage:
//
//	m := metrics.New()
//	sc := scraper.New().WithRecorder(m)
//	m.NotificationSent("telegram", err)
//	e.GET("/metrics", echo.WrapHandler(m.Handler()))
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mooc_notices"

// Metrics holds the collectors for one process
type Metrics struct {
	registry *prometheus.Registry

	fetchRequests    *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	domainFallbacks  prometheus.Counter
	coursesParsed    prometheus.Counter
	cardsDropped     prometheus.Counter
	announcements    prometheus.Counter
	notifications    *prometheus.CounterVec
	checkRuns        *prometheus.CounterVec
	newAnnouncements prometheus.Gauge
}

// New creates a Metrics with all collectors registered, plus Go runtime collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Outbound page fetches by host and HTTP status.",
		}, []string{"host", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to first byte of outbound page fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		domainFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_fallbacks_total",
			Help:      "Announcement fetches retried on the secondary domain after a 404.",
		}),
		coursesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "courses_parsed_total",
			Help:      "Courses extracted from search results.",
		}),
		cardsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_dropped_total",
			Help:      "Course cards skipped because no course code could be derived.",
		}),
		announcements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_parsed_total",
			Help:      "Announcements extracted from course pages.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
		checkRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_runs_total",
			Help:      "Announcement check runs by result.",
		}, []string{"result"}),
		newAnnouncements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_check_new_announcements",
			Help:      "New announcements found by the most recent check run.",
		}),
	}

	m.registry.MustRegister(
		m.fetchRequests,
		m.fetchDuration,
		m.domainFallbacks,
		m.coursesParsed,
		m.cardsDropped,
		m.announcements,
		m.notifications,
		m.checkRuns,
		m.newAnnouncements,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveFetch records one outbound fetch
func (m *Metrics) ObserveFetch(host string, status int, elapsed time.Duration) {
	m.fetchRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.fetchDuration.WithLabelValues(host).Observe(elapsed.Seconds())
}

// IncFallback records a retry on the secondary course domain
func (m *Metrics) IncFallback() {
	m.domainFallbacks.Inc()
}

// AddCourses records the outcome of parsing one search results page
func (m *Metrics) AddCourses(parsed, dropped int) {
	m.coursesParsed.Add(float64(parsed))
	m.cardsDropped.Add(float64(dropped))
}

// AddAnnouncements records the announcements parsed from one page
func (m *Metrics) AddAnnouncements(parsed int) {
	m.announcements.Add(float64(parsed))
}

// NotificationSent records a delivery attempt on channel; a nil err counts as success
func (m *Metrics) NotificationSent(channel string, err error) {
	m.notifications.WithLabelValues(channel, result(err)).Inc()
}

// CheckRun records a completed check run and how many new announcements it found
func (m *Metrics) CheckRun(newAnnouncements int, err error) {
	m.checkRuns.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.newAnnouncements.Set(float64(newAnnouncements))
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
