package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "impacttrip"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	Recomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "catalog_recomputes_total", Help: "Catalog filter+compose passes."},
		[]string{"trigger"}, // load|filters_changed|manual
	)
	RenderedItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "catalog_rendered_items",
			Help:    "Items passing the facets per recompute.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)
	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "criteria_validation_failures_total", Help: "Rejected criteria changes and submits."},
		[]string{"field"},
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "criteria_store_errors_total", Help: "Criteria persistence failures."},
		[]string{"op"}, // load|save
	)
	BusDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bus_dropped_events_total", Help: "Events dropped by full listeners."},
		[]string{"event"},
	)
	IngestRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ingest_records_total", Help: "Feed records stored or skipped."},
		[]string{"feed", "outcome"}, // stored|missed
	)
	Sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "sessions_open", Help: "Open search sessions."},
	)
)

// Serve exposes h on a side port; an empty addr disables it.
func Serve(addr string, h http.Handler) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		Recomputes, RenderedItems, ValidationFailures, StoreErrors, BusDrops, IngestRecords, Sessions,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveRecompute(trigger string, passing int) {
	Recomputes.WithLabelValues(trigger).Inc()
	RenderedItems.Observe(float64(passing))
}

func ObserveValidation(field string) { ValidationFailures.WithLabelValues(field).Inc() }

func ObserveStoreError(op string) { StoreErrors.WithLabelValues(op).Inc() }

func ObserveBusDrop(event string) { BusDrops.WithLabelValues(event).Inc() }

func ObserveIngest(feed string, stored, missed int) {
	IngestRecords.WithLabelValues(feed, "stored").Add(float64(stored))
	IngestRecords.WithLabelValues(feed, "missed").Add(float64(missed))
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
