// Package metrics exposes Prometheus collectors for the lyrics service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal               *prometheus.CounterVec
	proxyDrawsTotal            *prometheus.CounterVec
	cacheLookupsTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lyrics_scrapes_total",
				Help: "Total number of scrape cycles, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		proxyDrawsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lyrics_proxy_draws_total",
				Help: "Total number of proxy endpoints drawn for attempts.",
			},
			[]string{"proxy"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lyrics_cache_lookups_total",
				Help: "Lyrics cache lookups, labeled by result (hit/miss).",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape increments the scrape counter for a source and outcome
// ("success" or an error code).
func ObserveScrape(source, outcome string) {
	if scrapesTotal == nil {
		return
	}
	scrapesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveProxyDraw records one proxy selection.
func ObserveProxyDraw(proxy string) {
	if proxyDrawsTotal == nil {
		return
	}
	proxyDrawsTotal.WithLabelValues(proxy).Inc()
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if cacheLookupsTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
