// Package metrics holds the faucet's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "faucet_api_build_info",
			Help: "Build information of the faucet API",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faucet_api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faucet_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faucet_api_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faucet_api_claims_total",
			Help: "Total number of claim attempts",
		},
		[]string{"type", "status"}, // type: "eth"/"token", status: "success"/"cooldown"/"blacklisted"/"failed"
	)

	ClaimDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faucet_api_claim_duration_seconds",
			Help:    "Duration of successful claims including confirmation wait",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
		},
	)

	ChainCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faucet_api_chain_calls_total",
			Help: "Total number of contract calls by method",
		},
		[]string{"method", "status"},
	)

	FaucetPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faucet_api_paused",
			Help: "Whether claim processing is paused (1 = paused)",
		},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available so /faucet/history/{address}
		// stays a single series.
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordChainCall records a contract call outcome.
func RecordChainCall(method string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ChainCallsTotal.WithLabelValues(method, status).Inc()
}

// RecordClaim records a claim attempt outcome.
func RecordClaim(claimType, status string, duration time.Duration) {
	ClaimsTotal.WithLabelValues(claimType, status).Inc()
	if status == "success" {
		ClaimDuration.Observe(duration.Seconds())
	}
}

// SetPaused mirrors the pause flag into the paused gauge.
func SetPaused(paused bool) {
	if paused {
		FaucetPaused.Set(1)
		return
	}
	FaucetPaused.Set(0)
}
