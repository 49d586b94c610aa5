// Package metrics provides a Prometheus metrics registry for the
// gateway.
//
// All metrics are scoped to a private registry (not the global default)
// so they don't interfere with host-level metrics when embedded in
// other applications. The /metrics HTTP handler is exposed via
// Handler().
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Registry holds all exported metrics.
type Registry struct {
	reg *prometheus.Registry

	// gateway_inflight_requests
	inFlight prometheus.Gauge

	// gateway_http_requests_total{route,status}
	httpRequestsTotal *prometheus.CounterVec

	// gateway_http_request_duration_seconds{route}
	httpDuration *prometheus.HistogramVec

	// gateway_attempts_total{outcome} — one per ObserveAttempt call (the
	// orchestrator's Dispatch loop does not call ObserveAttempt), outcome ∈ ok|retryable_rate_limited|retryable_server_error|
	// retryable_transport|fatal_unauthorized|fatal_forbidden|
	// fatal_permanently_invalid
	attemptsTotal *prometheus.CounterVec

	// gateway_attempt_duration_seconds{outcome}
	attemptDuration *prometheus.HistogramVec

	// gateway_credential_score{credential_id}
	credentialScore *prometheus.GaugeVec

	// gateway_credential_cooldown_seconds{credential_id} — seconds
	// remaining until the credential's cooldown clears, 0 when ready.
	credentialCooldown *prometheus.GaugeVec

	// gateway_credential_enabled{credential_id} — 1 enabled, 0 disabled
	credentialEnabled *prometheus.GaugeVec

	// gateway_tokens_total{direction,estimated}
	tokensTotal *prometheus.CounterVec

	// gateway_dropped_logs_total
	droppedLogs prometheus.Counter

	// gateway_build_info{version}
	buildInfo *prometheus.GaugeVec

	metricsHandler fasthttp.RequestHandler
}

// New builds a Registry with its own private prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	r := &Registry{
		reg: reg,

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_inflight_requests",
			Help: "Current number of in-flight HTTP requests handled by the gateway",
		}),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests handled by the gateway",
			},
			[]string{"route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_attempts_total",
				Help: "Total Dispatch attempts against the upstream, by outcome",
			},
			[]string{"outcome"},
		),

		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_attempt_duration_seconds",
				Help:    "Duration of a single upstream attempt, by outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),

		credentialScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_credential_score",
				Help: "Current CredentialPool score, [0,100]",
			},
			[]string{"credential_id"},
		),

		credentialCooldown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_credential_cooldown_seconds",
				Help: "Seconds remaining until the credential's cooldown clears",
			},
			[]string{"credential_id"},
		),

		credentialEnabled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_credential_enabled",
				Help: "1 if the credential is enabled, 0 if auto-disabled",
			},
			[]string{"credential_id"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_tokens_total",
				Help: "Total tokens processed, by direction and estimation flag",
			},
			[]string{"direction", "estimated"},
		),

		droppedLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_dropped_logs_total",
			Help: "Log entries dropped by LogRecorder due to channel backpressure",
		}),

		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_build_info",
				Help: "Build metadata, value is always 1",
			},
			[]string{"version"},
		),
	}

	reg.MustRegister(
		r.inFlight, r.httpRequestsTotal, r.httpDuration,
		r.attemptsTotal, r.attemptDuration,
		r.credentialScore, r.credentialCooldown, r.credentialEnabled,
		r.tokensTotal, r.droppedLogs, r.buildInfo,
	)

	r.metricsHandler = fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)

	return r
}

func (r *Registry) IncInFlight() { r.inFlight.Inc() }
func (r *Registry) DecInFlight() { r.inFlight.Dec() }

// ObserveHTTP records one completed HTTP request.
func (r *Registry) ObserveHTTP(route string, statusCode int, dur time.Duration) {
	r.httpRequestsTotal.WithLabelValues(route, statusLabel(statusCode)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(dur.Seconds())
}

// ObserveAttempt records one Dispatch attempt outcome, e.g. "ok",
// "retryable_rate_limited", "fatal_unauthorized".
func (r *Registry) ObserveAttempt(outcome string, dur time.Duration) {
	r.attemptsTotal.WithLabelValues(outcome).Inc()
	r.attemptDuration.WithLabelValues(outcome).Observe(dur.Seconds())
}

// SetCredentialState publishes one credential's current pool state.
func (r *Registry) SetCredentialState(credentialID string, score float64, cooldownRemaining time.Duration, enabled bool) {
	r.credentialScore.WithLabelValues(credentialID).Set(score)
	r.credentialCooldown.WithLabelValues(credentialID).Set(cooldownRemaining.Seconds())
	v := 0.0
	if enabled {
		v = 1.0
	}
	r.credentialEnabled.WithLabelValues(credentialID).Set(v)
}

// AddTokens records input/output token counts, tagging whether they
// were reported by the upstream or estimated locally.
func (r *Registry) AddTokens(inputTokens, outputTokens int64, estimated bool) {
	label := "false"
	if estimated {
		label = "true"
	}
	r.tokensTotal.WithLabelValues("input", label).Add(float64(inputTokens))
	r.tokensTotal.WithLabelValues("output", label).Add(float64(outputTokens))
}

// AddDroppedLogs increments the dropped-logs counter by n.
func (r *Registry) AddDroppedLogs(n int64) {
	r.droppedLogs.Add(float64(n))
}

// SetBuildInfo publishes the running binary's version as a 1-valued gauge.
func (r *Registry) SetBuildInfo(version string) {
	r.buildInfo.WithLabelValues(version).Set(1)
}

// Handler returns the fasthttp handler serving /metrics.
func (r *Registry) Handler() fasthttp.RequestHandler { return r.metricsHandler }

// PromRegistry exposes the underlying prometheus.Registry for tests.
func (r *Registry) PromRegistry() *prometheus.Registry { return r.reg }

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}
