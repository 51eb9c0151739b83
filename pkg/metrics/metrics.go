package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes recorded by ObserveLogin.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginLocked             = "locked"
	LoginDisabled           = "disabled"
)

// Hero outcomes recorded by ObserveHero.
const (
	HeroSet        = "set"
	HeroCleared    = "cleared"
	HeroDowngraded = "downgraded"
)

// Metrics bundles the service collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	logins   *prometheus.CounterVec
	locks    prometheus.Counter
	hero     *prometheus.CounterVec
	upstream *prometheus.HistogramVec
	requests *prometheus.HistogramVec
}

// New registers the service metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_login_attempts_total",
		Help: "Admin login attempts by outcome.",
	}, []string{"result"})
	locks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "folio_account_locks_total",
		Help: "Admin accounts locked after repeated failures.",
	})
	hero := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_hero_designations_total",
		Help: "Hero designation requests by outcome.",
	}, []string{"outcome"})
	upstream := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_upstream_duration_seconds",
		Help:    "Latency of blob store and mail calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation", "outcome"})
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(logins, locks, hero, upstream, requests)
	return &Metrics{
		logins:   logins,
		locks:    locks,
		hero:     hero,
		upstream: upstream,
		requests: requests,
	}
}

// ObserveLogin increments the login counter for result.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil || m.logins == nil {
		return
	}
	m.logins.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncAccountLock counts a transition into the locked state.
func (m *Metrics) IncAccountLock() {
	if m == nil || m.locks == nil {
		return
	}
	m.locks.Inc()
}

// ObserveHero counts a hero designation outcome.
func (m *Metrics) ObserveHero(outcome string) {
	if m == nil || m.hero == nil {
		return
	}
	m.hero.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveUpstream records the latency of an external call.
func (m *Metrics) ObserveUpstream(service, operation string, err error, duration time.Duration) {
	if m == nil || m.upstream == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstream.WithLabelValues(normalizeLabel(service), normalizeLabel(operation), outcome).Observe(duration.Seconds())
}

// ObserveRequest records an HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
