package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cookie lookup results.
const (
	LookupFound    = "found"
	LookupAbsent   = "absent"
	LookupInvalid  = "invalid"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// Metrics holds Prometheus collectors for authentication.
type Metrics struct {
	SessionsCreated       prometheus.Counter
	CookieLookups         *prometheus.CounterVec
	ProvisioningOutcomes  *prometheus.CounterVec
	UsersProvisioned      prometheus.Counter
	FilterRedirects       *prometheus.CounterVec
	ProvisioningDurationS prometheus.Histogram
}

// New registers auth collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "hearthgate_sessions_created_total",
			Help: "Total number of sessions issued",
		}),
		CookieLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hearthgate_session_cookie_lookups_total",
			Help: "Session cookie lookups by result",
		}, []string{"result"}),
		ProvisioningOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hearthgate_trusted_header_outcomes_total",
			Help: "Trusted-header provisioning attempts by outcome",
		}, []string{"outcome"}),
		UsersProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "hearthgate_users_provisioned_total",
			Help: "Users created from trusted ingress headers",
		}),
		FilterRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hearthgate_auth_redirects_total",
			Help: "Requests redirected by the authentication filters, by target",
		}, []string{"target"}),
		ProvisioningDurationS: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearthgate_trusted_header_duration_seconds",
			Help:    "Duration of trusted-header provisioning",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncSessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncCookieLookup(result string) {
	if m == nil {
		return
	}
	m.CookieLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncProvisioningOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ProvisioningOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncUserProvisioned() {
	if m == nil {
		return
	}
	m.UsersProvisioned.Inc()
}

func (m *Metrics) IncFilterRedirect(target string) {
	if m == nil {
		return
	}
	m.FilterRedirects.WithLabelValues(target).Inc()
}

func (m *Metrics) ObserveProvisioningDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ProvisioningDurationS.Observe(seconds)
}
