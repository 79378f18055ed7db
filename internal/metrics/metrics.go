// Package metrics provides Prometheus metrics for wsdns.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "wsdns"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Cleanup outcome label values.
const (
	CleanupDeleted     = "deleted"
	CleanupAbsent      = "absent"
	CleanupZoneError   = "zone_error"
	CleanupLookupError = "lookup_error"
	CleanupDeleteError = "delete_error"
)

var (
	// BuildInfo is always 1, labelled with version information.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information for wsdns.",
	}, []string{"version", "go_version"})

	// ChallengesTotal counts perform/cleanup invocations by outcome. Cleanup
	// never fails outward; see CleanupOutcomesTotal for what it did.
	ChallengesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "challenges_total",
		Help:      "DNS-01 challenge operations by operation and result.",
	}, []string{"operation", "result"})

	// CleanupOutcomesTotal counts what each best-effort cleanup ended up doing.
	CleanupOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cleanup_outcomes_total",
		Help:      "TXT record cleanups by outcome (deleted, absent, zone_error, lookup_error, delete_error).",
	}, []string{"outcome"})

	// ProviderAPIRequestsTotal counts provider API calls. status is the HTTP
	// status code, or "error" when no response was received.
	ProviderAPIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "provider_api_requests_total",
		Help:      "Provider API requests by operation and HTTP status.",
	}, []string{"operation", "status"})

	// ProviderAPIDuration observes provider API round-trip latency.
	ProviderAPIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "provider_api_duration_seconds",
		Help:      "Provider API request latency by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// RecordsCreatedTotal counts TXT records created, by zone.
	RecordsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_created_total",
		Help:      "TXT records created at the provider.",
	}, []string{"zone"})

	// RecordsDeletedTotal counts TXT records deleted, by zone.
	RecordsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_deleted_total",
		Help:      "TXT records deleted at the provider.",
	}, []string{"zone"})

	// PropagationChecksTotal counts DNS lookups made while waiting for a record.
	PropagationChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "propagation_checks_total",
		Help:      "DNS propagation lookups by result (found, missing, error).",
	}, []string{"result"})

	// PropagationWaitDuration observes how long records took to become visible.
	PropagationWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "propagation_wait_seconds",
		Help:      "Time spent waiting for a TXT record to propagate.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})

	// HookRequestsTotal counts hook server requests by endpoint and HTTP code.
	HookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "hook_requests_total",
		Help:      "Hook server requests by endpoint and response code.",
	}, []string{"endpoint", "code"})
)

// SetBuildInfo publishes the build_info gauge.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// Result maps an error to a result label value.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
