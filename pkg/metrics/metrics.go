package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	dataValidator = "data_validator"

	// Client metrics
	clientRequestsTotal   = "client_requests_total"
	clientRequestDuration = "client_request_duration_seconds"

	// Validation metrics
	validationRunsTotal = "validation_runs_total"
	CheckStatus         = "check_status"
	CheckFailedRecords  = "check_failed_records"

	// Labels
	methodLabel  = "method"
	routeLabel   = "route"
	codeLabel    = "code"
	outcomeLabel = "outcome"
	checkLabel   = "check_id"
)

// Run outcomes
const (
	OutcomePassed        = "passed"
	OutcomeFailed        = "failed"
	OutcomeTriggerFailed = "trigger_failed"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeNotFound      = "not_found"
)

// code label used when no HTTP response was received
const NetworkErrorCode = "network_error"

var clientRequestLabels = []string{
	methodLabel,
	routeLabel,
	codeLabel,
}

/**
* Metrics definition
**/
var clientRequestsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: dataValidator,
		Name:      clientRequestsTotal,
		Help:      "number of requests sent to the data validator API",
	},
	clientRequestLabels,
)

var clientRequestDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: dataValidator,
		Name:      clientRequestDuration,
		Help:      "latency of requests sent to the data validator API",
		Buckets:   prometheus.DefBuckets,
	},
	clientRequestLabels,
)

var validationRunsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: dataValidator,
		Name:      validationRunsTotal,
		Help:      "number of orchestrated validation runs partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var checkStatusMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: dataValidator,
		Name:      CheckStatus,
		Help:      "last known status of a watched check (1 passed, 0 failed, -1 unknown)",
	},
	[]string{checkLabel},
)

var checkFailedRecordsMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: dataValidator,
		Name:      CheckFailedRecords,
		Help:      "failed record count of the last result of a watched check",
	},
	[]string{checkLabel},
)

func ObserveClientRequest(method, route, code string, seconds float64) {
	labels := prometheus.Labels{
		methodLabel: method,
		routeLabel:  route,
		codeLabel:   code,
	}
	clientRequestsTotalMetric.With(labels).Inc()
	clientRequestDurationMetric.With(labels).Observe(seconds)
}

func IncreaseValidationRunsMetric(outcome string) {
	validationRunsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// UpdateCheckStatusMetric records the last status of a check. A negative
// failedRecords leaves the failed records gauge untouched.
func UpdateCheckStatusMetric(checkID string, status float64, failedRecords int) {
	checkStatusMetric.With(prometheus.Labels{checkLabel: checkID}).Set(status)
	if failedRecords >= 0 {
		checkFailedRecordsMetric.With(prometheus.Labels{checkLabel: checkID}).Set(float64(failedRecords))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(clientRequestsTotalMetric)
	prometheus.MustRegister(clientRequestDurationMetric)
	prometheus.MustRegister(validationRunsTotalMetric)
	prometheus.MustRegister(checkStatusMetric)
	prometheus.MustRegister(checkFailedRecordsMetric)
}
