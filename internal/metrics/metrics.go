// Package metrics exposes Prometheus metrics for gateway calls
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alexbotov/alidayu/pkg/alidayu"
)

// Metrics contains all Prometheus metrics for the relay
type Metrics struct {
	// Gateway call metrics
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	APIErrors    *prometheus.CounterVec

	// Relay HTTP metrics
	RelayRequests *prometheus.CounterVec
}

var _ alidayu.Observer = (*Metrics)(nil)

// New initializes and registers metrics with the default registerer
func New() *Metrics {
	return NewWithRegistry(nil)
}

// NewWithRegistry initializes and registers metrics with a custom registry
func NewWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alidayu_gateway_calls_total",
			Help: "Gateway calls by method and outcome",
		}, []string{"method", "outcome"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alidayu_gateway_call_duration_seconds",
			Help:    "Latency of gateway calls, signing and parsing included",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		APIErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alidayu_gateway_api_errors_total",
			Help: "Errors reported inside error_response, by gateway code",
		}, []string{"method", "code", "sub_code"}),
		RelayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alidayu_relay_requests_total",
			Help: "Relay HTTP requests by route and status",
		}, []string{"route", "status"}),
	}
}

// ObserveCall implements alidayu.Observer
func (m *Metrics) ObserveCall(_ context.Context, rec *alidayu.CallRecord) {
	m.Calls.WithLabelValues(rec.Method, alidayu.Classify(rec.Err)).Inc()
	m.CallDuration.WithLabelValues(rec.Method).Observe(rec.Duration.Seconds())

	if apiErr, ok := alidayu.IsAPIError(rec.Err); ok {
		m.APIErrors.WithLabelValues(rec.Method, strconv.Itoa(apiErr.Code), apiErr.SubCode).Inc()
	}
}
