// Package metrics provides Prometheus metrics instrumentation for the forecaster.
//
// Metrics exposed:
//   - demandcast_row_fetch_seconds: Histogram of row source fetch latency
//   - demandcast_row_cache_hits_total: Counter of fetches served inside the freshness window
//   - demandcast_runner_lookups_total: Counter of runner arena lookups by result (hit, miss)
//   - demandcast_forecast_seconds: Histogram of forecast request latency by cached
//   - demandcast_errors_total: Counter of errors by component and reason
//
// A Metrics value satisfies query.Observer, engine.Observer and
// pipeline.Observer.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HatiCode/demandcast/pkg/domain"
)

type Metrics struct {
	RowFetchSeconds prometheus.Histogram
	RowCacheHits    prometheus.Counter
	RunnerLookups   *prometheus.CounterVec
	ForecastSeconds *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
}

// New registers the collectors on the default registry. source is attached
// to every series as a constant label.
func New(source string) *Metrics {
	labels := prometheus.Labels{"source": source}
	return &Metrics{
		RowFetchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "demandcast_row_fetch_seconds",
			Help:        "Time spent fetching the sales table from the row source",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		RowCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "demandcast_row_cache_hits_total",
			Help:        "Row fetches answered from the freshness window",
			ConstLabels: labels,
		}),
		RunnerLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "demandcast_runner_lookups_total",
			Help:        "Forecast runner arena lookups by result",
			ConstLabels: labels,
		}, []string{"result"}),
		ForecastSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "demandcast_forecast_seconds",
			Help:        "Duration of forecast requests",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"cached"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "demandcast_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	m.RowFetchSeconds.Observe(d.Seconds())
	if err != nil {
		m.RecordError("query", "fetch_failed")
	}
}

func (m *Metrics) ObserveCacheHit() {
	m.RowCacheHits.Inc()
}

func (m *Metrics) ObserveRunner(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RunnerLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveForecast(d time.Duration, cached bool, err error) {
	if err != nil {
		m.RecordError("pipeline", Reason(err))
		return
	}
	m.ForecastSeconds.WithLabelValues(strconv.FormatBool(cached)).Observe(d.Seconds())
}

func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// Reason maps an error to a low-cardinality label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, domain.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, domain.ErrSchema):
		return "schema"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
