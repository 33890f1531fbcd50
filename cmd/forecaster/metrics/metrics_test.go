package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/engine"
	"github.com/HatiCode/demandcast/pkg/pipeline"
	"github.com/HatiCode/demandcast/pkg/query"
)

var (
	_ query.Observer    = (*Metrics)(nil)
	_ engine.Observer   = (*Metrics)(nil)
	_ pipeline.Observer = (*Metrics)(nil)
)

func TestNew(t *testing.T) {
	m := New("test-new")

	if m.RowFetchSeconds == nil {
		t.Error("RowFetchSeconds should not be nil")
	}
	if m.RowCacheHits == nil {
		t.Error("RowCacheHits should not be nil")
	}
	if m.RunnerLookups == nil {
		t.Error("RunnerLookups should not be nil")
	}
	if m.ForecastSeconds == nil {
		t.Error("ForecastSeconds should not be nil")
	}
	if m.ErrorsTotal == nil {
		t.Error("ErrorsTotal should not be nil")
	}
}

func TestObserveFetch(t *testing.T) {
	m := New("test-observe-fetch")

	m.ObserveFetch(120*time.Millisecond, nil)
	if count := testutil.CollectAndCount(m.RowFetchSeconds); count != 1 {
		t.Errorf("expected 1 histogram, got %d", count)
	}
	if count := testutil.CollectAndCount(m.ErrorsTotal); count != 0 {
		t.Errorf("expected no errors, got %d", count)
	}

	m.ObserveFetch(time.Second, errors.New("refused"))
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("query", "fetch_failed")); got != 1 {
		t.Errorf("fetch_failed = %v, want 1", got)
	}
}

func TestObserveCacheHit(t *testing.T) {
	m := New("test-observe-cache-hit")

	for range 3 {
		m.ObserveCacheHit()
	}
	if got := testutil.ToFloat64(m.RowCacheHits); got != 3 {
		t.Errorf("cache hits = %v, want 3", got)
	}
}

func TestObserveRunner(t *testing.T) {
	m := New("test-observe-runner")

	m.ObserveRunner(false)
	m.ObserveRunner(true)
	m.ObserveRunner(true)

	if got := testutil.ToFloat64(m.RunnerLookups.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RunnerLookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestObserveForecast(t *testing.T) {
	m := New("test-observe-forecast")

	m.ObserveForecast(50*time.Millisecond, false, nil)
	m.ObserveForecast(time.Millisecond, true, nil)
	m.ObserveForecast(time.Millisecond, false, domain.ErrEmptyInput)

	if count := testutil.CollectAndCount(m.ForecastSeconds); count != 2 {
		t.Errorf("expected 2 histogram series, got %d", count)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("pipeline", "empty_input")); got != 1 {
		t.Errorf("empty_input = %v, want 1", got)
	}

	gathered, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "demandcast_forecast_seconds")
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if gathered == 0 {
		t.Error("expected forecast histogram on the default registry")
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: 0", domain.ErrInvalidHorizon), "invalid_horizon"},
		{domain.ErrEmptyInput, "empty_input"},
		{fmt.Errorf("build panel: %w", &domain.SchemaError{Row: 1}), "schema"},
		{fmt.Errorf("%w: postgrest", domain.ErrDataUnavailable), "data_unavailable"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
