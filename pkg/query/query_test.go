package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/demandcast/pkg/adapters"
	"github.com/HatiCode/demandcast/pkg/cache"
	"github.com/HatiCode/demandcast/pkg/domain"
)

type fakeAdapter struct {
	calls atomic.Int32
	err   error
	rows  []adapters.Row
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Collect(ctx context.Context) (*adapters.DataFrame, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &adapters.DataFrame{Rows: f.rows}, nil
}

type countingObserver struct {
	fetches atomic.Int32
	errors  atomic.Int32
	hits    atomic.Int32
}

func (o *countingObserver) ObserveFetch(d time.Duration, err error) {
	o.fetches.Add(1)
	if err != nil {
		o.errors.Add(1)
	}
}

func (o *countingObserver) ObserveCacheHit() { o.hits.Add(1) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLayer_FreshnessWindow(t *testing.T) {
	clock := cache.NewManualClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	ad := &fakeAdapter{rows: []adapters.Row{{"id": 1, "parts_id": "2674", "date": "2020-01-01", "volume": "5"}}}
	obs := &countingObserver{}
	layer := New(ad, clock, obs, discardLogger())

	first, err := layer.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Version)

	for range 5 {
		clock.Advance(100 * time.Second)
		got, err := layer.FetchRows(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first.Rows, got.Rows)
		assert.Equal(t, first.Version, got.Version)
	}
	assert.Equal(t, int32(1), ad.calls.Load())
	assert.Equal(t, int32(5), obs.hits.Load())

	clock.Advance(100 * time.Second)
	got, err := layer.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Version)
	assert.Equal(t, int32(2), ad.calls.Load())
	assert.Equal(t, int32(2), obs.fetches.Load())
}

func TestLayer_FailureIsDataUnavailable(t *testing.T) {
	clock := cache.NewManualClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	ad := &fakeAdapter{rows: []adapters.Row{{"parts_id": "1"}}}
	obs := &countingObserver{}
	layer := New(ad, clock, obs, discardLogger())

	_, err := layer.FetchRows(context.Background())
	require.NoError(t, err)

	ad.err = errors.New("dial tcp: connection refused")
	clock.Advance(FreshnessWindow)

	snap, err := layer.FetchRows(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Nil(t, snap.Rows)
	assert.Equal(t, int32(1), obs.errors.Load())
}

func TestLayer_Refresh(t *testing.T) {
	ad := &fakeAdapter{}
	layer := New(ad, nil, nil, discardLogger())

	_, err := layer.FetchRows(context.Background())
	require.NoError(t, err)
	layer.Refresh()
	_, err = layer.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), ad.calls.Load())
}
