package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/demandcast/pkg/cache"
	"github.com/HatiCode/demandcast/pkg/domain"
)

func sampleSnapshot(key string, at time.Time) Snapshot {
	return Snapshot{
		Key:         key,
		ProductIDs:  []domain.SeriesID{"2674"},
		Horizon:     2,
		Models:      []string{"croston_optimized"},
		GeneratedAt: at,
		Columns:     []string{"yhat"},
		CSV:         []byte("unique_id,ds,yhat\n2674,2020-06-01,1.5\n2674,2020-07-01,1.5\n"),
		Rows: []domain.ForecastRow{
			{UniqueID: "2674", DS: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), Values: []float64{1.5}},
			{UniqueID: "2674", DS: time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC), Values: []float64{1.5}},
		},
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	clock := cache.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(time.Hour, clock)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := sampleSnapshot("k1", clock.Now())
	require.NoError(t, s.Put(ctx, snap))

	got, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	res := got.Result()
	assert.Equal(t, 2, res.Horizon)
	assert.Equal(t, []float64{1.5, 1.5}, res.Yhat("2674"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := cache.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(time.Hour, clock)
	require.NoError(t, s.Put(ctx, sampleSnapshot("k1", clock.Now())))

	clock.Advance(59 * time.Minute)
	_, ok, _ := s.Get(ctx, "k1")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok, _ = s.Get(ctx, "k1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_NoTTL(t *testing.T) {
	ctx := context.Background()
	clock := cache.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(0, clock)
	require.NoError(t, s.Put(ctx, sampleSnapshot("k1", clock.Now())))

	clock.Advance(1000 * time.Hour)
	_, ok, _ := s.Get(ctx, "k1")
	assert.True(t, ok)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, nil)
	first := sampleSnapshot("k", time.Now())
	second := sampleSnapshot("k", time.Now())
	second.Horizon = 5

	require.NoError(t, s.Put(ctx, first))
	require.NoError(t, s.Put(ctx, second))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.Horizon)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_PutSweepsExpired(t *testing.T) {
	ctx := context.Background()
	clock := cache.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(time.Hour, clock)

	for _, k := range []string{"a:h1", "a:h2", "b:h1"} {
		require.NoError(t, s.Put(ctx, sampleSnapshot(k, clock.Now())))
	}
	clock.Advance(30 * time.Minute)
	require.NoError(t, s.Put(ctx, sampleSnapshot("c:h1", clock.Now())))
	assert.Equal(t, 4, s.Len())

	// Nothing reads the first three keys again; the next Put drops them.
	clock.Advance(30 * time.Minute)
	require.NoError(t, s.Put(ctx, sampleSnapshot("d:h1", clock.Now())))
	assert.Equal(t, 2, s.Len())

	_, ok, _ := s.Get(ctx, "c:h1")
	assert.True(t, ok)
}
