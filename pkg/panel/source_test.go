package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/demandcast/pkg/adapters"
	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/query"
)

type stubFetcher struct {
	snap query.Snapshot
	err  error
}

func (s *stubFetcher) FetchRows(ctx context.Context) (query.Snapshot, error) {
	return s.snap, s.err
}

func TestSource_MemoizesPerVersion(t *testing.T) {
	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &stubFetcher{snap: query.Snapshot{
		Rows:      []adapters.Row{{"parts_id": "1", "date": "2020-01-01", "volume": 1}},
		Version:   1,
		FetchedAt: fetched,
	}}
	s := NewSource(f, nil, nil)

	p1, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p1.Version)
	assert.Equal(t, fetched, p1.FetchedAt)

	p2, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	f.snap = query.Snapshot{
		Rows:    []adapters.Row{{"parts_id": "2", "date": "2020-01-01", "volume": 1}},
		Version: 2,
	}
	p3, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)
	assert.Equal(t, []domain.SeriesID{"2"}, p3.SeriesIDs())
}

func TestSource_SchemaErrorPoisonsBuild(t *testing.T) {
	f := &stubFetcher{snap: query.Snapshot{
		Rows: []adapters.Row{
			{"parts_id": "1", "date": "2020-01-01", "volume": 1},
			{"parts_id": "1", "date": "2020-02-01", "volume": "n/a"},
		},
		Version: 1,
	}}
	s := NewSource(f, nil, nil)

	p, err := s.Current(context.Background())
	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestSource_PropagatesFetchError(t *testing.T) {
	f := &stubFetcher{err: errors.Join(domain.ErrDataUnavailable, errors.New("timeout"))}
	s := NewSource(f, nil, nil)

	_, err := s.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = s.Products(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestSource_Products(t *testing.T) {
	f := &stubFetcher{snap: query.Snapshot{
		Rows: []adapters.Row{
			{"parts_id": "9", "date": "2020-01-01", "volume": 1},
			{"parts_id": "3", "date": "2020-01-01", "volume": 1},
			{"parts_id": "9", "date": "2020-02-01", "volume": 1},
		},
		Version: 1,
	}}
	ids, err := NewSource(f, nil, nil).Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.SeriesID{"9", "3"}, ids)
}

func TestSource_StaleSnapshotDoesNotReplaceNewerPanel(t *testing.T) {
	f := &stubFetcher{snap: query.Snapshot{
		Rows:    []adapters.Row{{"parts_id": "2", "date": "2020-01-01", "volume": 1}},
		Version: 2,
	}}
	s := NewSource(f, nil, nil)

	newer, err := s.Current(context.Background())
	require.NoError(t, err)

	// A slow caller still holding the previous fetch.
	f.snap = query.Snapshot{
		Rows:    []adapters.Row{{"parts_id": "1", "date": "2020-01-01", "volume": 1}},
		Version: 1,
	}
	got, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, newer, got)
	assert.Equal(t, []domain.SeriesID{"2"}, got.SeriesIDs())
}
