// Package query is the cached query layer in front of the row source. It
// fetches the whole sales table at most once per freshness window and
// collapses concurrent fetches into one.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/demandcast/pkg/adapters"
	"github.com/HatiCode/demandcast/pkg/cache"
	"github.com/HatiCode/demandcast/pkg/domain"
)

// FreshnessWindow is how long fetched rows are served before a re-fetch.
const FreshnessWindow = 600 * time.Second

// Observer receives fetch and cache-hit events. All methods must be safe for
// concurrent use.
type Observer interface {
	ObserveFetch(d time.Duration, err error)
	ObserveCacheHit()
}

// Snapshot is one successful fetch of the table.
type Snapshot struct {
	Rows      []adapters.Row
	Version   uint64
	FetchedAt time.Time
}

// Layer memoizes the full-table fetch of an adapter.
type Layer struct {
	adapter  adapters.Adapter
	cache    *cache.TTL[[]adapters.Row]
	observer Observer
	logger   *slog.Logger
}

// New creates a Layer over adapter. clock and observer may be nil.
func New(adapter adapters.Adapter, clock cache.Clock, observer Observer, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Layer{
		adapter:  adapter,
		observer: observer,
		logger:   logger,
	}
	l.cache = cache.NewTTL(FreshnessWindow, clock, l.load)
	return l
}

// FetchRows returns the rows of the current freshness window. A failed fetch
// returns an error wrapping domain.ErrDataUnavailable and no rows.
func (l *Layer) FetchRows(ctx context.Context) (Snapshot, error) {
	e, err := l.cache.Get(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %w", domain.ErrDataUnavailable, l.adapter.Name(), err)
	}
	if e.Hit && l.observer != nil {
		l.observer.ObserveCacheHit()
	}
	return Snapshot{Rows: e.Value, Version: e.Version, FetchedAt: e.FetchedAt}, nil
}

// Refresh drops the cached rows so the next FetchRows goes to the source.
func (l *Layer) Refresh() {
	l.cache.Invalidate()
}

func (l *Layer) load(ctx context.Context) ([]adapters.Row, error) {
	start := time.Now()
	df, err := l.adapter.Collect(ctx)
	duration := time.Since(start)
	if l.observer != nil {
		l.observer.ObserveFetch(duration, err)
	}
	if err != nil {
		l.logger.Error("row fetch failed",
			"adapter", l.adapter.Name(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	if df == nil {
		df = &adapters.DataFrame{}
	}

	l.logger.Debug("fetched rows",
		"adapter", l.adapter.Name(),
		"rows", len(df.Rows),
		"duration_ms", duration.Milliseconds(),
	)
	return df.Rows, nil
}
