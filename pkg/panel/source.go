package panel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/demandcast/pkg/cache"
	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/query"
)

// RowFetcher is the cached query layer as seen by the panel source.
type RowFetcher interface {
	FetchRows(ctx context.Context) (query.Snapshot, error)
}

// Source serves the panel for the current fetch, rebuilding it only when
// the fetcher returns a new version.
type Source struct {
	rows    RowFetcher
	builder *Builder
	memo    cache.Memo[uint64, *domain.Panel]
	logger  *slog.Logger
}

// NewSource creates a Source. A nil builder uses NewBuilder().
func NewSource(rows RowFetcher, builder *Builder, logger *slog.Logger) *Source {
	if builder == nil {
		builder = NewBuilder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		rows:    rows,
		builder: builder,
		logger:  logger,
	}
}

// Current returns the panel for the rows of the current freshness window.
// The returned panel is shared and must not be modified.
func (s *Source) Current(ctx context.Context) (*domain.Panel, error) {
	snap, err := s.rows.FetchRows(ctx)
	if err != nil {
		return nil, err
	}

	return s.memo.Get(snap.Version, func() (*domain.Panel, error) {
		start := time.Now()
		p, err := s.builder.Build(snap.Rows)
		if err != nil {
			s.logger.Error("panel build failed", "version", snap.Version, "error", err)
			return nil, fmt.Errorf("build panel: %w", err)
		}
		p.Version = snap.Version
		p.FetchedAt = snap.FetchedAt

		s.logger.Debug("built panel",
			"version", snap.Version,
			"records", len(p.Records),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return p, nil
	})
}

// Products returns the distinct product ids of the current panel in order
// of first appearance.
func (s *Source) Products(ctx context.Context) ([]domain.SeriesID, error) {
	p, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return p.SeriesIDs(), nil
}
