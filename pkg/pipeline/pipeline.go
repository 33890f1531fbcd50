// Package pipeline wires the cached panel, the series selector and the
// forecast engine into the three operations the service exposes: listing
// products, aligning series for display and producing a forecast.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/engine"
	"github.com/HatiCode/demandcast/pkg/selection"
	"github.com/HatiCode/demandcast/pkg/storage"
)

// PanelSource returns the panel of the current freshness window.
type PanelSource interface {
	Current(ctx context.Context) (*domain.Panel, error)
}

// Forecaster runs the models over a ModelFrame.
type Forecaster interface {
	Forecast(ctx context.Context, frame domain.ModelFrame, horizon int) (*domain.ForecastResult, error)
	CheckHorizon(h int) error
	Models() []string
}

// Observer receives completed forecast requests.
type Observer interface {
	ObserveForecast(d time.Duration, cached bool, err error)
}

// Catalog is the list of selectable products.
type Catalog struct {
	IDs     []domain.SeriesID `json:"products"`
	Default domain.SeriesID   `json:"default"`
}

// Forecast is the outcome of one forecast request.
type Forecast struct {
	// Key identifies the (frame content, horizon, models) triple.
	Key    string
	CSV    []byte
	Result *domain.ForecastResult
	// Missing lists requested ids that have no rows in the panel.
	Missing []domain.SeriesID
	// Cached reports that the result came from the store.
	Cached bool
}

// Pipeline orchestrates the forecast flow: panel -> select -> engine -> store.
type Pipeline struct {
	panels         PanelSource
	engine         Forecaster
	store          storage.Store
	observer       Observer
	defaultProduct domain.SeriesID
	logger         *slog.Logger
}

// Options configures a Pipeline. Store and Observer may be nil.
type Options struct {
	Store          storage.Store
	Observer       Observer
	DefaultProduct domain.SeriesID
	Logger         *slog.Logger
}

// New creates a Pipeline.
func New(panels PanelSource, eng Forecaster, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultProduct == "" {
		opts.DefaultProduct = domain.DefaultSeriesID
	}
	return &Pipeline{
		panels:         panels,
		engine:         eng,
		store:          opts.Store,
		observer:       opts.Observer,
		defaultProduct: opts.DefaultProduct,
		logger:         opts.Logger,
	}
}

// Products returns the selectable product ids. Default is the configured
// product when present, otherwise the first id.
func (p *Pipeline) Products(ctx context.Context) (Catalog, error) {
	panel, err := p.panels.Current(ctx)
	if err != nil {
		return Catalog{}, err
	}
	c := Catalog{IDs: panel.SeriesIDs()}
	switch {
	case panel.Has(p.defaultProduct):
		c.Default = p.defaultProduct
	case len(c.IDs) > 0:
		c.Default = c.IDs[0]
	}
	return c, nil
}

// Display returns the requested series aligned for plotting. It never
// triggers a forecast.
func (p *Pipeline) Display(ctx context.Context, ids []domain.SeriesID) ([]selection.DisplaySeries, error) {
	panel, err := p.panels.Current(ctx)
	if err != nil {
		return nil, err
	}
	return selection.AlignForDisplay(panel, ids), nil
}

// Ready reports whether a panel can currently be built.
func (p *Pipeline) Ready(ctx context.Context) error {
	_, err := p.panels.Current(ctx)
	return err
}

// Forecast produces horizon forecasts for ids.
//
// Failures, in the order they are checked: ErrInvalidHorizon, ErrEmptyInput
// for no ids, the panel's ErrDataUnavailable or ErrSchema, and ErrEmptyInput
// again when none of the ids has rows.
func (p *Pipeline) Forecast(ctx context.Context, ids []domain.SeriesID, horizon int) (*Forecast, error) {
	start := time.Now()
	fc, err := p.forecast(ctx, ids, horizon)
	if p.observer != nil {
		p.observer.ObserveForecast(time.Since(start), fc != nil && fc.Cached, err)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("forecast complete",
		"products", len(fc.Result.SeriesIDs()),
		"horizon", horizon,
		"rows", len(fc.Result.Rows),
		"cached", fc.Cached,
		"total_ms", time.Since(start).Milliseconds(),
	)
	return fc, nil
}

func (p *Pipeline) forecast(ctx context.Context, ids []domain.SeriesID, horizon int) (*Forecast, error) {
	if err := p.engine.CheckHorizon(horizon); err != nil {
		return nil, err
	}
	ids = selection.Dedupe(ids)
	if len(ids) == 0 {
		return nil, domain.ErrEmptyInput
	}

	panel, err := p.panels.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}

	frame := selection.Select(panel, ids)
	missing := selection.Missing(panel, ids)
	if len(missing) > 0 {
		p.logger.Warn("requested products have no rows", "missing", missing)
	}
	if frame.Empty() {
		return nil, fmt.Errorf("%w: no rows for %v", domain.ErrEmptyInput, missing)
	}

	models := p.engine.Models()
	key := resultKey(frame, horizon, models)

	if snap, ok := p.lookup(ctx, key); ok {
		return &Forecast{
			Key:     key,
			CSV:     snap.CSV,
			Result:  snap.Result(),
			Missing: missing,
			Cached:  true,
		}, nil
	}

	res, err := p.engine.Forecast(ctx, frame, horizon)
	if err != nil {
		return nil, err
	}
	csv, err := engine.MarshalCSV(res)
	if err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	if p.store != nil {
		snap := storage.Snapshot{
			Key:         key,
			ProductIDs:  frame.SeriesIDs(),
			Horizon:     horizon,
			Models:      models,
			GeneratedAt: time.Now().UTC(),
			Columns:     res.Columns,
			CSV:         csv,
			Rows:        res.Rows,
		}
		if err := p.store.Put(ctx, snap); err != nil {
			p.logger.Warn("storing forecast failed", "key", key, "error", err)
		}
	}

	return &Forecast{
		Key:     key,
		CSV:     csv,
		Result:  res,
		Missing: missing,
	}, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) (storage.Snapshot, bool) {
	if p.store == nil {
		return storage.Snapshot{}, false
	}
	snap, ok, err := p.store.Get(ctx, key)
	if err != nil {
		// A broken store degrades to recomputing.
		p.logger.Warn("forecast store lookup failed", "key", key, "error", err)
		return storage.Snapshot{}, false
	}
	return snap, ok
}

// Run keeps the panel warm by loading it every interval until ctx is done.
// Load failures are logged; the next tick retries.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("starting panel refresh loop", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.warm(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("panel refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			p.warm(ctx)
		}
	}
}

func (p *Pipeline) warm(ctx context.Context) {
	if err := p.Ready(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("panel refresh failed", "error", err)
	}
}

func resultKey(frame domain.ModelFrame, horizon int, models []string) string {
	return fmt.Sprintf("%s:h%d:%s", frame.Key(), horizon, strings.Join(models, "+"))
}
