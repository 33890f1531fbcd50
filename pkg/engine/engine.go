// Package engine drives the forecasting models over a ModelFrame.
//
// The Engine keeps one Runner per distinct frame content in a bounded arena,
// so repeated forecasts over the same selection reuse the fitted models.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/models"
)

// Config configures an Engine.
type Config struct {
	Models []models.Model
	// Workers bounds concurrent model fits per runner; <= 0 uses NumCPU.
	Workers int
	// ArenaSize is the number of runners kept.
	ArenaSize int
	// MaxHorizon rejects longer horizons when > 0.
	MaxHorizon int
}

// Observer receives runner cache events.
type Observer interface {
	ObserveRunner(hit bool)
}

// Engine is the forecast entry point.
type Engine struct {
	models     []models.Model
	modelKey   string
	workers    int
	maxHorizon int
	arena      *Arena
	observer   Observer
	logger     *slog.Logger
}

// New creates an Engine. observer may be nil.
func New(cfg Config, observer Observer, logger *slog.Logger) (*Engine, error) {
	if len(cfg.Models) == 0 {
		return nil, errors.New("engine: at least one model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		models:     cfg.Models,
		modelKey:   strings.Join(ModelNames(cfg.Models), ","),
		workers:    cfg.Workers,
		maxHorizon: cfg.MaxHorizon,
		arena:      NewArena(cfg.ArenaSize),
		observer:   observer,
		logger:     logger,
	}, nil
}

// ModelNames returns the registry names of ms in order.
func ModelNames(ms []models.Model) []string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	return names
}

// Models returns the registry names of the engine's models.
func (e *Engine) Models() []string {
	return ModelNames(e.models)
}

// Forecast returns horizon point forecasts for every series in frame.
//
// Horizon is checked first, then frame emptiness; neither failure builds a
// runner.
func (e *Engine) Forecast(ctx context.Context, frame domain.ModelFrame, horizon int) (*domain.ForecastResult, error) {
	if err := e.CheckHorizon(horizon); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, domain.ErrEmptyInput
	}

	key := frame.Key() + "/" + e.modelKey
	runner, hit := e.arena.Get(key, func() *Runner {
		return NewRunner(frame, e.models, e.workers)
	})
	if e.observer != nil {
		e.observer.ObserveRunner(hit)
	}

	start := time.Now()
	res, err := runner.Forecast(ctx, horizon)
	if err != nil {
		e.arena.Remove(key)
		return nil, fmt.Errorf("forecast: %w", err)
	}

	e.logger.Debug("forecast computed",
		"series", runner.Series(),
		"horizon", horizon,
		"runner_reused", hit,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// CheckHorizon returns an ErrInvalidHorizon error when h is not positive or
// exceeds the configured maximum.
func (e *Engine) CheckHorizon(h int) error {
	if h <= 0 {
		return fmt.Errorf("%w: %d must be positive", domain.ErrInvalidHorizon, h)
	}
	if e.maxHorizon > 0 && h > e.maxHorizon {
		return fmt.Errorf("%w: %d exceeds maximum %d", domain.ErrInvalidHorizon, h, e.maxHorizon)
	}
	return nil
}

// Runners returns the number of runners held.
func (e *Engine) Runners() int {
	return e.arena.Len()
}
