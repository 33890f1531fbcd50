// Package models holds the intermittent-demand forecasting models.
//
// Every model fits a single series of evenly spaced observations and produces
// flat point forecasts over the requested horizon.
package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Model fits one series.
type Model interface {
	// Name is the registry key, e.g. "croston_optimized".
	Name() string
	// Alias is the column header the model's forecasts appear under.
	Alias() string
	Fit(ctx context.Context, y []float64) (Fitted, error)
}

// Fitted is a model bound to one series' history.
type Fitted interface {
	Predict(h int) []float64
}

// Flat is a fitted model whose forecast is the same value at every step.
type Flat struct {
	Level float64
}

// Predict returns h copies of the level.
func (f Flat) Predict(h int) []float64 {
	if h <= 0 {
		return nil
	}
	out := make([]float64, h)
	for i := range out {
		out[i] = f.Level
	}
	return out
}

// ErrUnknownModel is returned by New for names not in the registry.
var ErrUnknownModel = errors.New("unknown model")

var registry = map[string]func() Model{
	"croston_optimized": func() Model { return NewCrostonOptimized() },
	"croston_classic":   func() Model { return NewCrostonClassic() },
	"ses_optimized":     func() Model { return NewSESOptimized() },
}

// New returns the model registered under name.
func New(name string) (Model, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownModel, name, strings.Join(Available(), ", "))
	}
	return ctor(), nil
}

// Available lists registered model names, sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validate(y []float64) error {
	if len(y) == 0 {
		return fmt.Errorf("series cannot be empty")
	}
	if floats.HasNaN(y) {
		return fmt.Errorf("series contains NaN")
	}
	return nil
}
