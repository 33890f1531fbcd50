package models

import (
	"context"

	"gonum.org/v1/gonum/floats"
)

// classicAlpha is the fixed smoothing parameter of the classic method.
const classicAlpha = 0.1

// Croston splits an intermittent series into non-zero demand sizes and the
// intervals between them, smooths each with SES and forecasts size/interval.
//
// A history with no demand at all forecasts 0.
type Croston struct {
	name     string
	alias    string
	optimize bool
}

// NewCrostonOptimized returns Croston's method with both smoothing parameters
// chosen by in-sample SSE.
func NewCrostonOptimized() *Croston {
	return &Croston{name: "croston_optimized", alias: "CrostonOptimized", optimize: true}
}

// NewCrostonClassic returns Croston's method with alpha fixed at 0.1.
func NewCrostonClassic() *Croston {
	return &Croston{name: "croston_classic", alias: "CrostonClassic"}
}

func (m *Croston) Name() string  { return m.name }
func (m *Croston) Alias() string { return m.alias }

// Fit decomposes y and returns the flat Croston forecast.
func (m *Croston) Fit(ctx context.Context, y []float64) (Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(y); err != nil {
		return nil, err
	}

	sizes, intervals := decompose(y)
	if len(sizes) == 0 {
		return Flat{}, nil
	}

	sizeAlpha, intervalAlpha := classicAlpha, classicAlpha
	if m.optimize {
		sizeAlpha = optimizeAlpha(sizes)
		intervalAlpha = optimizeAlpha(intervals)
	}

	size, _ := sesForecast(sizes, sizeAlpha)
	interval, _ := sesForecast(intervals, intervalAlpha)
	if interval == 0 {
		return Flat{Level: size}, nil
	}
	return Flat{Level: size / interval}, nil
}

// decompose returns the non-zero values of y and, for each, the number of
// periods since the previous non-zero value (counting from before y[0]).
func decompose(y []float64) (sizes, intervals []float64) {
	n := floats.Count(func(v float64) bool { return v != 0 }, y)
	if n == 0 {
		return nil, nil
	}
	sizes = make([]float64, 0, n)
	intervals = make([]float64, 0, n)
	last := -1
	for i, v := range y {
		if v == 0 {
			continue
		}
		sizes = append(sizes, v)
		intervals = append(intervals, float64(i-last))
		last = i
	}
	return sizes, intervals
}
