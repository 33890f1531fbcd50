package models

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Bounds on the smoothing parameter searched by the optimized models.
const (
	alphaMin = 0.1
	alphaMax = 0.3
)

// sesForecast runs simple exponential smoothing over x and returns the
// one-step-ahead forecast after the last observation, together with the sum
// of squared one-step errors.
//
// The level starts at x[0]:
//
//	l_0 = x_0
//	l_t = alpha*x_{t-1} + (1-alpha)*l_{t-1}
func sesForecast(x []float64, alpha float64) (forecast, sse float64) {
	if len(x) == 0 {
		return 0, 0
	}
	level := x[0]
	for i := 1; i < len(x); i++ {
		level = alpha*x[i-1] + (1-alpha)*level
		e := x[i] - level
		sse += e * e
	}
	forecast = alpha*x[len(x)-1] + (1-alpha)*level
	return forecast, sse
}

// optimizeAlpha finds the alpha in [alphaMin, alphaMax] minimizing the
// in-sample SSE of sesForecast. The search runs unconstrained over a logistic
// reparameterization; if it fails the midpoint is used.
func optimizeAlpha(x []float64) float64 {
	mid := (alphaMin + alphaMax) / 2
	if len(x) < 2 {
		return mid
	}

	toAlpha := func(u float64) float64 {
		return alphaMin + (alphaMax-alphaMin)/(1+math.Exp(-u))
	}
	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			_, sse := sesForecast(x, toAlpha(u[0]))
			return sse
		},
	}

	res, err := optimize.Minimize(problem, []float64{0}, nil, &optimize.NelderMead{})
	if err != nil || res == nil || len(res.X) != 1 || math.IsNaN(res.X[0]) {
		return mid
	}

	best := toAlpha(res.X[0])
	_, bestSSE := sesForecast(x, best)
	// The logistic map never reaches the bounds themselves.
	for _, edge := range []float64{alphaMin, alphaMax} {
		if _, sse := sesForecast(x, edge); sse < bestSSE {
			best, bestSSE = edge, sse
		}
	}
	return best
}

// SESOptimized is simple exponential smoothing on the raw series with an
// optimized smoothing parameter.
type SESOptimized struct{}

// NewSESOptimized returns the SES model.
func NewSESOptimized() *SESOptimized { return &SESOptimized{} }

func (m *SESOptimized) Name() string  { return "ses_optimized" }
func (m *SESOptimized) Alias() string { return "SESOptimized" }

// Fit smooths y and forecasts its next level.
func (m *SESOptimized) Fit(ctx context.Context, y []float64) (Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(y); err != nil {
		return nil, err
	}
	f, _ := sesForecast(y, optimizeAlpha(y))
	return Flat{Level: f}, nil
}
