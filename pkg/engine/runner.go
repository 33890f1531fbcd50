package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/models"
)

// series is one unique_id of a ModelFrame, sorted by ds.
type series struct {
	id    domain.SeriesID
	dates []time.Time
	y     []float64
}

// Runner is bound to one ModelFrame and one model set at monthly frequency.
// Models are fitted on the first forecast and the fits are reused by every
// later call; a Runner is safe for concurrent use.
type Runner struct {
	key     string
	models  []models.Model
	workers int
	series  []series

	once sync.Once
	fits [][]models.Fitted // [series][model]
	err  error
}

// NewRunner groups frame by unique_id. workers <= 0 uses runtime.NumCPU().
func NewRunner(frame domain.ModelFrame, ms []models.Model, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		key:     frame.Key(),
		models:  ms,
		workers: workers,
		series:  groupSeries(frame),
	}
}

// Key returns the content key of the bound frame.
func (r *Runner) Key() string {
	return r.key
}

// Series returns the number of series the runner forecasts.
func (r *Runner) Series() int {
	return len(r.series)
}

// Columns returns the forecast value columns. A single model fills "yhat"
// alone; with several, "yhat" (the first model) is followed by one column per
// model alias.
func (r *Runner) Columns() []string {
	if len(r.models) == 1 {
		return []string{"yhat"}
	}
	cols := make([]string, 0, len(r.models)+1)
	cols = append(cols, "yhat")
	for _, m := range r.models {
		cols = append(cols, m.Alias())
	}
	return cols
}

// Forecast returns horizon monthly point forecasts per series.
func (r *Runner) Forecast(ctx context.Context, horizon int) (*domain.ForecastResult, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidHorizon, horizon)
	}
	if len(r.series) == 0 {
		return nil, domain.ErrEmptyInput
	}

	r.once.Do(func() {
		// A started fit always runs to completion.
		r.fits, r.err = r.fit(context.WithoutCancel(ctx))
	})
	if r.err != nil {
		return nil, r.err
	}

	res := &domain.ForecastResult{
		Columns: r.Columns(),
		Rows:    make([]domain.ForecastRow, 0, len(r.series)*horizon),
		Horizon: horizon,
	}
	for i, s := range r.series {
		preds := make([][]float64, len(r.models))
		for j, f := range r.fits[i] {
			preds[j] = f.Predict(horizon)
		}
		last := s.dates[len(s.dates)-1]
		for step := range horizon {
			values := []float64{preds[0][step]}
			if len(r.models) > 1 {
				for j := range r.models {
					values = append(values, preds[j][step])
				}
			}
			res.Rows = append(res.Rows, domain.ForecastRow{
				UniqueID: s.id,
				DS:       nextMonthStart(last, step+1),
				Values:   values,
			})
		}
	}
	return res, nil
}

func (r *Runner) fit(ctx context.Context) ([][]models.Fitted, error) {
	fits := make([][]models.Fitted, len(r.series))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, s := range r.series {
		fits[i] = make([]models.Fitted, len(r.models))
		for j, m := range r.models {
			g.Go(func() error {
				f, err := m.Fit(ctx, s.y)
				if err != nil {
					return fmt.Errorf("fit %s for series %s: %w", m.Name(), s.id, err)
				}
				fits[i][j] = f
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fits, nil
}

func groupSeries(frame domain.ModelFrame) []series {
	index := make(map[domain.SeriesID]int)
	var out []series
	for _, row := range frame.Rows {
		i, ok := index[row.UniqueID]
		if !ok {
			i = len(out)
			index[row.UniqueID] = i
			out = append(out, series{id: row.UniqueID})
		}
		out[i].dates = append(out[i].dates, row.DS)
		out[i].y = append(out[i].y, float64(row.Y))
	}

	for i := range out {
		s := &out[i]
		order := make([]int, len(s.dates))
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(a, b int) bool { return s.dates[order[a]].Before(s.dates[order[b]]) })

		dates := make([]time.Time, len(order))
		y := make([]float64, len(order))
		for k, idx := range order {
			dates[k] = s.dates[idx]
			y[k] = s.y[idx]
		}
		s.dates, s.y = dates, y
	}
	return out
}

// nextMonthStart returns the first day of the n-th month after t's month.
func nextMonthStart(t time.Time, n int) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}
