package selection

import (
	"time"

	"github.com/HatiCode/demandcast/pkg/domain"
)

// DisplaySeries is one plotted line: dates paired with volumes.
type DisplaySeries struct {
	ID      domain.SeriesID `json:"id"`
	Dates   []time.Time     `json:"dates"`
	Volumes []int64         `json:"volumes"`
}

// AlignForDisplay pairs every requested series with the dates of the first
// requested series. When a series and the baseline dates differ in length,
// both are cut to the shorter one.
//
// Alignment is positional, not by date value: series whose calendars differ
// from the first id's will be plotted against the wrong dates.
func AlignForDisplay(p *domain.Panel, ids []domain.SeriesID) []DisplaySeries {
	ids = Dedupe(ids)
	if p == nil || len(ids) == 0 {
		return nil
	}

	baseline := make([]time.Time, 0)
	volumes := make(map[domain.SeriesID][]int64, len(ids))
	for _, id := range ids {
		volumes[id] = make([]int64, 0)
	}
	for _, r := range p.Records {
		if r.PartsID == ids[0] {
			baseline = append(baseline, r.Date)
		}
		if v, ok := volumes[r.PartsID]; ok {
			volumes[r.PartsID] = append(v, r.Volume)
		}
	}

	out := make([]DisplaySeries, 0, len(ids))
	for _, id := range ids {
		y := volumes[id]
		n := min(len(baseline), len(y))
		out = append(out, DisplaySeries{
			ID:      id,
			Dates:   baseline[:n:n],
			Volumes: y[:n:n],
		})
	}
	return out
}
