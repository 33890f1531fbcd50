// Package selection slices a panel down to the requested series, either
// relabeled for the forecasting models or aligned for display.
package selection

import (
	"github.com/HatiCode/demandcast/pkg/domain"
)

// Select returns the panel records of the requested ids as a ModelFrame, in
// panel order. Ids with no records contribute nothing; an empty ids set
// yields an empty frame.
func Select(p *domain.Panel, ids []domain.SeriesID) domain.ModelFrame {
	if p == nil || len(ids) == 0 {
		return domain.ModelFrame{}
	}

	want := make(map[domain.SeriesID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	rows := make([]domain.FrameRow, 0)
	for _, r := range p.Records {
		if _, ok := want[r.PartsID]; !ok {
			continue
		}
		rows = append(rows, domain.FrameRow{
			UniqueID: r.PartsID,
			DS:       r.Date,
			Y:        r.Volume,
		})
	}
	return domain.ModelFrame{Rows: rows}
}

// Missing returns the requested ids that have no records in p, in request
// order with duplicates removed.
func Missing(p *domain.Panel, ids []domain.SeriesID) []domain.SeriesID {
	present := make(map[domain.SeriesID]struct{})
	if p != nil {
		for _, r := range p.Records {
			present[r.PartsID] = struct{}{}
		}
	}

	var missing []domain.SeriesID
	for _, id := range Dedupe(ids) {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []domain.SeriesID) []domain.SeriesID {
	seen := make(map[domain.SeriesID]struct{}, len(ids))
	out := make([]domain.SeriesID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
