// Package domain holds the data shapes shared by every stage of the demand
// forecast pipeline, from normalized panel records to serialized forecasts.
package domain

import (
	"time"
)

// SeriesID identifies one product series. Numeric identifiers from the row
// source are normalized to their decimal string form.
type SeriesID string

// DefaultSeriesID is the product preselected when nothing else is chosen.
const DefaultSeriesID SeriesID = "2674"

// Record is one normalized panel row.
type Record struct {
	PartsID SeriesID
	Date    time.Time
	Volume  int64
}

// Panel is the ordered, normalized set of all series for one fetch.
// A Panel is never mutated after it is built; consumers share it read-only.
type Panel struct {
	Records []Record
	// Version is the fetch version the panel was built from.
	Version uint64
	// FetchedAt is when the backing rows were fetched.
	FetchedAt time.Time
}

// Len returns the number of records.
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Records)
}

// SeriesIDs returns the distinct series ids in order of first appearance.
func (p *Panel) SeriesIDs() []SeriesID {
	if p == nil {
		return nil
	}
	seen := make(map[SeriesID]struct{})
	ids := make([]SeriesID, 0)
	for _, r := range p.Records {
		if _, ok := seen[r.PartsID]; ok {
			continue
		}
		seen[r.PartsID] = struct{}{}
		ids = append(ids, r.PartsID)
	}
	return ids
}

// Has reports whether the panel holds at least one record for id.
func (p *Panel) Has(id SeriesID) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Records {
		if r.PartsID == id {
			return true
		}
	}
	return false
}
