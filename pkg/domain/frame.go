package domain

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FrameRow is one row in the canonical (unique_id, ds, y) triple.
type FrameRow struct {
	UniqueID SeriesID
	DS       time.Time
	Y        int64
}

// ModelFrame is a panel slice relabeled for the forecasting models.
type ModelFrame struct {
	Rows []FrameRow
}

// Empty reports whether the frame has no rows.
func (f ModelFrame) Empty() bool {
	return len(f.Rows) == 0
}

// SeriesIDs returns the distinct unique ids in order of first appearance.
func (f ModelFrame) SeriesIDs() []SeriesID {
	seen := make(map[SeriesID]struct{})
	ids := make([]SeriesID, 0)
	for _, r := range f.Rows {
		if _, ok := seen[r.UniqueID]; ok {
			continue
		}
		seen[r.UniqueID] = struct{}{}
		ids = append(ids, r.UniqueID)
	}
	return ids
}

// Key returns a content hash of the frame. Two frames with the same rows in
// the same order share a key.
func (f ModelFrame) Key() string {
	h := xxhash.New()
	var buf [8]byte
	for _, r := range f.Rows {
		_, _ = h.WriteString(string(r.UniqueID))
		_, _ = h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(r.DS.UnixNano()))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(r.Y))
		_, _ = h.Write(buf[:])
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// ForecastRow is one forecast point for one series. Values holds one entry
// per column after unique_id and ds.
type ForecastRow struct {
	UniqueID SeriesID  `json:"unique_id"`
	DS       time.Time `json:"ds"`
	Values   []float64 `json:"values"`
}

// ForecastResult is the ordered forecast table for a horizon.
type ForecastResult struct {
	// Columns names the value columns; the first is always "yhat".
	Columns []string
	Rows    []ForecastRow
	Horizon int
}

// Yhat returns the primary point forecasts of one series in time order.
func (r *ForecastResult) Yhat(id SeriesID) []float64 {
	var out []float64
	for _, row := range r.Rows {
		if row.UniqueID == id && len(row.Values) > 0 {
			out = append(out, row.Values[0])
		}
	}
	return out
}

// SeriesIDs returns the distinct series in the result, in row order.
func (r *ForecastResult) SeriesIDs() []SeriesID {
	seen := make(map[SeriesID]struct{})
	var ids []SeriesID
	for _, row := range r.Rows {
		if _, ok := seen[row.UniqueID]; ok {
			continue
		}
		seen[row.UniqueID] = struct{}{}
		ids = append(ids, row.UniqueID)
	}
	return ids
}
