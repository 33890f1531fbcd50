// Package storage keeps computed forecasts so a repeated request for the same
// selection, horizon and model set is answered without refitting.
package storage

import (
	"context"
	"time"

	"github.com/HatiCode/demandcast/pkg/domain"
)

// Snapshot is one stored forecast.
type Snapshot struct {
	Key         string               `json:"key"`
	ProductIDs  []domain.SeriesID    `json:"product_ids"`
	Horizon     int                  `json:"horizon"`
	Models      []string             `json:"models"`
	GeneratedAt time.Time            `json:"generated_at"`
	Columns     []string             `json:"columns"`
	CSV         []byte               `json:"csv"`
	Rows        []domain.ForecastRow `json:"rows"`
}

// Result rebuilds the forecast table held by the snapshot.
func (s Snapshot) Result() *domain.ForecastResult {
	return &domain.ForecastResult{
		Columns: s.Columns,
		Rows:    s.Rows,
		Horizon: s.Horizon,
	}
}

// Store persists snapshots by key.
type Store interface {
	Put(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, key string) (Snapshot, bool, error)
}
