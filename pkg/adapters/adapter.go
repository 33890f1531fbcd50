// Package adapters provides the row sources the demand forecaster reads its
// sales history from. Each adapter returns every row of one table as a
// DataFrame of loosely typed rows; normalization happens later in the panel
// builder.
//
// Available adapters:
//   - PostgRESTAdapter — reads a table through a Supabase/PostgREST endpoint
//   - PostgresAdapter  — reads a table directly from Postgres through GORM
//   - CSVAdapter       — reads a header-first CSV export, for local runs
package adapters

import (
	"context"
)

// Row is a single raw record as returned by the source.
// Example: {"id": 1, "parts_id": 2674, "date": "2020-01-01", "volume": "5"}
type Row map[string]any

// DataFrame is the ordered set of rows returned by one Collect call.
type DataFrame struct {
	Rows []Row
}

// Adapter is the interface every row source implements.
//
// Collect is synchronous and returns the full table in source order. It
// should respect context deadlines and must never return a partial frame
// together with a nil error.
type Adapter interface {
	Collect(ctx context.Context) (*DataFrame, error)

	// Name returns a short identifier such as "postgrest" or "csv".
	Name() string
}
