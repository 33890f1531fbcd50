package adapters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// PostgresAdapter reads every row of a table straight from Postgres.
type PostgresAdapter struct {
	DB    *gorm.DB
	Table string
	// OrderBy keeps the row order stable across fetches. Defaults to "id".
	OrderBy string
}

func (p *PostgresAdapter) Name() string { return "postgres" }

// Collect implements Adapter.
func (p *PostgresAdapter) Collect(ctx context.Context) (*DataFrame, error) {
	if p.DB == nil || p.Table == "" {
		return nil, errors.New("postgres adapter: DB and Table are required")
	}
	orderBy := p.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}

	var records []map[string]any
	if err := p.DB.WithContext(ctx).Table(p.Table).Order(orderBy).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("select %s: %w", p.Table, err)
	}

	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row(r)
	}
	return &DataFrame{Rows: rows}, nil
}
