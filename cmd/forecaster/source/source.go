// Package source builds the row source adapter selected by the forecaster
// configuration.
package source

import (
	"fmt"
	"log/slog"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/HatiCode/demandcast/cmd/forecaster/config"
	"github.com/HatiCode/demandcast/pkg/adapters"
)

// New returns the adapter for cfg.Source. Exits with status 1 when it cannot
// be built.
func New(cfg *config.Config, logger *slog.Logger) adapters.Adapter {
	a, err := Build(cfg)
	if err != nil {
		logger.Error("failed to initialize row source", "source", cfg.Source, "error", err)
		os.Exit(1)
	}
	logger.Info("initialized row source", "source", a.Name(), "table", cfg.Table)
	return a
}

// Build returns the adapter for cfg.Source.
func Build(cfg *config.Config) (adapters.Adapter, error) {
	switch cfg.Source {
	case "postgrest":
		return &adapters.PostgRESTAdapter{
			BaseURL: cfg.SupabaseURL,
			APIKey:  cfg.SupabaseKey,
			Table:   cfg.Table,
		}, nil
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &adapters.PostgresAdapter{DB: db, Table: cfg.Table}, nil
	case "csv":
		return &adapters.CSVAdapter{Path: cfg.CSVPath}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
