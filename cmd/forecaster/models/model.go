// Package models builds the configured forecasting models for the forecaster.
package models

import (
	"log/slog"
	"os"

	"github.com/HatiCode/demandcast/cmd/forecaster/config"
	"github.com/HatiCode/demandcast/pkg/models"
)

// New returns the models named by cfg.Models in order. Exits with status 1
// on an unknown name.
func New(cfg *config.Config, logger *slog.Logger) []models.Model {
	ms, err := Build(cfg.ModelNames())
	if err != nil {
		logger.Error("invalid model", "error", err, "available", models.Available())
		os.Exit(1)
	}
	for _, m := range ms {
		logger.Info("initializing model", "model", m.Name(), "alias", m.Alias())
	}
	return ms
}

// Build resolves names against the model registry.
func Build(names []string) ([]models.Model, error) {
	ms := make([]models.Model, 0, len(names))
	for _, n := range names {
		m, err := models.New(n)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}
