// Package router configures HTTP routes for the forecaster's HTTP API.
//
// Routes configured:
//   - GET  /api/v1/products            - selectable product ids and the default
//   - GET  /api/v1/series?ids=a,b      - history aligned for display (JSON)
//   - GET  /api/v1/chart?ids=a,b       - the same history as an HTML line chart
//   - POST /api/v1/forecasts           - forecast download (predictions.csv)
//   - GET  /healthz                    - liveness (always 200 OK)
//   - GET  /readyz                     - readiness (panel can be loaded)
//   - GET  /metrics                    - Prometheus metrics
//
// Only POST /api/v1/forecasts runs the models; the selection endpoints never do.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/demandcast/pkg/chart"
	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/httpx"
	"github.com/HatiCode/demandcast/pkg/pipeline"
	"github.com/HatiCode/demandcast/pkg/selection"
)

// Forecast response headers.
const (
	HeaderMissing = "X-Demandcast-Missing"
	HeaderCached  = "X-Demandcast-Cached"
	HeaderKey     = "X-Demandcast-Key"
)

// ForecastFilename is the attachment name of forecast downloads.
const ForecastFilename = "predictions.csv"

const maxBodyBytes = 1 << 20

// Service is the pipeline as seen by the HTTP handlers.
type Service interface {
	Products(ctx context.Context) (pipeline.Catalog, error)
	Display(ctx context.Context, ids []domain.SeriesID) ([]selection.DisplaySeries, error)
	Forecast(ctx context.Context, ids []domain.SeriesID, horizon int) (*pipeline.Forecast, error)
	Ready(ctx context.Context) error
}

// SetupRoutes configures HTTP endpoints for the forecaster.
func SetupRoutes(svc Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware(logger),
		httpx.LoggingMiddleware(logger),
	)

	r.Method(http.MethodGet, "/healthz", httpx.HealthHandler())
	r.Method(http.MethodGet, "/readyz", httpx.HealthHandlerWithCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return svc.Ready(ctx)
	}))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", handleProducts(svc, logger))
		r.Get("/series", handleSeries(svc, logger))
		r.Get("/chart", handleChart(svc, logger))
		r.Post("/forecasts", handleForecast(svc, logger))
	})

	return r
}

func handleProducts(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog, err := svc.Products(r.Context())
		if err != nil {
			writeError(w, err, logger)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, catalog)
	}
}

func handleSeries(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series, err := svc.Display(r.Context(), parseIDs(r.URL.Query().Get("ids")))
		if err != nil {
			writeError(w, err, logger)
			return
		}
		if series == nil {
			series = []selection.DisplaySeries{}
		}
		httpx.WriteJSON(w, http.StatusOK, series)
	}
}

func handleChart(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series, err := svc.Display(r.Context(), parseIDs(r.URL.Query().Get("ids")))
		if err != nil {
			writeError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := chart.Render(w, "Monthly sales volume", series); err != nil {
			logger.Error("chart render failed", "error", err)
		}
	}
}

// forecastRequest is the body of POST /api/v1/forecasts.
type forecastRequest struct {
	ProductIDs []productID `json:"product_ids"`
	Horizon    int         `json:"horizon"`
}

// productID accepts both "2674" and 2674.
type productID string

func (p *productID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = productID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id must be a string or integer: %s", b)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("product id must be a string or integer: %s", b)
	}
	*p = productID(n.String())
	return nil
}

func handleForecast(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forecastRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		ids := make([]domain.SeriesID, 0, len(req.ProductIDs))
		for _, id := range req.ProductIDs {
			if id != "" {
				ids = append(ids, domain.SeriesID(id))
			}
		}

		fc, err := svc.Forecast(r.Context(), ids, req.Horizon)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		if len(fc.Missing) > 0 {
			missing := make([]string, len(fc.Missing))
			for i, id := range fc.Missing {
				missing[i] = string(id)
			}
			w.Header().Set(HeaderMissing, strings.Join(missing, ","))
		}
		w.Header().Set(HeaderCached, strconv.FormatBool(fc.Cached))
		w.Header().Set(HeaderKey, fc.Key)
		httpx.WriteCSV(w, http.StatusOK, ForecastFilename, fc.CSV)
	}
}

// parseIDs splits a comma-separated id list, dropping blanks.
func parseIDs(raw string) []domain.SeriesID {
	var ids []domain.SeriesID
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, domain.SeriesID(p))
		}
	}
	return ids
}

// writeError maps pipeline errors to status codes.
func writeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, domain.ErrInvalidHorizon):
		httpx.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrEmptyInput):
		httpx.WriteError(w, http.StatusUnprocessableEntity, domain.ErrEmptyInput)
	case errors.Is(err, domain.ErrSchema):
		logger.Error("malformed source rows", "error", err)
		httpx.WriteError(w, http.StatusBadGateway, err)
	case errors.Is(err, domain.ErrDataUnavailable):
		logger.Error("row source unavailable", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, err)
	default:
		logger.Error("request failed", "error", err)
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
