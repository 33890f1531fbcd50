// Command forecastctl talks to a running forecaster: it lists products,
// prints a product's history and downloads forecasts as CSV.
//
//	forecastctl -list
//	forecastctl -series -ids 2674,2675
//	forecastctl -ids 2674,2675 -horizon 6 -out predictions.csv
//	forecastctl -grpc localhost:9091 -ids 2674 -horizon 3
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/HatiCode/demandcast/pkg/client"
	"github.com/HatiCode/demandcast/pkg/grpcapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("forecastctl failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	url     string
	grpc    string
	ids     string
	horizon int
	out     string
	list    bool
	series  bool
	timeout time.Duration
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("forecastctl", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.url, "url", envOr("FORECASTER_URL", "http://localhost:8081"), "Forecaster base URL")
	fs.StringVar(&o.grpc, "grpc", envOr("FORECASTER_GRPC", ""), "Forecaster gRPC address; forecasts go over gRPC when set")
	fs.StringVar(&o.ids, "ids", "", "Comma-separated product ids")
	fs.IntVar(&o.horizon, "horizon", 1, "Forecast horizon in months")
	fs.StringVar(&o.out, "out", "-", "Output file for the forecast CSV (- for stdout)")
	fs.BoolVar(&o.list, "list", false, "List available products")
	fs.BoolVar(&o.series, "series", false, "Print the aligned history of -ids instead of forecasting")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	c := client.NewForecastClientWithTimeout(o.url, o.timeout)

	switch {
	case o.list:
		return listProducts(ctx, c, stdout)
	case o.series:
		return printSeries(ctx, c, splitIDs(o.ids), stdout)
	case o.grpc != "":
		conn, err := grpc.NewClient(o.grpc, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("dial %s: %w", o.grpc, err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		return downloadForecast(ctx, grpcForecast(grpcapi.NewClient(conn)), splitIDs(o.ids), o.horizon, o.out, stdout)
	default:
		return downloadForecast(ctx, httpForecast(c), splitIDs(o.ids), o.horizon, o.out, stdout)
	}
}

// forecastFunc fetches a forecast over one of the service's transports.
type forecastFunc func(ctx context.Context, ids []string, horizon int) (*client.ForecastResult, error)

func httpForecast(c *client.ForecastClient) forecastFunc {
	return c.Forecast
}

func grpcForecast(c *grpcapi.Client) forecastFunc {
	return func(ctx context.Context, ids []string, horizon int) (*client.ForecastResult, error) {
		reply, err := c.Forecast(ctx, ids, horizon)
		if err != nil {
			return nil, err
		}
		return &client.ForecastResult{
			CSV:     []byte(reply.CSV),
			Key:     reply.Key,
			Missing: reply.Missing,
			Cached:  reply.Cached,
		}, nil
	}
}

func listProducts(ctx context.Context, c *client.ForecastClient, w io.Writer) error {
	p, err := c.Products(ctx)
	if err != nil {
		return err
	}
	for _, id := range p.Products {
		if id == p.Default {
			fmt.Fprintf(w, "%s (default)\n", id)
			continue
		}
		fmt.Fprintln(w, id)
	}
	return nil
}

func printSeries(ctx context.Context, c *client.ForecastClient, ids []string, w io.Writer) error {
	series, err := c.Series(ctx, ids)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return errors.New("no series to print")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"ds"}
	for _, s := range series {
		header = append(header, s.ID)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, d := range series[0].Dates {
		cols := []string{d.Format("2006-01-02")}
		for _, s := range series {
			if i < len(s.Volumes) {
				cols = append(cols, fmt.Sprint(s.Volumes[i]))
			} else {
				cols = append(cols, "")
			}
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func downloadForecast(ctx context.Context, forecast forecastFunc, ids []string, horizon int, out string, stdout io.Writer) error {
	res, err := forecast(ctx, ids, horizon)
	if err != nil {
		return err
	}
	if len(res.Missing) > 0 {
		slog.Warn("products without sales history", "ids", res.Missing)
	}

	if out == "-" {
		_, err = stdout.Write(res.CSV)
		return err
	}
	if err := os.WriteFile(out, res.CSV, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	slog.Info("forecast written", "path", out, "bytes", len(res.CSV), "cached", res.Cached)
	return nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
