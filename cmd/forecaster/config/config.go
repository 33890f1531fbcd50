// Package config implements the demandcast forecaster config.
//
// Every option can be set, from highest to lowest precedence, by a
// command-line flag, an environment variable or a YAML file named by
// -config (or CONFIG_FILE). Unset options take built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all forecaster configuration.
type Config struct {
	ConfigFile string `yaml:"-"`

	Listen     string `yaml:"listen"`
	GRPCListen string `yaml:"grpc_listen"`

	// Row source
	Source      string `yaml:"source"`
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`
	Table       string `yaml:"table"`
	DatabaseURL string `yaml:"database_url"`
	CSVPath     string `yaml:"csv_path"`

	// Result store
	Storage       string        `yaml:"storage"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	ResultTTL     time.Duration `yaml:"result_ttl"`

	// Forecasting
	Models          string        `yaml:"models"`
	Workers         int           `yaml:"workers"`
	ArenaSize       int           `yaml:"arena_size"`
	DefaultProduct  string        `yaml:"default_product"`
	MaxHorizon      int           `yaml:"max_horizon"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	LogFormat  string `yaml:"log_format"`
	LogLevel   string `yaml:"log_level"`
	CPUProfile string `yaml:"cpu_profile"`
}

// ParseFlags parses command-line flags, environment variables and the
// optional YAML file into a Config. Exits with status 1 if the file cannot be
// read or the resulting configuration is invalid.
func ParseFlags() *Config {
	path := configPath(os.Args[1:])
	file, err := LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.ConfigFile, "config", path, "YAML config file")

	// Server
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", str(file.Listen, ":8081")), "HTTP listen address")
	flag.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", str(file.GRPCListen, ":9091")), "gRPC listen address (empty disables)")

	// Row source
	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", str(file.Source, "postgrest")), "Row source: postgrest, postgres or csv")
	flag.StringVar(&cfg.SupabaseURL, "supabase-url", getEnv("SUPABASE_URL", file.SupabaseURL), "Supabase project URL (postgrest source)")
	flag.StringVar(&cfg.SupabaseKey, "supabase-key", getEnv("SUPABASE_KEY", file.SupabaseKey), "Supabase API key (postgrest source)")
	flag.StringVar(&cfg.Table, "table", getEnv("TABLE", str(file.Table, "car_parts_monthly_sales")), "Sales table name")
	flag.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", file.DatabaseURL), "Postgres DSN (postgres source)")
	flag.StringVar(&cfg.CSVPath, "csv-path", getEnv("CSV_PATH", file.CSVPath), "CSV file path (csv source)")

	// Storage
	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", str(file.Storage, "memory")), "Result store: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", str(file.RedisAddr, "localhost:6379")), "Redis address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", file.RedisPassword), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", file.RedisDB), "Redis database number")
	flag.DurationVar(&cfg.ResultTTL, "result-ttl", getEnvDuration("RESULT_TTL", dur(file.ResultTTL, time.Hour)), "Stored forecast TTL")

	// Forecasting
	flag.StringVar(&cfg.Models, "models", getEnv("MODELS", str(file.Models, "croston_optimized")), "Comma-separated models; the first fills yhat")
	flag.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", file.Workers), "Parallel model fits (0 = number of CPUs)")
	flag.IntVar(&cfg.ArenaSize, "arena-size", getEnvInt("ARENA_SIZE", num(file.ArenaSize, 32)), "Fitted runners kept in memory")
	flag.StringVar(&cfg.DefaultProduct, "default-product", getEnv("DEFAULT_PRODUCT", str(file.DefaultProduct, "2674")), "Preselected product id")
	flag.IntVar(&cfg.MaxHorizon, "max-horizon", getEnvInt("MAX_HORIZON", num(file.MaxHorizon, 12)), "Longest accepted forecast horizon in months")
	flag.DurationVar(&cfg.RefreshInterval, "refresh-interval", getEnvDuration("REFRESH_INTERVAL", dur(file.RefreshInterval, 10*time.Minute)), "Panel warm-up interval (0 disables)")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", str(file.LogFormat, "text")), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", str(file.LogLevel, "info")), "Log level: debug, info, warn, error")

	// Profiling
	flag.StringVar(&cfg.CPUProfile, "cpu-profile", getEnv("CPU_PROFILE", file.CPUProfile), "Directory for a CPU profile (empty disables)")

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// Validate checks option combinations.
func (c *Config) Validate() error {
	switch c.Source {
	case "postgrest":
		if c.SupabaseURL == "" {
			return errors.New("--supabase-url is required for the postgrest source")
		}
		if c.SupabaseKey == "" {
			return errors.New("--supabase-key is required for the postgrest source")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("--database-url is required for the postgres source")
		}
	case "csv":
		if c.CSVPath == "" {
			return errors.New("--csv-path is required for the csv source")
		}
	default:
		return fmt.Errorf("invalid source %q (want postgrest, postgres or csv)", c.Source)
	}
	if c.Table == "" && c.Source != "csv" {
		return errors.New("--table cannot be empty")
	}

	switch c.Storage {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("--redis-addr is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid storage %q (want memory or redis)", c.Storage)
	}

	if len(c.ModelNames()) == 0 {
		return errors.New("--models cannot be empty")
	}
	if c.MaxHorizon < 1 {
		return fmt.Errorf("--max-horizon must be at least 1, got %d", c.MaxHorizon)
	}
	if c.ArenaSize < 1 {
		return fmt.Errorf("--arena-size must be at least 1, got %d", c.ArenaSize)
	}
	return nil
}

// ModelNames splits Models on commas, dropping blanks.
func (c *Config) ModelNames() []string {
	var names []string
	for _, n := range strings.Split(c.Models, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// LoadFile reads a YAML config. An empty path returns an empty Config.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// configPath finds -config in args ahead of flag parsing so the file can
// supply flag defaults. CONFIG_FILE is the fallback.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return getEnv("CONFIG_FILE", "")
}

func str(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func num(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func dur(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
