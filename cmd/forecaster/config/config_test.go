package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetFlags(args ...string) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = append([]string{"cmd"}, args...)
}

func TestConfig_Defaults(t *testing.T) {
	resetFlags("-supabase-url=https://example.supabase.co", "-supabase-key=anon")

	cfg := ParseFlags()

	if cfg.Listen != ":8081" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8081")
	}
	if cfg.GRPCListen != ":9091" {
		t.Errorf("GRPCListen = %q, want %q", cfg.GRPCListen, ":9091")
	}
	if cfg.Source != "postgrest" {
		t.Errorf("Source = %q, want %q", cfg.Source, "postgrest")
	}
	if cfg.Table != "car_parts_monthly_sales" {
		t.Errorf("Table = %q, want %q", cfg.Table, "car_parts_monthly_sales")
	}
	if cfg.Storage != "memory" {
		t.Errorf("Storage = %q, want %q", cfg.Storage, "memory")
	}
	if cfg.ResultTTL != time.Hour {
		t.Errorf("ResultTTL = %v, want 1h", cfg.ResultTTL)
	}
	if cfg.Models != "croston_optimized" {
		t.Errorf("Models = %q, want %q", cfg.Models, "croston_optimized")
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}
	if cfg.ArenaSize != 32 {
		t.Errorf("ArenaSize = %d, want 32", cfg.ArenaSize)
	}
	if cfg.DefaultProduct != "2674" {
		t.Errorf("DefaultProduct = %q, want %q", cfg.DefaultProduct, "2674")
	}
	if cfg.MaxHorizon != 12 {
		t.Errorf("MaxHorizon = %d, want 12", cfg.MaxHorizon)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "text")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.CPUProfile != "" {
		t.Errorf("CPUProfile = %q, want empty", cfg.CPUProfile)
	}
}

func TestConfig_CustomValues(t *testing.T) {
	resetFlags(
		"-listen=:9090",
		"-source=postgres",
		"-database-url=postgres://u:p@db:5432/sales",
		"-storage=redis",
		"-redis-addr=redis:6379",
		"-models=croston_classic,ses_optimized",
		"-max-horizon=6",
		"-log-format=json",
		"-log-level=debug",
	)

	cfg := ParseFlags()

	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":9090")
	}
	if cfg.Source != "postgres" || cfg.DatabaseURL != "postgres://u:p@db:5432/sales" {
		t.Errorf("Source = %q, DatabaseURL = %q", cfg.Source, cfg.DatabaseURL)
	}
	if cfg.Storage != "redis" || cfg.RedisAddr != "redis:6379" {
		t.Errorf("Storage = %q, RedisAddr = %q", cfg.Storage, cfg.RedisAddr)
	}
	if got := cfg.ModelNames(); len(got) != 2 || got[0] != "croston_classic" || got[1] != "ses_optimized" {
		t.Errorf("ModelNames() = %v", got)
	}
	if cfg.MaxHorizon != 6 {
		t.Errorf("MaxHorizon = %d, want 6", cfg.MaxHorizon)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demandcast.yaml")
	yaml := `
source: csv
csv_path: /data/sales.csv
listen: ":7000"
log_level: warn
result_ttl: 30m
arena_size: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOG_LEVEL", "error")
	resetFlags("-config", path, "-listen=:7001")

	cfg := ParseFlags()

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	// flag beats file
	if cfg.Listen != ":7001" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":7001")
	}
	// env beats file
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "error")
	}
	// file beats default
	if cfg.Source != "csv" || cfg.CSVPath != "/data/sales.csv" {
		t.Errorf("Source = %q, CSVPath = %q", cfg.Source, cfg.CSVPath)
	}
	if cfg.ResultTTL != 30*time.Minute {
		t.Errorf("ResultTTL = %v, want 30m", cfg.ResultTTL)
	}
	if cfg.ArenaSize != 8 {
		t.Errorf("ArenaSize = %d, want 8", cfg.ArenaSize)
	}
	// untouched default
	if cfg.MaxHorizon != 12 {
		t.Errorf("MaxHorizon = %d, want 12", cfg.MaxHorizon)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil || cfg == nil {
		t.Fatalf("LoadFile(\"\") = %v, %v", cfg, err)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("listen: [unclosed"), 0o600)
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{"separate value", []string{"-config", "a.yaml"}, "", "a.yaml"},
		{"equals", []string{"--config=b.yaml"}, "", "b.yaml"},
		{"among others", []string{"-listen=:1", "-config=c.yaml", "-log-level=debug"}, "", "c.yaml"},
		{"env fallback", []string{"-listen=:1"}, "d.yaml", "d.yaml"},
		{"after terminator", []string{"--", "-config=e.yaml"}, "", ""},
		{"similar flag", []string{"-configure=x"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", tt.env)
			if got := configPath(tt.args); got != tt.want {
				t.Errorf("configPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Source:      "postgrest",
			SupabaseURL: "https://x.supabase.co",
			SupabaseKey: "k",
			Table:       "t",
			Storage:     "memory",
			Models:      "croston_optimized",
			MaxHorizon:  12,
			ArenaSize:   32,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing supabase url", func(c *Config) { c.SupabaseURL = "" }, true},
		{"missing supabase key", func(c *Config) { c.SupabaseKey = "" }, true},
		{"postgres without dsn", func(c *Config) { c.Source = "postgres" }, true},
		{"csv without path", func(c *Config) { c.Source = "csv" }, true},
		{"csv with path", func(c *Config) { c.Source = "csv"; c.CSVPath = "x.csv"; c.Table = "" }, false},
		{"unknown source", func(c *Config) { c.Source = "kafka" }, true},
		{"empty table", func(c *Config) { c.Table = "" }, true},
		{"unknown storage", func(c *Config) { c.Storage = "disk" }, true},
		{"redis without addr", func(c *Config) { c.Storage = "redis" }, true},
		{"no models", func(c *Config) { c.Models = " , " }, true},
		{"zero horizon", func(c *Config) { c.MaxHorizon = 0 }, true},
		{"zero arena", func(c *Config) { c.ArenaSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "from-env")
	if got := getEnv("TEST_VAR", "default"); got != "from-env" {
		t.Errorf("getEnv() = %q, want %q", got, "from-env")
	}
	if got := getEnv("NONEXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"valid integer", "42", 10, 42},
		{"invalid integer", "not-a-number", 10, 10},
		{"not set", "", 99, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			if got := getEnvInt("TEST_INT", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "5m", time.Minute, 5 * time.Minute},
		{"invalid duration", "not-a-duration", 30 * time.Second, 30 * time.Second},
		{"not set", "", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getEnvDuration("TEST_DURATION", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
