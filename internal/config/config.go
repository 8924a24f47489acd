// Package config loads service configuration from the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/annealloc/internal/assign"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Database struct {
		DSN string `env:"DB_DSN" envDefault:"file:data/annealloc.db?cache=shared&_fk=1"`
	}
	Search struct {
		NumPatterns           int     `env:"SEARCH_NUM_PATTERNS" envDefault:"200000"`
		MaxWorkers            int     `env:"SEARCH_MAX_WORKERS" envDefault:"8"`
		LocalSearchIterations int     `env:"SEARCH_ITERATIONS" envDefault:"500"`
		InitialTemperature    float64 `env:"SEARCH_INITIAL_TEMPERATURE" envDefault:"1.0"`
		CoolingRate           float64 `env:"SEARCH_COOLING_RATE" envDefault:"0.995"`
		Seed                  int64   `env:"SEARCH_SEED" envDefault:"0"`
		SnapshotInterval      int     `env:"SEARCH_SNAPSHOT_INTERVAL" envDefault:"5000"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	// SQLite needs its directory to exist before the driver opens it.
	if dir := sqliteDir(cfg.Database.DSN); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SearchDefaults maps the environment-driven search tunables onto the
// optimizer config, keeping the rank weights and boost behavior at
// their standard values.
func (c *Config) SearchDefaults() assign.Config {
	sc := assign.DefaultConfig()
	sc.NumPatterns = c.Search.NumPatterns
	sc.MaxWorkers = c.Search.MaxWorkers
	sc.LocalSearchIterations = c.Search.LocalSearchIterations
	sc.InitialTemperature = c.Search.InitialTemperature
	sc.CoolingRate = c.Search.CoolingRate
	sc.Seed = c.Search.Seed
	sc.SnapshotInterval = c.Search.SnapshotInterval
	return sc
}

// sqliteDir extracts the parent directory from a file: DSN.
func sqliteDir(dsn string) string {
	path, ok := strings.CutPrefix(dsn, "file:")
	if !ok || path == "" {
		return ""
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}
