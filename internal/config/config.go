package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr               string        `env:"SYNDICATE_API_ADDR" envDefault:":8080"`
	Port               string        `env:"PORT"`
	DatabaseURL        string        `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret          string        `env:"SYNDICATE_JWT_SECRET,required,notEmpty"`
	RateLimitPerMinute int           `env:"SYNDICATE_RATE_LIMIT" envDefault:"120"`
	RequestTimeout     time.Duration `env:"SYNDICATE_REQUEST_TIMEOUT" envDefault:"60s"`
	NATSURL            string        `env:"NATS_URL"`
	NATSToken          string        `env:"NATS_TOKEN"`
	CatalogCacheSize   int           `env:"SYNDICATE_CATALOG_CACHE_SIZE" envDefault:"512"`
	CatalogCacheTTL    time.Duration `env:"SYNDICATE_CATALOG_CACHE_TTL" envDefault:"5m"`
	StartupSeedCatalog bool          `env:"SYNDICATE_STARTUP_SEED_CATALOG" envDefault:"true"`
	CatalogSeedPath    string        `env:"SYNDICATE_CATALOG_SEED"`
	Tracing            TracingConfig
}

type WorkerConfig struct {
	DatabaseURL    string        `env:"DATABASE_URL,required,notEmpty"`
	RoundTickEvery time.Duration `env:"SYNDICATE_ROUND_TICK_EVERY" envDefault:"1m"`
	RunOnce        bool          `env:"RUN_ONCE" envDefault:"false"`
	NATSURL        string        `env:"NATS_URL"`
	NATSToken      string        `env:"NATS_TOKEN"`
	Tracing        TracingConfig
}

// TracingConfig controls OTLP trace export. An empty endpoint disables it.
type TracingConfig struct {
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Enabled  bool   `env:"SYNDICATE_OTEL_ENABLED" envDefault:"true"`
}

type CLIConfig struct {
	APIBaseURL string `env:"SYND_API_BASE_URL" envDefault:"http://localhost:8080"`
	Token      string `env:"SYND_TOKEN"`
	NoColor    bool   `env:"NO_COLOR" envDefault:"false"`
}

func LoadAPIFromEnv() (APIConfig, error) {
	var cfg APIConfig
	if err := parseEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Port != "" {
		cfg.Addr = cfg.Port
		if !strings.HasPrefix(cfg.Addr, ":") {
			cfg.Addr = ":" + cfg.Addr
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.Tracing.Endpoint = strings.TrimSpace(cfg.Tracing.Endpoint)
	if cfg.RateLimitPerMinute <= 0 {
		return cfg, fmt.Errorf("SYNDICATE_RATE_LIMIT must be positive")
	}
	if len(cfg.JWTSecret) < 16 {
		return cfg, fmt.Errorf("SYNDICATE_JWT_SECRET must be at least 16 bytes")
	}
	if cfg.CatalogCacheSize <= 0 {
		cfg.CatalogCacheSize = 512
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	var cfg WorkerConfig
	if err := parseEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Tracing.Endpoint = strings.TrimSpace(cfg.Tracing.Endpoint)
	if cfg.RoundTickEvery <= 0 {
		return cfg, fmt.Errorf("SYNDICATE_ROUND_TICK_EVERY must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	var cfg CLIConfig
	if err := parseEnv(&cfg); err != nil {
		cfg.APIBaseURL = "http://localhost:8080"
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg
}

// parseEnv loads an optional .env file from the working directory, then
// fills target from the process environment. Variables already set in the
// environment win over .env values.
func parseEnv(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
