package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	RedisAddr string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int           `env:"REDIS_DB"   envDefault:"0"`
	CacheTTL  time.Duration `env:"CACHE_TTL"  envDefault:"1h"`

	DatabaseDir    string `env:"DATABASE_DIR"     envDefault:"runtime/db"`
	FramesBasePath string `env:"FRAMES_BASE_PATH" envDefault:"runtime/frames"`

	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS" envDefault:"5"`

	MetricsPort  int    `env:"METRICS_PORT"  envDefault:"8083"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:""`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
